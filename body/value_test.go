package body

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"string", KindString, false},
		{"int", KindInt, false},
		{"boolean", KindBool, false},
		{"slist", KindList, false},
		{"integer", "", true},
		{"", "", true},
		{"real", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueAccessors(t *testing.T) {
	assert.Equal(t, "hi", StringValue("hi").AsString())
	assert.Equal(t, int64(-3), IntValue(-3).AsInt())
	assert.True(t, BoolValue(true).AsBool())
	assert.Equal(t, []string{"a", "b"}, ListValue([]string{"a", "b"}).AsList())

	assert.True(t, Value{}.IsZero())
	assert.False(t, StringValue("").IsZero())
}

func TestListValueCopies(t *testing.T) {
	src := []string{"a", "b"}
	v := ListValue(src)
	src[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, v.AsList())

	got := v.AsList()
	got[1] = "mutated"
	assert.Equal(t, []string{"a", "b"}, v.AsList())
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", StringValue("x"), StringValue("x"), true},
		{"different string", StringValue("x"), StringValue("y"), false},
		{"kind mismatch", StringValue("1"), IntValue(1), false},
		{"same list", ListValue([]string{"a"}), ListValue([]string{"a"}), true},
		{"list length differs", ListValue([]string{"a"}), ListValue([]string{"a", "b"}), false},
		{"list item differs", ListValue([]string{"a"}), ListValue([]string{"b"}), false},
		{"same bool", BoolValue(false), BoolValue(false), true},
		{"zero values", Value{}, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestValueInterpolate(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"string", StringValue("abc"), "abc"},
		{"int", IntValue(42), "42"},
		{"negative int", IntValue(-7), "-7"},
		{"bool", BoolValue(true), "true"},
		{"list", ListValue([]string{"a", "b"}), "a, b"},
		{"empty list", ListValue(nil), ""},
		{"zero", Value{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Interpolate())
		})
	}
}
