package body

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFragment() *Fragment {
	def := StringValue("0644")
	return &Fragment{
		Identity: Identity{Category: "perms", Name: "basic", Version: "1.0.0"},
		Parameters: []Parameter{
			{Name: "mode", Type: KindString, Default: &def},
		},
		Attributes: []Attribute{
			{Key: "mode", Value: StringValue("$(mode)")},
		},
	}
}

func TestIdentityString(t *testing.T) {
	id := Identity{Category: "perms", Name: "basic", Version: "1.0.0"}
	assert.Equal(t, "perms/basic/1.0.0", id.String())
	assert.Equal(t, "perms/basic", id.Key().String())
}

func TestIdentityValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"valid", Identity{Category: "perms", Name: "basic", Version: "1.0.0"}, false},
		{"missing category", Identity{Name: "basic", Version: "1.0.0"}, true},
		{"missing name", Identity{Category: "perms", Version: "1.0.0"}, true},
		{"bad version", Identity{Category: "perms", Name: "basic", Version: "one"}, true},
		{"short version ok", Identity{Category: "perms", Name: "basic", Version: "1.0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFragmentValidate(t *testing.T) {
	t.Run("valid fragment", func(t *testing.T) {
		assert.NoError(t, validFragment().Validate())
	})

	t.Run("duplicate parameter", func(t *testing.T) {
		f := validFragment()
		f.Parameters = append(f.Parameters, Parameter{Name: "mode", Type: KindString})
		err := f.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate parameter")
	})

	t.Run("duplicate attribute key", func(t *testing.T) {
		f := validFragment()
		f.Attributes = append(f.Attributes, Attribute{Key: "mode", Value: StringValue("0755")})
		err := f.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate attribute key")
	})

	t.Run("empty attribute key", func(t *testing.T) {
		f := validFragment()
		f.Attributes = append(f.Attributes, Attribute{Value: StringValue("x")})
		assert.Error(t, f.Validate())
	})
}

func TestFragmentAccessors(t *testing.T) {
	f := validFragment()

	p, ok := f.Param("mode")
	require.True(t, ok)
	assert.Equal(t, KindString, p.Type)

	_, ok = f.Param("missing")
	assert.False(t, ok)

	a, ok := f.Attr("mode")
	require.True(t, ok)
	assert.Equal(t, StringValue("$(mode)"), a.Value)

	_, ok = f.Attr("missing")
	assert.False(t, ok)
}

func TestParameterValidate(t *testing.T) {
	strDef := StringValue("0644")
	intDef := IntValue(5)
	badDef := IntValue(200)
	min, max := int64(0), int64(64)

	tests := []struct {
		name    string
		param   Parameter
		wantErr string
	}{
		{
			name:  "plain string",
			param: Parameter{Name: "mode", Type: KindString},
		},
		{
			name:    "empty name",
			param:   Parameter{Type: KindString},
			wantErr: "empty name",
		},
		{
			name:    "unknown type",
			param:   Parameter{Name: "x", Type: "float"},
			wantErr: "unknown value type",
		},
		{
			name:    "default type mismatch",
			param:   Parameter{Name: "mode", Type: KindInt, Default: &strDef},
			wantErr: "declared type",
		},
		{
			name: "range default ok",
			param: Parameter{
				Name: "depth", Type: KindInt, Default: &intDef,
				Constraint: &Constraint{Min: &min, Max: &max},
			},
		},
		{
			name: "default violates constraint",
			param: Parameter{
				Name: "depth", Type: KindInt, Default: &badDef,
				Constraint: &Constraint{Min: &min, Max: &max},
			},
			wantErr: "above maximum",
		},
		{
			name: "regex constraint on int",
			param: Parameter{
				Name: "depth", Type: KindInt,
				Constraint: &Constraint{Regex: "[0-9]+"},
			},
			wantErr: "not applicable",
		},
		{
			name: "range constraint on string",
			param: Parameter{
				Name: "mode", Type: KindString,
				Constraint: &Constraint{Min: &min},
			},
			wantErr: "not applicable",
		},
		{
			name: "invalid regex",
			param: Parameter{
				Name: "mode", Type: KindString,
				Constraint: &Constraint{Regex: "["},
			},
			wantErr: "invalid regex",
		},
		{
			name: "empty constraint",
			param: Parameter{
				Name: "mode", Type: KindString,
				Constraint: &Constraint{},
			},
			wantErr: "empty constraint",
		},
		{
			name: "inverted range",
			param: Parameter{
				Name: "depth", Type: KindInt,
				Constraint: &Constraint{Min: &max, Max: &min},
			},
			wantErr: "exceeds max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.param.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConstraintCheck(t *testing.T) {
	min, max := int64(1), int64(10)

	tests := []struct {
		name       string
		constraint Constraint
		value      Value
		wantErr    bool
	}{
		{"regex match", Constraint{Regex: "[0-7]{3,4}"}, StringValue("0644"), false},
		{"regex no match", Constraint{Regex: "[0-7]{3,4}"}, StringValue("rw-r--r--"), true},
		{"regex partial match rejected", Constraint{Regex: "[0-7]{3}"}, StringValue("0644x"), true},
		{"enum member", Constraint{Enum: []string{"digest", "mtime"}}, StringValue("mtime"), false},
		{"enum non-member", Constraint{Enum: []string{"digest", "mtime"}}, StringValue("size"), true},
		{"range inside", Constraint{Min: &min, Max: &max}, IntValue(5), false},
		{"range below", Constraint{Min: &min, Max: &max}, IntValue(0), true},
		{"range above", Constraint{Min: &min, Max: &max}, IntValue(11), true},
		{"range boundary", Constraint{Min: &min, Max: &max}, IntValue(10), false},
		{"list all match", Constraint{Regex: "[a-z]+"}, ListValue([]string{"aa", "bb"}), false},
		{"list one fails", Constraint{Regex: "[a-z]+"}, ListValue([]string{"aa", "B"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.constraint.Check(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
