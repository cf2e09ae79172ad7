package body

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the closed set of value types a body attribute or
// parameter may carry. The names follow CFEngine's type vocabulary.
type Kind string

const (
	// KindString is a plain string value.
	KindString Kind = "string"
	// KindInt is a signed integer value.
	KindInt Kind = "int"
	// KindBool is a boolean value.
	KindBool Kind = "boolean"
	// KindList is a list of strings (CFEngine "slist").
	KindList Kind = "slist"
)

// ParseKind converts a type name from a fragment definition into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindString, KindInt, KindBool, KindList:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown value type %q (want string, int, boolean or slist)", s)
	}
}

// Value is a tagged union over the four supported attribute value types.
// The zero Value has no kind and renders nothing; the emitter rejects it.
type Value struct {
	kind Kind
	str  string
	num  int64
	flag bool
	list []string
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue returns an integer Value.
func IntValue(n int64) Value { return Value{kind: KindInt, num: n} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

// ListValue returns a list-of-string Value. The slice is copied so the
// Value stays immutable.
func ListValue(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Kind returns the value's type tag.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether the value carries no kind at all.
func (v Value) IsZero() bool { return v.kind == "" }

// AsString returns the string payload. Valid only for KindString.
func (v Value) AsString() string { return v.str }

// AsInt returns the integer payload. Valid only for KindInt.
func (v Value) AsInt() int64 { return v.num }

// AsBool returns the boolean payload. Valid only for KindBool.
func (v Value) AsBool() bool { return v.flag }

// AsList returns a copy of the list payload. Valid only for KindList.
func (v Value) AsList() []string {
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return true
}

// Interpolate renders the value as text for substitution inside a
// larger string. Lists join with ", " so a list parameter can appear
// inside a string attribute.
func (v Value) Interpolate() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindList:
		return strings.Join(v.list, ", ")
	}
	return ""
}

// GoString makes test failures readable.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("body.StringValue(%q)", v.str)
	case KindInt:
		return fmt.Sprintf("body.IntValue(%d)", v.num)
	case KindBool:
		return fmt.Sprintf("body.BoolValue(%v)", v.flag)
	case KindList:
		return fmt.Sprintf("body.ListValue(%q)", v.list)
	}
	return "body.Value{}"
}
