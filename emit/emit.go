// Package emit serializes resolved fragments into CFEngine 3 body
// syntax. Output is deterministic: attribute order follows the resolved
// fragment's canonical order and formatting is byte-stable, so emitting
// the same resolved fragment twice yields identical text.
package emit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/propanelib/propane/body"
)

// ErrUnsupportedValueType is returned when an attribute value has no
// defined textual rendering.
var ErrUnsupportedValueType = errors.New("unsupported value type")

// indent matches the convention used by the CFEngine standard library
// bodies this catalog is meant to replace.
const indent = "      "

// Emit renders a resolved fragment as a CFEngine body block:
//
//	body perms basic
//	{
//	      mode => "0644";
//	}
//
// Strings are double-quoted with backslash and quote escaped, integers
// are bare, booleans render as the menu-option strings "true"/"false",
// and lists render as { "a", "b" }.
func Emit(rf *body.ResolvedFragment) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n", rf.Identity)
	fmt.Fprintf(&sb, "body %s %s\n{\n", rf.Identity.Category, rf.Identity.Name)

	for _, a := range rf.Attributes {
		text, err := renderValue(a.Value)
		if err != nil {
			return "", fmt.Errorf("%w: %s: attribute %q", ErrUnsupportedValueType, rf.Identity, a.Key)
		}
		fmt.Fprintf(&sb, "%s%s => %s;\n", indent, a.Key, text)
	}

	sb.WriteString("}\n")
	return sb.String(), nil
}

// renderValue renders a single value in CFEngine literal syntax.
func renderValue(v body.Value) (string, error) {
	switch v.Kind() {
	case body.KindString:
		return quote(v.AsString()), nil
	case body.KindInt:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case body.KindBool:
		// Body attributes take menu-option strings, not bare booleans.
		return quote(strconv.FormatBool(v.AsBool())), nil
	case body.KindList:
		items := v.AsList()
		if len(items) == 0 {
			return "{}", nil
		}
		quoted := make([]string, len(items))
		for i, item := range items {
			quoted[i] = quote(item)
		}
		return "{ " + strings.Join(quoted, ", ") + " }", nil
	default:
		return "", ErrUnsupportedValueType
	}
}

// quote renders a CFEngine double-quoted string literal. Backslash and
// double quote are the only characters the DSL requires escaping.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '"':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
