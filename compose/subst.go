package compose

import (
	"fmt"
	"strings"

	"github.com/propanelib/propane/body"
	"github.com/propanelib/propane/validate"
)

// substitute replaces every $(param) reference in a value with its
// bound value. A string that is exactly one reference takes the bound
// value's type as-is, so a list parameter can become a list attribute;
// references embedded in longer text interpolate as text. Substitution
// is a total function over the scanned tokens -- no evaluation of any
// kind happens on fragment text.
func substitute(id body.Identity, v body.Value, bound validate.Bindings) (body.Value, error) {
	switch v.Kind() {
	case body.KindString:
		return substituteString(id, v.AsString(), bound)
	case body.KindList:
		items := v.AsList()
		out := make([]string, 0, len(items))
		for _, item := range items {
			sv, err := substituteString(id, item, bound)
			if err != nil {
				return body.Value{}, err
			}
			if sv.Kind() == body.KindList {
				// An element that is exactly a list reference splices
				// its items into place.
				out = append(out, sv.AsList()...)
				continue
			}
			out = append(out, sv.Interpolate())
		}
		return body.ListValue(out), nil
	default:
		// Integers and booleans carry no references.
		return v, nil
	}
}

// substituteString expands references in a single string. Returns the
// bound value unchanged when the whole string is one reference.
func substituteString(id body.Identity, s string, bound validate.Bindings) (body.Value, error) {
	if name, ok := wholeReference(s); ok {
		v, found := bound[name]
		if !found {
			return body.Value{}, unresolved(id, name)
		}
		return v, nil
	}

	var sb strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "$(")
		if start < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], ")")
		if end < 0 {
			// Unterminated reference: literal text.
			sb.WriteString(rest)
			break
		}
		end += start

		sb.WriteString(rest[:start])
		name := rest[start+2 : end]
		if name == "" {
			// "$()" is literal, not a reference.
			sb.WriteString(rest[start : end+1])
		} else {
			v, found := bound[name]
			if !found {
				return body.Value{}, unresolved(id, name)
			}
			sb.WriteString(v.Interpolate())
		}
		rest = rest[end+1:]
	}
	return body.StringValue(sb.String()), nil
}

// wholeReference reports whether s consists of exactly one $(name)
// reference and returns the name.
func wholeReference(s string) (string, bool) {
	if !strings.HasPrefix(s, "$(") || !strings.HasSuffix(s, ")") || len(s) < 4 {
		return "", false
	}
	name := s[2 : len(s)-1]
	if name == "" || strings.ContainsAny(name, "$()") {
		return "", false
	}
	return name, true
}

// References lists the parameter names referenced by a value, in order
// of appearance with duplicates removed. Used by lint to check that
// every reference resolves to a declared or inherited parameter.
func References(v body.Value) []string {
	var texts []string
	switch v.Kind() {
	case body.KindString:
		texts = []string{v.AsString()}
	case body.KindList:
		texts = v.AsList()
	default:
		return nil
	}

	seen := make(map[string]bool)
	var names []string
	for _, s := range texts {
		rest := s
		for {
			start := strings.Index(rest, "$(")
			if start < 0 {
				break
			}
			end := strings.Index(rest[start:], ")")
			if end < 0 {
				break
			}
			end += start
			if name := rest[start+2 : end]; name != "" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			rest = rest[end+1:]
		}
	}
	return names
}

func unresolved(id body.Identity, name string) error {
	return fmt.Errorf("%w: %s: $(%s) does not name a declared parameter",
		ErrUnresolvedReference, id, name)
}
