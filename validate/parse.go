package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/propanelib/propane/body"
)

// ParseBindings converts raw string bindings (from --set flags or an
// API request) into typed values using the declared parameter set.
// Integers parse as base-10, booleans as true/false, and slists split
// on commas with surrounding whitespace trimmed. A key with no
// declaration fails with ErrUnknownParameter so the error surfaces
// before composition starts.
func ParseBindings(id body.Identity, params []body.Parameter, raw map[string]string) (Bindings, error) {
	types := make(map[string]body.Kind, len(params))
	for _, p := range params {
		types[p.Name] = p.Type
	}

	bindings := make(Bindings, len(raw))
	for name, text := range raw {
		kind, ok := types[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s: %q", ErrUnknownParameter, id, name)
		}

		v, err := parseValue(kind, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: parameter %q: %v", ErrTypeMismatch, id, name, err)
		}
		bindings[name] = v
	}
	return bindings, nil
}

func parseValue(kind body.Kind, text string) (body.Value, error) {
	switch kind {
	case body.KindString:
		return body.StringValue(text), nil
	case body.KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return body.Value{}, fmt.Errorf("%q is not an integer", text)
		}
		return body.IntValue(n), nil
	case body.KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return body.Value{}, fmt.Errorf("%q is not a boolean", text)
		}
		return body.BoolValue(b), nil
	case body.KindList:
		if text == "" {
			return body.ListValue(nil), nil
		}
		parts := strings.Split(text, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return body.ListValue(parts), nil
	}
	return body.Value{}, fmt.Errorf("unknown value type %q", kind)
}
