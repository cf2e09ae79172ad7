// Package validate checks parameter bindings against a fragment's
// declared parameter metadata. Validation is pure: it never touches the
// catalog and never mutates its inputs.
package validate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/propanelib/propane/body"
)

// Validation errors.
var (
	// ErrMissingParameter is returned when a declared parameter has no
	// binding and no default.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrTypeMismatch is returned when a bound value does not match the
	// declared parameter type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrConstraintViolation is returned when a bound or defaulted value
	// fails the parameter's constraint predicate.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrUnknownParameter is returned when a binding names a parameter
	// the fragment does not declare.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// Bindings maps parameter names to supplied values.
type Bindings map[string]body.Value

// Validate checks the supplied bindings against the declared parameters
// and returns the effective value of every parameter, with defaults
// filled in. The declared set is typically the merged parameter set of
// a fragment and its ancestors.
//
// Error order is deterministic: unknown binding keys are reported first
// (sorted), then declared parameters in declaration order.
func Validate(id body.Identity, params []body.Parameter, bindings Bindings) (Bindings, error) {
	declared := make(map[string]bool, len(params))
	for _, p := range params {
		declared[p.Name] = true
	}

	var unknown []string
	for name := range bindings {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s: %q", ErrUnknownParameter, id, unknown[0])
	}

	bound := make(Bindings, len(params))
	for _, p := range params {
		v, ok := bindings[p.Name]
		if !ok {
			if !p.HasDefault() {
				return nil, fmt.Errorf("%w: %s: %q has no binding and no default",
					ErrMissingParameter, id, p.Name)
			}
			v = *p.Default
		}

		if v.Kind() != p.Type {
			return nil, fmt.Errorf("%w: %s: parameter %q wants %s, got %s",
				ErrTypeMismatch, id, p.Name, p.Type, v.Kind())
		}

		if p.Constraint != nil {
			if err := p.Constraint.Check(v); err != nil {
				return nil, fmt.Errorf("%w: %s: parameter %q: %v",
					ErrConstraintViolation, id, p.Name, err)
			}
		}

		bound[p.Name] = v
	}

	return bound, nil
}
