// Package compose resolves a fragment and its ancestors into a
// ResolvedFragment: it builds the parent dependency graph, rejects
// cycles, merges attributes in topological order and substitutes
// parameter bindings. Composition is deterministic and fails fast at
// the first error.
package compose

import (
	"context"
	"errors"
	"fmt"

	"github.com/propanelib/propane/body"
	"github.com/propanelib/propane/validate"
)

// Composition errors.
var (
	// ErrCyclicDependency is returned when parent references form a
	// cycle. The error message carries the cycle path.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrUnresolvedReference is returned when a $(param) reference
	// survives substitution, i.e. it names no declared parameter.
	ErrUnresolvedReference = errors.New("unresolved reference")
)

// Source supplies fragments to the resolver. catalog.Catalog and
// catalog.Snapshot both satisfy it; concurrent resolutions should be
// handed a snapshot.
type Source interface {
	Lookup(category, name, version string) (*body.Fragment, error)
}

// Resolver composes fragments from a single source.
type Resolver struct {
	source Source
}

// NewResolver creates a resolver reading from the given source.
func NewResolver(src Source) *Resolver {
	return &Resolver{source: src}
}

// Resolve produces the ResolvedFragment for the requested identity with
// the supplied bindings. An empty version selects the highest
// registered version. The context is consulted between phases; a
// cancelled resolution leaves no partial state anywhere.
func (r *Resolver) Resolve(ctx context.Context, category, name, version string, bindings validate.Bindings) (*body.ResolvedFragment, error) {
	root, err := r.source.Lookup(category, name, version)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, err := buildGraph(r.source, root)
	if err != nil {
		return nil, err
	}
	if err := g.checkCycles(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order := g.mergeOrder()
	params := mergeParameters(g, order)
	attrs := mergeAttributes(g, order)

	bound, err := validate.Validate(root.Identity, params, bindings)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved := &body.ResolvedFragment{
		Identity:   root.Identity,
		Attributes: make([]body.Attribute, 0, len(attrs)),
	}
	for _, a := range attrs {
		v, err := substitute(root.Identity, a.Value, bound)
		if err != nil {
			return nil, err
		}
		resolved.Attributes = append(resolved.Attributes, body.Attribute{Key: a.Key, Value: v})
	}

	return resolved, nil
}

// mergeParameters collects the declared parameters of every fragment in
// merge order. A redeclaration overrides the earlier declaration but
// keeps its original position, mirroring the attribute rule.
func mergeParameters(g *graph, order []int) []body.Parameter {
	position := make(map[string]int)
	var merged []body.Parameter

	for _, n := range order {
		for _, p := range g.nodes[n].Parameters {
			if i, seen := position[p.Name]; seen {
				merged[i] = p
				continue
			}
			position[p.Name] = len(merged)
			merged = append(merged, p)
		}
	}
	return merged
}

// mergeAttributes merges attribute sequences in merge order: ancestors
// first, so a descendant's value for the same key wins
// (last-writer-wins) while the key keeps the position it first appeared
// at. The result is the canonical insertion-after-merge order.
func mergeAttributes(g *graph, order []int) []body.Attribute {
	position := make(map[string]int)
	var merged []body.Attribute

	for _, n := range order {
		for _, a := range g.nodes[n].Attributes {
			if i, seen := position[a.Key]; seen {
				merged[i].Value = a.Value
				continue
			}
			position[a.Key] = len(merged)
			merged = append(merged, a)
		}
	}
	return merged
}

// Check verifies that a fragment's parent graph is acyclic and that all
// parents exist, without performing a full resolution. Used by lint.
func (r *Resolver) Check(f *body.Fragment) error {
	g, err := buildGraph(r.source, f)
	if err != nil {
		return err
	}
	if err := g.checkCycles(); err != nil {
		return fmt.Errorf("fragment %s: %w", f.Identity, err)
	}
	return nil
}

// MergedParameters returns the effective declared parameter set for a
// fragment including everything inherited from its ancestors. Used by
// lint to check that attribute references resolve.
func (r *Resolver) MergedParameters(f *body.Fragment) ([]body.Parameter, error) {
	g, err := buildGraph(r.source, f)
	if err != nil {
		return nil, err
	}
	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	return mergeParameters(g, g.mergeOrder()), nil
}
