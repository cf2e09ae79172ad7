package compose

import (
	"fmt"
	"strings"

	"github.com/propanelib/propane/body"
)

// graph is the dependency graph over fragment identities: an arena of
// fragments plus index-based parent edges. Representing parents as
// indices keeps cycle detection and ordering simple graph walks instead
// of pointer chasing.
type graph struct {
	nodes []*body.Fragment
	index map[body.Identity]int
	// edges[i] lists the arena indices of node i's parents, in
	// declaration order.
	edges [][]int
}

// buildGraph collects the root fragment and every transitive parent
// from the source into an arena. Parent references with an empty
// version pin to whatever version the source selects, so the same
// snapshot always yields the same graph.
func buildGraph(src Source, root *body.Fragment) (*graph, error) {
	g := &graph{index: make(map[body.Identity]int)}

	var add func(f *body.Fragment) (int, error)
	add = func(f *body.Fragment) (int, error) {
		if i, ok := g.index[f.Identity]; ok {
			return i, nil
		}
		i := len(g.nodes)
		g.nodes = append(g.nodes, f)
		g.index[f.Identity] = i
		g.edges = append(g.edges, nil)

		for _, ref := range f.Parents {
			parent, err := src.Lookup(ref.Category, ref.Name, ref.Version)
			if err != nil {
				return 0, fmt.Errorf("fragment %s: parent %s: %w", f.Identity, ref, err)
			}
			pi, err := add(parent)
			if err != nil {
				return 0, err
			}
			g.edges[i] = append(g.edges[i], pi)
		}
		return i, nil
	}

	if _, err := add(root); err != nil {
		return nil, err
	}
	return g, nil
}

// dfs colors for cycle detection.
const (
	white = iota // unvisited
	gray         // on the current path
	black        // fully explored
)

// checkCycles runs a depth-first traversal with visiting/visited marks
// and fails with ErrCyclicDependency, reporting the cycle path, if any
// parent chain loops back on itself.
func (g *graph) checkCycles() error {
	color := make([]int, len(g.nodes))
	var stack []int

	var visit func(i int) error
	visit = func(i int) error {
		color[i] = gray
		stack = append(stack, i)

		for _, p := range g.edges[i] {
			switch color[p] {
			case gray:
				return fmt.Errorf("%w: %s", ErrCyclicDependency, g.cyclePath(stack, p))
			case white:
				if err := visit(p); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[i] = black
		return nil
	}

	for i := range g.nodes {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePath renders the offending portion of the DFS stack, closed by
// repeating the first identity.
func (g *graph) cyclePath(stack []int, repeat int) string {
	start := 0
	for i, n := range stack {
		if n == repeat {
			start = i
			break
		}
	}

	var parts []string
	for _, n := range stack[start:] {
		parts = append(parts, g.nodes[n].Identity.String())
	}
	parts = append(parts, g.nodes[repeat].Identity.String())
	return strings.Join(parts, " -> ")
}

// mergeOrder returns the arena indices in topological order, ancestors
// before descendants, ending at the root (index 0). Parents are visited
// in declaration order, so the result is deterministic for a given
// graph. Assumes checkCycles has already passed.
func (g *graph) mergeOrder() []int {
	visited := make([]bool, len(g.nodes))
	var order []int

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, p := range g.edges[i] {
			visit(p)
		}
		order = append(order, i)
	}

	visit(0)
	return order
}
