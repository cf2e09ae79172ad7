// Package catalog provides the fragment store: a process-wide,
// read-mostly index of promise-body fragments keyed by
// (category, name, version).
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/propanelib/propane/body"
)

// Catalog indexes fragments by identity. Registration and lookup are
// safe for concurrent use; resolutions should work from a Snapshot so
// no writer can interleave with an in-flight composition.
type Catalog struct {
	mu        sync.RWMutex
	fragments map[body.Key]map[string]*body.Fragment
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		fragments: make(map[body.Key]map[string]*body.Fragment),
	}
}

// Register adds a fragment to the catalog. It fails with
// ErrDuplicateFragment if the (category, name, version) identity is
// already present, and rejects fragments that do not pass their local
// validation.
func (c *Catalog) Register(f *body.Fragment) error {
	if err := f.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := f.Identity.Key()
	versions := c.fragments[key]
	if versions == nil {
		versions = make(map[string]*body.Fragment)
		c.fragments[key] = versions
	}
	if _, exists := versions[f.Identity.Version]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFragment, f.Identity)
	}
	versions[f.Identity.Version] = f
	return nil
}

// Lookup returns the fragment with the given identity. An empty version
// selects the highest registered semantic version. Fails with
// ErrNotFound when nothing matches.
func (c *Catalog) Lookup(category, name, version string) (*body.Fragment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.fragments, category, name, version)
}

// Len returns the number of registered fragments across all versions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, versions := range c.fragments {
		n += len(versions)
	}
	return n
}

// List returns all registered fragments sorted by category, name and
// descending version, optionally filtered to one category.
func (c *Catalog) List(category string) []*body.Fragment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return list(c.fragments, category)
}

// Snapshot returns an immutable view of the current catalog contents.
// Fragments themselves are immutable, so a shallow copy of the index is
// enough; concurrent resolutions each hold their own snapshot and are
// unaffected by later registrations.
func (c *Catalog) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copied := make(map[body.Key]map[string]*body.Fragment, len(c.fragments))
	for key, versions := range c.fragments {
		inner := make(map[string]*body.Fragment, len(versions))
		for v, f := range versions {
			inner[v] = f
		}
		copied[key] = inner
	}
	return &Snapshot{fragments: copied}
}

// Snapshot is a frozen view of the catalog. It implements the lookup
// contract without locking; it is never mutated after construction.
type Snapshot struct {
	fragments map[body.Key]map[string]*body.Fragment
}

// Lookup returns the fragment with the given identity from the
// snapshot, with the same version semantics as Catalog.Lookup.
func (s *Snapshot) Lookup(category, name, version string) (*body.Fragment, error) {
	return lookup(s.fragments, category, name, version)
}

// Len returns the number of fragments in the snapshot.
func (s *Snapshot) Len() int {
	n := 0
	for _, versions := range s.fragments {
		n += len(versions)
	}
	return n
}

// List returns the snapshot's fragments with the same ordering and
// filtering semantics as Catalog.List.
func (s *Snapshot) List(category string) []*body.Fragment {
	return list(s.fragments, category)
}

func list(index map[body.Key]map[string]*body.Fragment, category string) []*body.Fragment {
	var out []*body.Fragment
	for key, versions := range index {
		if category != "" && key.Category != category {
			continue
		}
		for _, f := range versions {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Identity, out[j].Identity
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return compareVersions(a.Version, b.Version) > 0
	})
	return out
}

func lookup(index map[body.Key]map[string]*body.Fragment, category, name, version string) (*body.Fragment, error) {
	key := body.Key{Category: category, Name: name}
	versions := index[key]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if version != "" {
		f, ok := versions[version]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, key, version)
		}
		return f, nil
	}

	// No version requested: pick the highest semantic version.
	var best *body.Fragment
	for _, f := range versions {
		if best == nil || compareVersions(f.Identity.Version, best.Identity.Version) > 0 {
			best = f
		}
	}
	return best, nil
}

// compareVersions orders two semantic version strings. Registration
// validates versions, so parse failures fall back to string ordering
// rather than panicking.
func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	return va.Compare(vb)
}
