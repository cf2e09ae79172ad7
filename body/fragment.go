// Package body defines the core data model for reusable promise bodies:
// fragments, their parameters, attribute values, and the resolved form
// produced by composition.
package body

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Identity uniquely identifies a fragment in the catalog.
type Identity struct {
	Category string `yaml:"category" json:"category"`
	Name     string `yaml:"name" json:"name"`
	Version  string `yaml:"version" json:"version"`
}

// String returns the canonical category/name/version form.
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Category, id.Name, id.Version)
}

// Key returns the (category, name) pair without the version.
func (id Identity) Key() Key {
	return Key{Category: id.Category, Name: id.Name}
}

// Validate checks that the identity is complete and the version parses
// as a semantic version.
func (id Identity) Validate() error {
	if id.Category == "" {
		return fmt.Errorf("fragment %s: category is required", id)
	}
	if id.Name == "" {
		return fmt.Errorf("fragment %s: name is required", id)
	}
	if _, err := semver.NewVersion(id.Version); err != nil {
		return fmt.Errorf("fragment %s: invalid version %q: %w", id, id.Version, err)
	}
	return nil
}

// Key identifies a fragment family across versions.
type Key struct {
	Category string
	Name     string
}

// String returns the category/name form.
func (k Key) String() string {
	return k.Category + "/" + k.Name
}

// Ref is a reference to another fragment, used for parent links.
// An empty Version selects the highest registered version.
type Ref struct {
	Category string `yaml:"category" json:"category"`
	Name     string `yaml:"name" json:"name"`
	Version  string `yaml:"version,omitempty" json:"version,omitempty"`
}

// String returns the reference in category/name or category/name/version form.
func (r Ref) String() string {
	if r.Version == "" {
		return r.Category + "/" + r.Name
	}
	return r.Category + "/" + r.Name + "/" + r.Version
}

// Attribute is a single ordered (key, value) assignment in a body.
type Attribute struct {
	Key   string
	Value Value
}

// Fragment is a named, versioned, parameterized promise body definition.
// Fragments are immutable once constructed; composition never mutates them.
type Fragment struct {
	Identity   Identity
	Parents    []Ref
	Parameters []Parameter
	Attributes []Attribute
}

// Param returns the declared parameter with the given name.
func (f *Fragment) Param(name string) (Parameter, bool) {
	for _, p := range f.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Attr returns the attribute with the given key.
func (f *Fragment) Attr(key string) (Attribute, bool) {
	for _, a := range f.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	return Attribute{}, false
}

// Validate checks the fragment's local invariants: a well-formed
// identity, unique parameter names, unique attribute keys, and
// well-formed parameter declarations. It does not follow parent
// references; that is the composer's job.
func (f *Fragment) Validate() error {
	if err := f.Identity.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(f.Parameters))
	for _, p := range f.Parameters {
		if seen[p.Name] {
			return fmt.Errorf("fragment %s: duplicate parameter %q", f.Identity, p.Name)
		}
		seen[p.Name] = true
		if err := p.Validate(); err != nil {
			return fmt.Errorf("fragment %s: %w", f.Identity, err)
		}
	}

	keys := make(map[string]bool, len(f.Attributes))
	for _, a := range f.Attributes {
		if a.Key == "" {
			return fmt.Errorf("fragment %s: attribute with empty key", f.Identity)
		}
		if keys[a.Key] {
			return fmt.Errorf("fragment %s: duplicate attribute key %q", f.Identity, a.Key)
		}
		keys[a.Key] = true
	}

	return nil
}

// ResolvedFragment is the output of composition: all ancestor attributes
// merged in canonical order and every parameter reference substituted.
type ResolvedFragment struct {
	Identity   Identity
	Attributes []Attribute
}
