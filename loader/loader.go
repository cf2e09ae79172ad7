// Package loader reads promise-body fragment definitions from YAML
// files into the catalog. A definition file holds either a single
// fragment mapping or a list of them; paths may use glob patterns,
// including ** for recursive matches.
package loader

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/propanelib/propane/body"
	"github.com/propanelib/propane/catalog"
)

// fragmentDef mirrors the on-disk YAML shape of a fragment definition.
type fragmentDef struct {
	Category   string     `yaml:"category"`
	Name       string     `yaml:"name"`
	Version    string     `yaml:"version"`
	Inherits   []body.Ref `yaml:"inherits"`
	Parameters []paramDef `yaml:"parameters"`
	Attributes []attrDef  `yaml:"attributes"`
}

type paramDef struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Default    *yaml.Node     `yaml:"default"`
	Constraint *constraintDef `yaml:"constraint"`
}

type constraintDef struct {
	Regex string   `yaml:"regex"`
	Enum  []string `yaml:"enum"`
	Min   *int64   `yaml:"min"`
	Max   *int64   `yaml:"max"`
}

type attrDef struct {
	Key   string    `yaml:"key"`
	Value yaml.Node `yaml:"value"`
}

// Parse decodes one definition file's contents into fragments. The
// top-level document may be a single mapping or a sequence of mappings.
func Parse(data []byte) ([]*body.Fragment, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	var defs []fragmentDef
	switch doc.Kind {
	case yaml.MappingNode:
		var def fragmentDef
		if err := doc.Decode(&def); err != nil {
			return nil, fmt.Errorf("parse definition: %w", err)
		}
		defs = append(defs, def)
	case yaml.SequenceNode:
		if err := doc.Decode(&defs); err != nil {
			return nil, fmt.Errorf("parse definitions: %w", err)
		}
	default:
		return nil, fmt.Errorf("parse definition: expected mapping or sequence, got %v", doc.Kind)
	}

	fragments := make([]*body.Fragment, 0, len(defs))
	for _, def := range defs {
		f, err := def.toFragment()
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// ParseFile loads and decodes a single definition file.
func ParseFile(path string) ([]*body.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition file: %w", err)
	}
	fragments, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fragments, nil
}

// LoadGlobs expands the given glob patterns, parses every matching file
// and registers the fragments in the catalog. Files load in sorted path
// order so registration errors are deterministic. Returns the number of
// fragments registered.
func LoadGlobs(patterns []string, cat *catalog.Catalog) (int, error) {
	paths, err := ExpandGlobs(patterns)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, path := range paths {
		fragments, err := ParseFile(path)
		if err != nil {
			return count, err
		}
		for _, f := range fragments {
			if err := cat.Register(f); err != nil {
				return count, fmt.Errorf("%s: %w", path, err)
			}
			count++
		}
	}
	return count, nil
}

// ExpandGlobs resolves glob patterns to a sorted, de-duplicated list of
// file paths. A pattern with no glob characters must name an existing
// file.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			// Non-glob patterns must exist; empty glob matches are fine.
			if !containsGlob(pattern) {
				return nil, fmt.Errorf("no such definition file: %s", pattern)
			}
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func containsGlob(pattern string) bool {
	for _, c := range pattern {
		if c == '*' || c == '?' || c == '[' || c == '{' {
			return true
		}
	}
	return false
}

// toFragment converts the decoded YAML shape into the immutable model,
// typing parameter defaults by their declared type and inferring
// attribute value types from the YAML node.
func (def fragmentDef) toFragment() (*body.Fragment, error) {
	id := body.Identity{Category: def.Category, Name: def.Name, Version: def.Version}

	f := &body.Fragment{
		Identity: id,
		Parents:  def.Inherits,
	}

	for _, pd := range def.Parameters {
		kind, err := body.ParseKind(pd.Type)
		if err != nil {
			return nil, fmt.Errorf("fragment %s: parameter %q: %w", id, pd.Name, err)
		}
		param := body.Parameter{Name: pd.Name, Type: kind}

		if pd.Default != nil {
			v, err := decodeTyped(pd.Default, kind)
			if err != nil {
				return nil, fmt.Errorf("fragment %s: parameter %q default: %w", id, pd.Name, err)
			}
			param.Default = &v
		}
		if pd.Constraint != nil {
			param.Constraint = &body.Constraint{
				Regex: pd.Constraint.Regex,
				Enum:  pd.Constraint.Enum,
				Min:   pd.Constraint.Min,
				Max:   pd.Constraint.Max,
			}
		}
		f.Parameters = append(f.Parameters, param)
	}

	for _, ad := range def.Attributes {
		v, err := decodeInferred(&ad.Value)
		if err != nil {
			return nil, fmt.Errorf("fragment %s: attribute %q: %w", id, ad.Key, err)
		}
		f.Attributes = append(f.Attributes, body.Attribute{Key: ad.Key, Value: v})
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// decodeTyped decodes a YAML node as the given kind.
func decodeTyped(node *yaml.Node, kind body.Kind) (body.Value, error) {
	switch kind {
	case body.KindString:
		var s string
		if err := node.Decode(&s); err != nil {
			return body.Value{}, fmt.Errorf("want string: %w", err)
		}
		return body.StringValue(s), nil
	case body.KindInt:
		var n int64
		if err := node.Decode(&n); err != nil {
			return body.Value{}, fmt.Errorf("want int: %w", err)
		}
		return body.IntValue(n), nil
	case body.KindBool:
		var b bool
		if err := node.Decode(&b); err != nil {
			return body.Value{}, fmt.Errorf("want boolean: %w", err)
		}
		return body.BoolValue(b), nil
	case body.KindList:
		var items []string
		if err := node.Decode(&items); err != nil {
			return body.Value{}, fmt.Errorf("want slist: %w", err)
		}
		return body.ListValue(items), nil
	}
	return body.Value{}, fmt.Errorf("unknown value type %q", kind)
}

// decodeInferred decodes a YAML node by its own tag: sequences become
// slists, and scalars map to string, int or boolean.
func decodeInferred(node *yaml.Node) (body.Value, error) {
	if node.Kind == yaml.SequenceNode {
		return decodeTyped(node, body.KindList)
	}
	if node.Kind != yaml.ScalarNode {
		return body.Value{}, fmt.Errorf("expected scalar or sequence value")
	}

	switch node.Tag {
	case "!!int":
		return decodeTyped(node, body.KindInt)
	case "!!bool":
		return decodeTyped(node, body.KindBool)
	case "!!str", "!!null":
		var s string
		if err := node.Decode(&s); err != nil {
			return body.Value{}, err
		}
		return body.StringValue(s), nil
	default:
		return body.Value{}, fmt.Errorf("unsupported YAML value tag %s", node.Tag)
	}
}
