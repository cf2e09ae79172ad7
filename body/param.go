package body

import (
	"fmt"
	"regexp"
)

// Parameter declares a fragment input: a name, a type from the closed
// Kind set, an optional default and an optional constraint.
type Parameter struct {
	Name       string
	Type       Kind
	Default    *Value
	Constraint *Constraint
}

// HasDefault reports whether the parameter declares a default value.
func (p Parameter) HasDefault() bool { return p.Default != nil }

// Validate checks the declaration itself: the type must be known, the
// default (if any) must match the declared type, and the constraint
// (if any) must be well formed.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter with empty name")
	}
	if _, err := ParseKind(string(p.Type)); err != nil {
		return fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	if p.Default != nil && p.Default.Kind() != p.Type {
		return fmt.Errorf("parameter %q: default is %s, declared type is %s",
			p.Name, p.Default.Kind(), p.Type)
	}
	if p.Constraint != nil {
		if err := p.Constraint.Validate(p.Type); err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		if p.Default != nil {
			if err := p.Constraint.Check(*p.Default); err != nil {
				return fmt.Errorf("parameter %q: default: %w", p.Name, err)
			}
		}
	}
	return nil
}

// Constraint restricts the values a parameter accepts. Exactly one of
// the predicate forms should be set; when several are set they must all
// hold.
type Constraint struct {
	// Regex must match the whole value (strings and list elements).
	Regex string
	// Enum lists the allowed values (strings and list elements).
	Enum []string
	// Min and Max bound integer values inclusively.
	Min *int64
	Max *int64
}

// Validate checks that the constraint is expressible for the given
// parameter type and that any regex compiles.
func (c *Constraint) Validate(t Kind) error {
	if c.Regex == "" && len(c.Enum) == 0 && c.Min == nil && c.Max == nil {
		return fmt.Errorf("empty constraint")
	}
	if c.Regex != "" {
		if t != KindString && t != KindList {
			return fmt.Errorf("regex constraint not applicable to %s", t)
		}
		if _, err := regexp.Compile(c.Regex); err != nil {
			return fmt.Errorf("invalid regex %q: %w", c.Regex, err)
		}
	}
	if len(c.Enum) > 0 && t != KindString && t != KindList {
		return fmt.Errorf("enum constraint not applicable to %s", t)
	}
	if (c.Min != nil || c.Max != nil) && t != KindInt {
		return fmt.Errorf("range constraint not applicable to %s", t)
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return fmt.Errorf("range min %d exceeds max %d", *c.Min, *c.Max)
	}
	return nil
}

// Check evaluates the constraint against a typed value. The value is
// assumed to already match the parameter's declared type.
func (c *Constraint) Check(v Value) error {
	switch v.Kind() {
	case KindString:
		return c.checkString(v.AsString())
	case KindList:
		for _, item := range v.AsList() {
			if err := c.checkString(item); err != nil {
				return err
			}
		}
		return nil
	case KindInt:
		n := v.AsInt()
		if c.Min != nil && n < *c.Min {
			return fmt.Errorf("value %d below minimum %d", n, *c.Min)
		}
		if c.Max != nil && n > *c.Max {
			return fmt.Errorf("value %d above maximum %d", n, *c.Max)
		}
		return nil
	}
	return nil
}

func (c *Constraint) checkString(s string) error {
	if c.Regex != "" {
		// Anchor so partial matches do not pass.
		re, err := regexp.Compile("^(?:" + c.Regex + ")$")
		if err != nil {
			return fmt.Errorf("invalid regex %q: %w", c.Regex, err)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("value %q does not match pattern %q", s, c.Regex)
		}
	}
	if len(c.Enum) > 0 {
		for _, allowed := range c.Enum {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("value %q not in allowed set %q", s, c.Enum)
	}
	return nil
}
