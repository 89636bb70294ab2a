// Package version models a version as an ordered set of named components.
//
// A Scheme declares the components from most to least significant. A Version
// holds exactly one value per declared component. Bumping a component
// increments it and resets every less significant component to its reset
// value, so bumping "minor" in 1.4.9 yields 1.5.0.
package version

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind is the value kind of a component.
type Kind int

const (
	// Counter is an unsigned decimal integer.
	Counter Kind = iota
	// Enum is one label out of a closed, ordered list.
	Enum
	// String is free-form text. It cannot be bumped.
	String
)

var kindNames = map[Kind]string{
	Counter: "counter",
	Enum:    "enum",
	String:  "string",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts the textual form of a kind. "numeric" and "values" are
// accepted as aliases of counter and enum.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "counter", "numeric", "number":
		return Counter, nil
	case "enum", "values":
		return Enum, nil
	case "string", "text", "free":
		return String, nil
	}
	return Counter, fmt.Errorf("unknown component kind %q (want counter, enum or string)", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Component declares one part of a version.
type Component struct {
	Name string
	Kind Kind
	// Reset is the value assigned when a more significant component is bumped.
	// Empty means the kind's default: "0" for counters, the first label for
	// enums and the empty string for strings.
	Reset string
	// Values lists the allowed labels of an Enum in bump order.
	Values []string
	// Independent components are never reset by a more significant bump.
	Independent bool
	// Wrap lets an Enum at its last label bump back to its first label.
	Wrap bool
}

// ResetValue returns the effective reset value.
func (c Component) ResetValue() string {
	if c.Reset != "" {
		return c.Reset
	}
	switch c.Kind {
	case Counter:
		return "0"
	case Enum:
		if len(c.Values) > 0 {
			return c.Values[0]
		}
	}
	return ""
}

// validate checks that value is consistent with the component kind.
func (c Component) validate(value string) error {
	switch c.Kind {
	case Counter:
		if value == "" || strings.TrimLeft(value, "0123456789") != "" {
			return fmt.Errorf("%s: %q is not an unsigned integer", c.Name, value)
		}
		if _, err := strconv.ParseUint(value, 10, 64); err != nil {
			return fmt.Errorf("%s: %q is out of range", c.Name, value)
		}
	case Enum:
		if !slices.Contains(c.Values, value) {
			return fmt.Errorf("%s: %q is not one of %s", c.Name, value, strings.Join(c.Values, ", "))
		}
	}
	return nil
}

// canonical normalizes a validated value so that equal values compare equal.
func (c Component) canonical(value string) string {
	if c.Kind == Counter {
		n, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			return strconv.FormatUint(n, 10)
		}
	}
	return value
}

// Scheme is the ordered set of components, most significant first. It never
// changes after construction.
type Scheme struct {
	components []Component
	index      map[string]int
}

// NewScheme validates components and returns the scheme they describe.
func NewScheme(components ...Component) (*Scheme, error) {
	if len(components) == 0 {
		return nil, errors.New("version scheme has no components")
	}
	s := &Scheme{
		components: make([]Component, len(components)),
		index:      make(map[string]int, len(components)),
	}
	for i, c := range components {
		if c.Name == "" {
			return nil, fmt.Errorf("component %d has no name", i)
		}
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("component %q declared twice", c.Name)
		}
		if c.Kind == Enum && len(c.Values) == 0 {
			return nil, fmt.Errorf("enum component %q has no values", c.Name)
		}
		if c.Kind != Enum && len(c.Values) > 0 {
			return nil, fmt.Errorf("component %q lists values but is a %s", c.Name, c.Kind)
		}
		c.Values = slices.Clone(c.Values)
		if err := c.validate(c.ResetValue()); err != nil {
			return nil, fmt.Errorf("reset value: %w", err)
		}
		s.components[i] = c
		s.index[c.Name] = i
	}
	return s, nil
}

// DefaultScheme is major.minor.patch, all counters resetting to zero.
func DefaultScheme() *Scheme {
	s, _ := NewScheme(
		Component{Name: "major", Kind: Counter},
		Component{Name: "minor", Kind: Counter},
		Component{Name: "patch", Kind: Counter},
	)
	return s
}

// Components returns the components, most significant first.
func (s *Scheme) Components() []Component {
	return slices.Clone(s.components)
}

// Names returns the component names, most significant first.
func (s *Scheme) Names() []string {
	names := make([]string, len(s.components))
	for i, c := range s.components {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the named component.
func (s *Scheme) Lookup(name string) (Component, bool) {
	i, ok := s.index[name]
	if !ok {
		return Component{}, false
	}
	return s.components[i], true
}

// New builds a Version from values. Components missing from values take
// their reset value; names not in the scheme are rejected.
func (s *Scheme) New(values map[string]string) (Version, error) {
	for name := range values {
		if _, ok := s.index[name]; !ok {
			return Version{}, &UnknownComponentError{Name: name, Known: s.Names()}
		}
	}
	v := Version{scheme: s, values: make([]string, len(s.components))}
	for i, c := range s.components {
		val, ok := values[c.Name]
		if !ok {
			val = c.ResetValue()
		}
		if err := c.validate(val); err != nil {
			return Version{}, err
		}
		v.values[i] = c.canonical(val)
	}
	return v, nil
}

// Zero returns the version with every component at its reset value.
func (s *Scheme) Zero() Version {
	v, _ := s.New(nil)
	return v
}
