package version

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bcomnes/bumpversion/pkg/template"
)

// Version is an immutable version value: one value per component of its
// scheme.
type Version struct {
	scheme *Scheme
	values []string
}

// Pair is a component name with its value.
type Pair struct {
	Name  string
	Value string
}

// Scheme returns the scheme the version belongs to.
func (v Version) Scheme() *Scheme {
	return v.scheme
}

// IsZero reports whether v is the zero Version (no scheme).
func (v Version) IsZero() bool {
	return v.scheme == nil
}

// Get returns the value of the named component.
func (v Version) Get(name string) (string, bool) {
	if v.scheme == nil {
		return "", false
	}
	i, ok := v.scheme.index[name]
	if !ok {
		return "", false
	}
	return v.values[i], true
}

// Values returns the component values in significance order.
func (v Version) Values() []Pair {
	if v.scheme == nil {
		return nil
	}
	out := make([]Pair, len(v.values))
	for i, c := range v.scheme.components {
		out[i] = Pair{Name: c.Name, Value: v.values[i]}
	}
	return out
}

// Map returns the component values keyed by name.
func (v Version) Map() map[string]string {
	m := make(map[string]string, len(v.values))
	for _, p := range v.Values() {
		m[p.Name] = p.Value
	}
	return m
}

// Equal reports whether both versions share a scheme and all values.
func (v Version) Equal(o Version) bool {
	return v.scheme == o.scheme && slices.Equal(v.values, o.values)
}

func (v Version) String() string {
	pairs := v.Values()
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Name + "=" + p.Value
	}
	return strings.Join(parts, ", ")
}

// Bump increments the named component and resets every less significant,
// non-independent component. More significant components are untouched.
func (v Version) Bump(name string) (Version, error) {
	if v.scheme == nil {
		return Version{}, fmt.Errorf("bump %q: version has no scheme", name)
	}
	rank, ok := v.scheme.index[name]
	if !ok {
		return Version{}, &UnknownComponentError{Name: name, Known: v.scheme.Names()}
	}
	c := v.scheme.components[rank]
	next, err := increment(c, v.values[rank])
	if err != nil {
		return Version{}, err
	}

	out := Version{scheme: v.scheme, values: slices.Clone(v.values)}
	out.values[rank] = next
	if c.Independent {
		return out, nil
	}
	for i := rank + 1; i < len(out.values); i++ {
		lower := v.scheme.components[i]
		if lower.Independent {
			continue
		}
		out.values[i] = lower.canonical(lower.ResetValue())
	}
	return out, nil
}

func increment(c Component, value string) (string, error) {
	switch c.Kind {
	case Counter:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%s: %w", c.Name, err)
		}
		if n == ^uint64(0) {
			return "", &UnsupportedBumpError{Component: c.Name, Reason: "counter overflow"}
		}
		return strconv.FormatUint(n+1, 10), nil
	case Enum:
		i := slices.Index(c.Values, value)
		if i < 0 {
			return "", fmt.Errorf("%s: %q is not one of its values", c.Name, value)
		}
		if i == len(c.Values)-1 {
			if !c.Wrap {
				return "", &UnsupportedBumpError{
					Component: c.Name,
					Reason:    fmt.Sprintf("already at its last value %q", value),
				}
			}
			return c.Values[0], nil
		}
		return c.Values[i+1], nil
	}
	return "", &UnsupportedBumpError{Component: c.Name, Reason: "free-form string components cannot be bumped"}
}

// Render formats v through t.
func (v Version) Render(t *template.Template) (string, error) {
	if v.scheme == nil {
		return "", fmt.Errorf("render: version has no scheme")
	}
	out, err := t.Execute(v.Get)
	if err != nil {
		if missing, ok := err.(*template.MissingError); ok {
			return "", &UnknownComponentError{Name: missing.Name, Known: v.scheme.Names()}
		}
		return "", err
	}
	return out, nil
}

// CheckTemplate verifies that every placeholder of t names a component.
func (s *Scheme) CheckTemplate(t *template.Template) error {
	for _, tok := range t.Tokens() {
		if tok.Kind != template.Placeholder {
			continue
		}
		if _, ok := s.index[tok.Text]; !ok {
			return &UnknownComponentError{Name: tok.Text, Known: s.Names(), Offset: tok.Offset, Length: tok.Length}
		}
	}
	return nil
}
