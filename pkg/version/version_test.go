package version

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/bcomnes/bumpversion/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preScheme(t *testing.T) *Scheme {
	t.Helper()
	s, err := NewScheme(
		Component{Name: "major", Kind: Counter},
		Component{Name: "minor", Kind: Counter},
		Component{Name: "patch", Kind: Counter},
		Component{Name: "pre", Kind: Enum, Values: []string{"dev", "rc", "final"}, Reset: "dev"},
	)
	require.NoError(t, err)
	return s
}

func TestBumpMinorScenario(t *testing.T) {
	s := DefaultScheme()
	tmpl := template.MustParse("{major}.{minor}.{patch}")

	cur, err := s.Parse(tmpl, "1.4.9")
	require.NoError(t, err)
	next, err := cur.Bump("minor")
	require.NoError(t, err)
	out, err := next.Render(tmpl)
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", out)
}

func TestBumpPatchResetsPreRelease(t *testing.T) {
	s := preScheme(t)
	tmpl := template.MustParse("{major}.{minor}.{patch}-{pre}")

	cur, err := s.Parse(tmpl, "2.0.0-rc")
	require.NoError(t, err)
	next, err := cur.Bump("patch")
	require.NoError(t, err)
	out, err := next.Render(tmpl)
	require.NoError(t, err)
	assert.Equal(t, "2.0.1-dev", out)
}

func TestBumpTable(t *testing.T) {
	s := preScheme(t)
	tmpl := template.MustParse("{major}.{minor}.{patch}-{pre}")
	tests := []struct {
		current, part, expected string
	}{
		{"1.2.3-final", "major", "2.0.0-dev"},
		{"1.2.3-rc", "minor", "1.3.0-dev"},
		{"1.2.3-dev", "pre", "1.2.3-rc"},
		{"1.2.3-rc", "pre", "1.2.3-final"},
		{"0.0.0-dev", "patch", "0.0.1-dev"},
		{"9.99.999-final", "minor", "9.100.0-dev"},
	}
	for _, tc := range tests {
		cur, err := s.Parse(tmpl, tc.current)
		require.NoError(t, err, tc.current)
		next, err := cur.Bump(tc.part)
		require.NoError(t, err, "Bump(%q) on %s", tc.part, tc.current)
		out, err := next.Render(tmpl)
		require.NoError(t, err)
		if out != tc.expected {
			t.Errorf("bump %s of %s = %s, expected %s", tc.part, tc.current, out, tc.expected)
		}
	}
}

func TestBumpErrors(t *testing.T) {
	s, err := NewScheme(
		Component{Name: "major", Kind: Counter},
		Component{Name: "label", Kind: Enum, Values: []string{"alpha", "beta"}},
		Component{Name: "build", Kind: String},
	)
	require.NoError(t, err)
	v, err := s.New(map[string]string{"major": "1", "label": "beta", "build": "abc"})
	require.NoError(t, err)

	_, err = v.Bump("nope")
	var unknown *UnknownComponentError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Name)

	_, err = v.Bump("label")
	var unsupported *UnsupportedBumpError
	require.True(t, errors.As(err, &unsupported), "enum at last label without wrap")
	assert.Equal(t, "label", unsupported.Component)

	_, err = v.Bump("build")
	require.True(t, errors.As(err, &unsupported), "free-form string")
	assert.Equal(t, "build", unsupported.Component)
}

func TestBumpEnumWrap(t *testing.T) {
	s, err := NewScheme(
		Component{Name: "major", Kind: Counter},
		Component{Name: "stage", Kind: Enum, Values: []string{"a", "b"}, Wrap: true},
	)
	require.NoError(t, err)
	v, err := s.New(map[string]string{"major": "3", "stage": "b"})
	require.NoError(t, err)
	next, err := v.Bump("stage")
	require.NoError(t, err)
	got, _ := next.Get("stage")
	assert.Equal(t, "a", got)
	major, _ := next.Get("major")
	assert.Equal(t, "3", major)
}

func TestBumpIndependent(t *testing.T) {
	s, err := NewScheme(
		Component{Name: "major", Kind: Counter},
		Component{Name: "minor", Kind: Counter},
		Component{Name: "build", Kind: Counter, Independent: true},
	)
	require.NoError(t, err)
	v, err := s.New(map[string]string{"major": "1", "minor": "2", "build": "41"})
	require.NoError(t, err)

	next, err := v.Bump("major")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"major": "2", "minor": "0", "build": "41"}, next.Map())

	next, err = v.Bump("build")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"major": "1", "minor": "2", "build": "42"}, next.Map())
}

func randomScheme(r *rand.Rand) *Scheme {
	n := 2 + r.IntN(4)
	comps := make([]Component, n)
	for i := range comps {
		name := "c" + strconv.Itoa(i)
		switch r.IntN(3) {
		case 0, 1:
			comps[i] = Component{Name: name, Kind: Counter, Reset: strconv.Itoa(r.IntN(2))}
		default:
			comps[i] = Component{Name: name, Kind: Enum, Values: []string{"x", "y", "z"}, Wrap: true}
		}
	}
	s, err := NewScheme(comps...)
	if err != nil {
		panic(err)
	}
	return s
}

func randomVersion(r *rand.Rand, s *Scheme) Version {
	values := make(map[string]string)
	for _, c := range s.Components() {
		if c.Kind == Counter {
			values[c.Name] = strconv.Itoa(r.IntN(1000))
		} else {
			values[c.Name] = c.Values[r.IntN(len(c.Values))]
		}
	}
	v, err := s.New(values)
	if err != nil {
		panic(err)
	}
	return v
}

func TestBumpCascadeProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 200; iter++ {
		s := randomScheme(r)
		v := randomVersion(r, s)
		comps := s.Components()
		k := r.IntN(len(comps))

		next, err := v.Bump(comps[k].Name)
		require.NoError(t, err)
		for i, c := range comps {
			before, _ := v.Get(c.Name)
			after, _ := next.Get(c.Name)
			switch {
			case i < k:
				assert.Equal(t, before, after, "rank %d above bumped rank %d changed", i, k)
			case i > k:
				assert.Equal(t, c.ResetValue(), after, "rank %d below bumped rank %d not reset", i, k)
			default:
				assert.NotEqual(t, before, after, "bumped component unchanged")
			}
		}
	}
}

func TestRoundTripProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	separators := []string{".", "-", "+", "_rc", " / "}
	for iter := 0; iter < 200; iter++ {
		s := randomScheme(r)
		v := randomVersion(r, s)

		format := "v"
		for i, name := range s.Names() {
			if i > 0 {
				format += separators[r.IntN(len(separators))]
			}
			format += "{" + name + "}"
		}
		tmpl := template.MustParse(format)
		text, err := v.Render(tmpl)
		require.NoError(t, err)
		back, err := s.Parse(tmpl, text)
		require.NoError(t, err, "parse %q with %q", text, format)
		assert.True(t, v.Equal(back), "round trip of %s through %q gave %s", v, format, back)
	}
}

func TestParseRepeatedPlaceholder(t *testing.T) {
	s := DefaultScheme()
	tmpl := template.MustParse("{major}.{minor}.{patch} ({major})")

	v, err := s.Parse(tmpl, "3.1.4 (3)")
	require.NoError(t, err)
	out, err := v.Render(tmpl)
	require.NoError(t, err)
	assert.Equal(t, "3.1.4 (3)", out)

	_, err = s.Parse(tmpl, "3.1.4 (4)")
	var mismatch *ParseMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 7, mismatch.Offset)
}

func TestParseMismatch(t *testing.T) {
	s := preScheme(t)
	tmpl := template.MustParse("{major}.{minor}.{patch}-{pre}")
	tests := []struct {
		text    string
		segment int
		offset  int
	}{
		{"1.x.3-dev", 2, 2},
		{"1.2.3-beta", 6, 6},
		{"1.2.3", 5, 5},
		{"1.2.3-dev!", 7, 9},
		{"", 0, 0},
	}
	for _, tc := range tests {
		_, err := s.Parse(tmpl, tc.text)
		var mismatch *ParseMismatchError
		require.True(t, errors.As(err, &mismatch), "Parse(%q) = %v", tc.text, err)
		assert.Equal(t, tc.segment, mismatch.Segment, "segment for %q", tc.text)
		assert.Equal(t, tc.offset, mismatch.Offset, "offset for %q", tc.text)
		assert.Equal(t, tc.text, mismatch.Text)
	}
}

func TestParseFreeFormAndMissingComponents(t *testing.T) {
	s, err := NewScheme(
		Component{Name: "major", Kind: Counter},
		Component{Name: "minor", Kind: Counter},
		Component{Name: "build", Kind: String},
	)
	require.NoError(t, err)

	v, err := s.Parse(template.MustParse("{major}+{build}"), "7+sha.1-2")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"major": "7", "minor": "0", "build": "sha.1-2"}, v.Map())

	v, err = s.Parse(template.MustParse("{major}.{build}.{minor}"), "1.a.b.2")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"major": "1", "minor": "2", "build": "a.b"}, v.Map())
}

func TestRenderUnknownPlaceholder(t *testing.T) {
	v := DefaultScheme().Zero()
	_, err := v.Render(template.MustParse("{major}.{build}"))
	var unknown *UnknownComponentError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "build", unknown.Name)

	err = DefaultScheme().CheckTemplate(template.MustParse("{major}.{build}"))
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, 8, unknown.Offset)
	assert.Equal(t, 7, unknown.Length)
}

func TestNewSchemeValidation(t *testing.T) {
	tests := []struct {
		name  string
		comps []Component
	}{
		{"empty", nil},
		{"duplicate", []Component{{Name: "a"}, {Name: "a"}}},
		{"unnamed", []Component{{Kind: Counter}}},
		{"enum without values", []Component{{Name: "a", Kind: Enum}}},
		{"values on counter", []Component{{Name: "a", Values: []string{"x"}}}},
		{"bad counter reset", []Component{{Name: "a", Reset: "x"}}},
		{"bad enum reset", []Component{{Name: "a", Kind: Enum, Values: []string{"x"}, Reset: "y"}}},
	}
	for _, tc := range tests {
		_, err := NewScheme(tc.comps...)
		assert.Error(t, err, tc.name)
	}
}

func TestKindText(t *testing.T) {
	for _, s := range []string{"counter", "numeric", "enum", "values", "string"} {
		var k Kind
		require.NoError(t, k.UnmarshalText([]byte(s)), s)
	}
	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("float")))
	b, _ := Enum.MarshalText()
	assert.Equal(t, "enum", string(b))
}

func TestNewRejectsUnknownAndInvalid(t *testing.T) {
	s := DefaultScheme()
	_, err := s.New(map[string]string{"build": "1"})
	var unknown *UnknownComponentError
	assert.True(t, errors.As(err, &unknown))

	_, err = s.New(map[string]string{"major": "-1"})
	assert.Error(t, err)

	v, err := s.New(map[string]string{"major": "007"})
	require.NoError(t, err)
	got, _ := v.Get("major")
	assert.Equal(t, "7", got)
}
