package version

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bcomnes/bumpversion/pkg/template"
)

// Parse recovers a Version from text rendered with t. Literal segments must
// match exactly and every placeholder capture must be valid for its
// component kind. Components that t does not mention take their reset value.
//
// Parse is the inverse of Render: s.Parse(t, v.Render(t)) equals v whenever
// adjacent placeholders in t are separated by a literal.
func (s *Scheme) Parse(t *template.Template, text string) (Version, error) {
	if err := s.CheckTemplate(t); err != nil {
		return Version{}, err
	}
	m := &matcher{
		scheme:   s,
		tokens:   t.Tokens(),
		text:     text,
		captured: make(map[int]string),
		best:     -1,
	}
	if !m.match(0, 0) {
		m.fail.Text = text
		m.fail.Template = t.Source()
		return Version{}, &m.fail
	}
	values := make(map[string]string, len(m.result))
	for i, val := range m.result {
		values[s.components[i].Name] = val
	}
	return s.New(values)
}

// matcher is a backtracking recursive-descent match of one text against one
// token sequence. The position is passed explicitly between calls.
type matcher struct {
	scheme   *Scheme
	tokens   []template.Token
	text     string
	captured map[int]string
	result   map[int]string

	best int
	fail ParseMismatchError
}

func (m *matcher) match(ti, pos int) bool {
	if ti == len(m.tokens) {
		if pos == len(m.text) {
			m.result = make(map[int]string, len(m.captured))
			for k, v := range m.captured {
				m.result[k] = v
			}
			return true
		}
		m.mismatch(ti, pos, "end of text", "unexpected trailing text")
		return false
	}

	tok := m.tokens[ti]
	rest := m.text[pos:]
	if tok.Kind == template.Literal {
		if !strings.HasPrefix(rest, tok.Text) {
			m.mismatch(ti, pos, fmt.Sprintf("%q", tok.Text), "literal text does not match")
			return false
		}
		return m.match(ti+1, pos+len(tok.Text))
	}

	idx := m.scheme.index[tok.Text]
	c := m.scheme.components[idx]
	if prev, ok := m.captured[idx]; ok {
		if !strings.HasPrefix(rest, prev) {
			m.mismatch(ti, pos, fmt.Sprintf("%q", prev), fmt.Sprintf("{%s} appears twice with different values", c.Name))
			return false
		}
		return m.match(ti+1, pos+len(prev))
	}

	candidates := m.candidates(ti, c, rest)
	if len(candidates) == 0 {
		m.mismatch(ti, pos, describe(c), fmt.Sprintf("no valid value for {%s}", c.Name))
		return false
	}
	for _, n := range candidates {
		m.captured[idx] = rest[:n]
		if m.match(ti+1, pos+n) {
			return true
		}
		delete(m.captured, idx)
	}
	return false
}

// candidates returns the capture lengths to try at the start of rest, in
// preference order.
func (m *matcher) candidates(ti int, c Component, rest string) []int {
	var out []int
	switch c.Kind {
	case Counter:
		n := len(rest) - len(strings.TrimLeft(rest, "0123456789"))
		for ; n > 0; n-- {
			if c.validate(rest[:n]) == nil {
				out = append(out, n)
			}
		}
	case Enum:
		for _, label := range c.Values {
			if strings.HasPrefix(rest, label) {
				out = append(out, len(label))
			}
		}
		sort.Sort(sort.Reverse(sort.IntSlice(out)))
	case String:
		if ti == len(m.tokens)-1 {
			return []int{len(rest)}
		}
		next := m.tokens[ti+1]
		for n := 0; n <= len(rest); n++ {
			if next.Kind == template.Literal && !strings.HasPrefix(rest[n:], next.Text) {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}

func (m *matcher) mismatch(ti, pos int, expected, reason string) {
	if pos < m.best {
		return
	}
	m.best = pos
	actual := m.text[pos:]
	if len(actual) > 24 {
		actual = actual[:24] + "..."
	}
	m.fail = ParseMismatchError{
		Segment:  ti,
		Offset:   pos,
		Expected: expected,
		Actual:   actual,
		Reason:   reason,
	}
}

func describe(c Component) string {
	switch c.Kind {
	case Counter:
		return "digits"
	case Enum:
		return "one of " + strings.Join(c.Values, ", ")
	}
	return "text"
}
