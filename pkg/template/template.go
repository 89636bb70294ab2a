// Package template parses version format strings such as "{major}.{minor}.{patch}"
// into a sequence of literal and placeholder tokens.
//
// A placeholder is an identifier enclosed in braces. The identifier must start
// with a letter and may contain letters, digits and underscores. Literal braces
// are written by doubling them ("{{" and "}}").
//
// The parser does not know anything about version components; resolving
// placeholder names is left to the caller.
package template

import (
	"fmt"
	"strings"
)

// TokenKind distinguishes literal text from placeholders.
type TokenKind int

const (
	// Literal is verbatim text.
	Literal TokenKind = iota
	// Placeholder references a named value.
	Placeholder
)

// Token is a single segment of a parsed template.
type Token struct {
	Kind TokenKind
	// Text is the unescaped literal text for Literal tokens and the
	// identifier for Placeholder tokens.
	Text string
	// Offset and Length locate the token inside the original format string.
	Offset int
	Length int
}

// Template is an immutable, parsed format string.
type Template struct {
	source string
	tokens []Token
}

// Parse parses format into a Template. All syntax errors found in format are
// returned together as SyntaxErrors.
func Parse(format string) (*Template, error) {
	p := scanner{src: format}
	p.scan()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return &Template{source: format, tokens: p.tokens}, nil
}

// MustParse is like Parse but panics on error. It is meant for package level
// defaults.
func MustParse(format string) *Template {
	t, err := Parse(format)
	if err != nil {
		panic(fmt.Sprintf("template: MustParse(%q): %v", format, err))
	}
	return t
}

// Source returns the format string the template was parsed from.
func (t *Template) Source() string {
	return t.source
}

// Tokens returns a copy of the token sequence.
func (t *Template) Tokens() []Token {
	out := make([]Token, len(t.tokens))
	copy(out, t.tokens)
	return out
}

// Names returns the distinct placeholder names in order of first appearance.
func (t *Template) Names() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, tok := range t.tokens {
		if tok.Kind != Placeholder {
			continue
		}
		if _, ok := seen[tok.Text]; ok {
			continue
		}
		seen[tok.Text] = struct{}{}
		names = append(names, tok.Text)
	}
	return names
}

// Has reports whether the template references name.
func (t *Template) Has(name string) bool {
	for _, tok := range t.tokens {
		if tok.Kind == Placeholder && tok.Text == name {
			return true
		}
	}
	return false
}

// MissingError is returned by Execute when the lookup has no value for a
// placeholder.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("no value for placeholder {%s}", e.Name)
}

// Execute renders the template, resolving placeholders through lookup.
func (t *Template) Execute(lookup func(name string) (string, bool)) (string, error) {
	return t.ExecuteFunc(lookup, nil)
}

// ExecuteFunc is like Execute but passes every placeholder value through
// value. value may be nil.
func (t *Template) ExecuteFunc(lookup func(name string) (string, bool), value func(string) string) (string, error) {
	return t.execute(lookup, nil, value)
}

// ExecuteEscaped renders the template with literal segments passed through
// literal and placeholder values through value. It is used to turn a search
// template into a regular expression.
func (t *Template) ExecuteEscaped(lookup func(name string) (string, bool), literal, value func(string) string) (string, error) {
	return t.execute(lookup, literal, value)
}

func (t *Template) execute(lookup func(string) (string, bool), literal, value func(string) string) (string, error) {
	var b strings.Builder
	for _, tok := range t.tokens {
		if tok.Kind == Literal {
			if literal != nil {
				b.WriteString(literal(tok.Text))
			} else {
				b.WriteString(tok.Text)
			}
			continue
		}
		v, ok := lookup(tok.Text)
		if !ok {
			return "", &MissingError{Name: tok.Text}
		}
		if value != nil {
			v = value(v)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Map returns a lookup function backed by m.
func Map(m map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// String re-emits the template in canonical form.
func (t *Template) String() string {
	var b strings.Builder
	for _, tok := range t.tokens {
		if tok.Kind == Literal {
			b.WriteString(escape(tok.Text))
			continue
		}
		b.WriteByte('{')
		b.WriteString(tok.Text)
		b.WriteByte('}')
	}
	return b.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}
