package template

import (
	"fmt"
	"strings"
)

// SyntaxError describes one malformed span of a format string.
type SyntaxError struct {
	Offset  int
	Length  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Message)
}

// SyntaxErrors is every syntax error found in one format string, in source
// order.
type SyntaxErrors []*SyntaxError

func (e SyntaxErrors) Error() string {
	if len(e) == 1 {
		return "invalid template: " + e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid template: %d errors: %s", len(e), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.As.
func (e SyntaxErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, err := range e {
		out[i] = err
	}
	return out
}

// scanner is a single-use cursor over one format string. The position is
// threaded explicitly through the scan functions; nothing is shared between
// calls to Parse.
type scanner struct {
	src    string
	tokens []Token
	errs   SyntaxErrors

	lit      strings.Builder
	litStart int
}

func (s *scanner) scan() {
	pos := 0
	s.litStart = 0
	for pos < len(s.src) {
		switch s.src[pos] {
		case '{':
			if s.peek(pos+1) == '{' {
				s.literal(pos, "{")
				pos += 2
				continue
			}
			pos = s.placeholder(pos)
		case '}':
			if s.peek(pos+1) == '}' {
				s.literal(pos, "}")
				pos += 2
				continue
			}
			s.fail(pos, 1, "unmatched '}' (write '}}' for a literal brace)")
			pos++
		default:
			next := pos + 1
			for next < len(s.src) && s.src[next] != '{' && s.src[next] != '}' {
				next++
			}
			s.literal(pos, s.src[pos:next])
			pos = next
		}
	}
	s.flush(len(s.src))
}

func (s *scanner) peek(pos int) byte {
	if pos < len(s.src) {
		return s.src[pos]
	}
	return 0
}

func (s *scanner) literal(pos int, text string) {
	if s.lit.Len() == 0 {
		s.litStart = pos
	}
	s.lit.WriteString(text)
}

func (s *scanner) flush(end int) {
	if s.lit.Len() == 0 {
		return
	}
	s.tokens = append(s.tokens, Token{
		Kind:   Literal,
		Text:   s.lit.String(),
		Offset: s.litStart,
		Length: end - s.litStart,
	})
	s.lit.Reset()
}

func (s *scanner) fail(offset, length int, msg string) {
	s.errs = append(s.errs, &SyntaxError{Offset: offset, Length: length, Message: msg})
}

// placeholder scans "{name}" starting at the opening brace and returns the
// position to resume from.
func (s *scanner) placeholder(open int) int {
	pos := open + 1
	if pos >= len(s.src) {
		s.fail(open, 1, "unterminated placeholder")
		return pos
	}
	if s.src[pos] == '}' {
		s.fail(open, 2, "empty placeholder")
		return pos + 1
	}
	if !isLetter(s.src[pos]) {
		end := s.closing(pos)
		if end < len(s.src) && s.src[end] == '}' {
			s.fail(open, end+1-open, fmt.Sprintf("invalid placeholder name %q: must start with a letter", s.src[pos:end]))
			return end + 1
		}
		s.fail(open, end-open, "unterminated placeholder")
		return end
	}
	end := pos
	for end < len(s.src) && isIdent(s.src[end]) {
		end++
	}
	if end >= len(s.src) || s.src[end] != '}' {
		// "{ma-jor}" is a bad name; "{major.{minor}" is an unterminated one.
		if rb := s.closing(end); rb < len(s.src) && s.src[rb] == '}' {
			s.fail(open, rb+1-open, fmt.Sprintf("invalid character %q in placeholder name", s.src[end]))
			return rb + 1
		}
		s.fail(open, end-open, fmt.Sprintf("unterminated placeholder {%s: expected '}'", s.src[pos:end]))
		return end
	}
	s.flush(open)
	s.tokens = append(s.tokens, Token{
		Kind:   Placeholder,
		Text:   s.src[pos:end],
		Offset: open,
		Length: end + 1 - open,
	})
	return end + 1
}

// closing returns the position of the first brace at or after pos, or the end
// of the source.
func (s *scanner) closing(pos int) int {
	for pos < len(s.src) && s.src[pos] != '}' && s.src[pos] != '{' {
		pos++
	}
	return pos
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdent(c byte) bool {
	return isLetter(c) || c >= '0' && c <= '9' || c == '_'
}
