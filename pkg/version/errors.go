package version

import (
	"fmt"
	"strings"
)

// UnknownComponentError is returned when a placeholder or bump target is not
// declared in the scheme.
type UnknownComponentError struct {
	Name  string
	Known []string
	// Offset and Length locate the placeholder in its template, when the
	// error came from a template.
	Offset int
	Length int
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("unknown version component %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

// UnsupportedBumpError is returned when a component cannot be incremented.
type UnsupportedBumpError struct {
	Component string
	Reason    string
}

func (e *UnsupportedBumpError) Error() string {
	return fmt.Sprintf("cannot bump %q: %s", e.Component, e.Reason)
}

// ParseMismatchError reports where text stopped matching a template.
type ParseMismatchError struct {
	Text     string
	Template string
	// Segment is the index of the template token that failed to match; it
	// equals the token count when unexpected text follows a full match.
	Segment int
	// Offset is the byte offset in Text where matching failed.
	Offset   int
	Expected string
	Actual   string
	Reason   string
}

func (e *ParseMismatchError) Error() string {
	return fmt.Sprintf("version %q does not match template %q: %s at offset %d (expected %s, found %q)",
		e.Text, e.Template, e.Reason, e.Offset, e.Expected, e.Actual)
}
