// Package diag holds source spans and the diagnostics that refer to them.
//
// Diagnostics are collected, not thrown: a List keeps accepting problems until
// its limit is reached so that a user sees every configuration mistake of a
// run at once.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity of a diagnostic.
type Severity int

const (
	// Error diagnostics make the configuration unusable.
	Error Severity = iota
	// Warning diagnostics are reported but do not stop a run.
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Span is a byte range inside a named source text.
type Span struct {
	Source string
	Offset int
	Length int
	// Line and Column are 1-based; zero when unknown.
	Line   int
	Column int
}

// IsZero reports whether the span points nowhere.
func (s Span) IsZero() bool {
	return s == Span{}
}

// End is the offset just past the span.
func (s Span) End() int {
	return s.Offset + s.Length
}

func (s Span) String() string {
	switch {
	case s.Line > 0:
		return fmt.Sprintf("%s:%d:%d", s.Source, s.Line, s.Column)
	case s.Source != "":
		return fmt.Sprintf("%s@%d", s.Source, s.Offset)
	}
	return fmt.Sprintf("@%d", s.Offset)
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Message  string
	Spans    []Span
	// Err is the typed error behind the diagnostic, if any.
	Err error
}

func (d Diagnostic) String() string {
	if len(d.Spans) == 0 {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Spans[0], d.Severity, d.Message)
}

// Errorf builds an error-severity diagnostic.
func Errorf(span Span, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), Spans: spans(span)}
}

// Warnf builds a warning diagnostic.
func Warnf(span Span, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Spans: spans(span)}
}

func spans(s Span) []Span {
	if s.IsZero() {
		return nil
	}
	return []Span{s}
}

// DefaultLimit bounds how many diagnostics a List collects.
const DefaultLimit = 50

// List collects diagnostics up to Limit entries.
type List struct {
	// Limit is the maximum number of diagnostics kept; zero means
	// DefaultLimit.
	Limit int

	items     []Diagnostic
	truncated bool
}

func (l *List) limit() int {
	if l.Limit <= 0 {
		return DefaultLimit
	}
	return l.Limit
}

// Add appends d. It returns false once the limit has been reached; the first
// rejected diagnostic turns into a single "too many diagnostics" error.
func (l *List) Add(d Diagnostic) bool {
	if len(l.items) >= l.limit() {
		if !l.truncated {
			l.truncated = true
			l.items = append(l.items, Diagnostic{
				Severity: Error,
				Message:  fmt.Sprintf("too many diagnostics, stopped after %d", l.limit()),
			})
		}
		return false
	}
	l.items = append(l.items, d)
	return true
}

// Full reports whether the list stopped accepting diagnostics.
func (l *List) Full() bool {
	return l.truncated || len(l.items) >= l.limit()
}

// All returns every diagnostic in insertion order.
func (l *List) All() []Diagnostic {
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

// Len is the number of diagnostics.
func (l *List) Len() int {
	return len(l.items)
}

// Errors returns the error-severity diagnostics.
func (l *List) Errors() []Diagnostic {
	return l.filter(Error)
}

// Warnings returns the warning diagnostics.
func (l *List) Warnings() []Diagnostic {
	return l.filter(Warning)
}

func (l *List) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.items {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any error-severity diagnostic was collected.
func (l *List) HasErrors() bool {
	for _, d := range l.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by source position, keeping insertion order for
// diagnostics without spans.
func (l *List) Sort() {
	sort.SliceStable(l.items, func(i, j int) bool {
		a, b := l.items[i], l.items[j]
		if len(a.Spans) == 0 || len(b.Spans) == 0 {
			return len(a.Spans) > len(b.Spans)
		}
		if a.Spans[0].Source != b.Spans[0].Source {
			return a.Spans[0].Source < b.Spans[0].Source
		}
		return a.Spans[0].Offset < b.Spans[0].Offset
	})
}

// Err returns a *ListError wrapping the list when it holds at least one error,
// and nil otherwise.
func (l *List) Err() error {
	if !l.HasErrors() {
		return nil
	}
	return &ListError{Diagnostics: l.All()}
}

// ListError is returned when configuration diagnostics contain errors.
type ListError struct {
	Diagnostics []Diagnostic
}

func (e *ListError) Error() string {
	var errs []string
	for _, d := range e.Diagnostics {
		if d.Severity == Error {
			errs = append(errs, d.String())
		}
	}
	if len(errs) == 1 {
		return "invalid configuration: " + errs[0]
	}
	return fmt.Sprintf("invalid configuration: %d errors:\n  %s", len(errs), strings.Join(errs, "\n  "))
}

// Unwrap exposes the typed errors behind error diagnostics.
func (e *ListError) Unwrap() []error {
	var out []error
	for _, d := range e.Diagnostics {
		if d.Severity == Error && d.Err != nil {
			out = append(out, d.Err)
		}
	}
	return out
}
