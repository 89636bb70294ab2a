// Package replace finds the current version string inside files and swaps in
// the new one.
//
// Work is split in two phases. Plan reads every target file and checks every
// match-count policy without writing anything. Only when the whole plan is
// valid does Apply write the files, one after another, each through a
// temporary sibling file and a rename. A failed write rolls back the files
// already written in the same run.
package replace

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy is the number of matches a rule must find in a file.
type Policy int

const (
	// ExactlyOne fails unless the pattern matches exactly once.
	ExactlyOne Policy = iota
	// AtLeastOne fails when the pattern does not match.
	AtLeastOne
	// AllowMany never fails on the match count.
	AllowMany
)

// DefaultPolicy applies when neither a rule nor the global configuration
// chooses a policy.
const DefaultPolicy = ExactlyOne

var policyNames = map[Policy]string{
	ExactlyOne: "exactly-one",
	AtLeastOne: "at-least-one",
	AllowMany:  "allow-many",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy converts the textual form of a policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exactly-one", "exactly_one", "one":
		return ExactlyOne, nil
	case "at-least-one", "at_least_one":
		return AtLeastOne, nil
	case "allow-many", "allow_many", "any":
		return AllowMany, nil
	}
	return DefaultPolicy, fmt.Errorf("unknown match policy %q (want exactly-one, at-least-one or allow-many)", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// check returns nil when found satisfies the policy.
func (p Policy) check(found int) bool {
	switch p {
	case ExactlyOne:
		return found == 1
	case AtLeastOne:
		return found >= 1
	}
	return true
}

// Match is the byte span of one occurrence.
type Match struct {
	Start int
	End   int
}

// Locate returns every non-overlapping match of re in content, in order, and
// fails with a *PolicyViolation when their number breaks policy. Calling it
// twice on the same content yields the same spans.
func Locate(content []byte, re *regexp.Regexp, policy Policy) ([]Match, error) {
	idx := re.FindAllIndex(content, -1)
	matches := make([]Match, 0, len(idx))
	for _, m := range idx {
		// An empty pattern matches everywhere; those matches carry nothing to
		// replace.
		if m[0] == m[1] {
			continue
		}
		matches = append(matches, Match{Start: m[0], End: m[1]})
	}
	if !policy.check(len(matches)) {
		return matches, &PolicyViolation{Found: len(matches), Policy: policy, Pattern: re.String()}
	}
	return matches, nil
}

// Apply returns content with every match replaced by replacement. Bytes
// outside the matches are copied unchanged. matches must be ordered and
// non-overlapping, as returned by Locate.
func Apply(content []byte, matches []Match, replacement string) []byte {
	if len(matches) == 0 {
		out := make([]byte, len(content))
		copy(out, content)
		return out
	}
	grow := len(matches) * len(replacement)
	out := make([]byte, 0, len(content)+grow)
	last := 0
	for _, m := range matches {
		out = append(out, content[last:m.Start]...)
		out = append(out, replacement...)
		last = m.End
	}
	return append(out, content[last:]...)
}
