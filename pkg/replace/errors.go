package replace

import (
	"fmt"
	"strings"
)

// PolicyViolation reports a match count that breaks a rule's policy.
type PolicyViolation struct {
	Path    string
	Rule    string
	Found   int
	Policy  Policy
	Pattern string
}

func (e *PolicyViolation) Error() string {
	where := e.Path
	if e.Rule != "" {
		where += " (" + e.Rule + ")"
	}
	return fmt.Sprintf("%s: found %d match(es) for %q, policy %s", where, e.Found, e.Pattern, e.Policy)
}

// IOError wraps a filesystem failure on a path.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ApplyError is returned when a write fails after other files were already
// written. It lists which of those were restored.
type ApplyError struct {
	Path string
	Err  error
	// Reverted files were restored to their original content.
	Reverted []string
	// NotReverted files could not be restored and are left modified; each
	// entry has the restore error in RevertErrors.
	NotReverted  []string
	RevertErrors []error
}

func (e *ApplyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "writing %s failed: %v", e.Path, e.Err)
	if len(e.Reverted) > 0 {
		fmt.Fprintf(&b, "; reverted: %s", strings.Join(e.Reverted, ", "))
	}
	if len(e.NotReverted) > 0 {
		fmt.Fprintf(&b, "; NOT reverted, left modified: %s", strings.Join(e.NotReverted, ", "))
	}
	return b.String()
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Consistent reports whether every file is back to its original content.
func (e *ApplyError) Consistent() bool {
	return len(e.NotReverted) == 0
}
