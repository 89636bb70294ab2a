package replace

import (
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff of the edit, or "" when nothing changes.
func (e *Edit) Diff() string {
	if !e.Changed() {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(string(e.Before)),
		B:        splitLines(string(e.After)),
		FromFile: e.Path + " (before)",
		ToFile:   e.Path + " (after)",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return text
}

// splitLines keeps the line endings and, unlike difflib.SplitLines, adds no
// empty line after a trailing newline. A last line without a newline gets
// one so the diff lines stay separated.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	lines[len(lines)-1] += "\n"
	return lines
}

// ColorDiff colors the lines of a unified diff: additions green, removals
// red, hunk headers cyan.
func ColorDiff(diff string, useColor bool) string {
	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	hunk := color.New(color.FgCyan)
	for _, c := range []*color.Color{add, del, hunk} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	lines := strings.SplitAfter(diff, "\n")
	var b strings.Builder
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(line)
		case strings.HasPrefix(line, "+"):
			b.WriteString(add.Sprint(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(del.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(hunk.Sprint(line))
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}
