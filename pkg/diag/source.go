package diag

import (
	"sort"
	"strings"
)

// LineIndex maps byte offsets of a text to 1-based lines and columns.
type LineIndex struct {
	name   string
	text   string
	starts []int
}

// NewLineIndex indexes text, which is known as name in spans.
func NewLineIndex(name, text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{name: name, text: text, starts: starts}
}

// Name is the source name used in spans.
func (x *LineIndex) Name() string {
	return x.name
}

// Text is the indexed text.
func (x *LineIndex) Text() string {
	return x.text
}

// Position converts an offset to a line and column.
func (x *LineIndex) Position(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(x.text) {
		offset = len(x.text)
	}
	i := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset }) - 1
	return i + 1, offset - x.starts[i] + 1
}

// Offset converts a 1-based line and column to a byte offset.
func (x *LineIndex) Offset(line, col int) int {
	if line < 1 {
		return 0
	}
	if line > len(x.starts) {
		return len(x.text)
	}
	off := x.starts[line-1] + col - 1
	if off > len(x.text) {
		return len(x.text)
	}
	if off < 0 {
		return 0
	}
	return off
}

// Span builds a span for [offset, offset+length) with line and column set.
func (x *LineIndex) Span(offset, length int) Span {
	line, col := x.Position(offset)
	return Span{Source: x.name, Offset: offset, Length: length, Line: line, Column: col}
}

// Line returns the text of a 1-based line without its newline.
func (x *LineIndex) Line(line int) string {
	if line < 1 || line > len(x.starts) {
		return ""
	}
	start := x.starts[line-1]
	end := len(x.text)
	if line < len(x.starts) {
		end = x.starts[line] - 1
	}
	return strings.TrimSuffix(x.text[start:end], "\r")
}
