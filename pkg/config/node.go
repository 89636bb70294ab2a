package config

import (
	"github.com/bcomnes/bumpversion/pkg/diag"
)

type nodeKind int

const (
	mapNode nodeKind = iota
	listNode
	scalarNode
)

func (k nodeKind) String() string {
	switch k {
	case mapNode:
		return "table"
	case listNode:
		return "list"
	}
	return "scalar"
}

type scalarType int

const (
	stringScalar scalarType = iota
	intScalar
	floatScalar
	boolScalar
	nullScalar
	otherScalar
)

func (t scalarType) String() string {
	switch t {
	case stringScalar:
		return "string"
	case intScalar:
		return "integer"
	case floatScalar:
		return "float"
	case boolScalar:
		return "boolean"
	case nullScalar:
		return "null"
	}
	return "value"
}

// node is a format-independent view of a parsed configuration document in
// which every key and value knows where it came from.
type node struct {
	kind nodeKind
	span diag.Span

	entries []entry
	items   []*node

	typ   scalarType
	value string
	// raw is the source text under span; textOffset is the offset of value
	// inside the source, or -1 when value is not a verbatim slice of it
	// (escapes, block scalars).
	raw        string
	textOffset int

	b bool
	i int64
	f float64
}

type entry struct {
	key     string
	keySpan diag.Span
	value   *node
}

func (n *node) describe() string {
	if n.kind == scalarNode {
		return n.typ.String()
	}
	return n.kind.String()
}

// lookup returns the entry for key in a map node.
func (n *node) lookup(key string) (entry, bool) {
	for _, e := range n.entries {
		if e.key == key {
			return e, true
		}
	}
	return entry{}, false
}

// sub returns a span covering [off, off+length) of the decoded value of a
// string scalar. When the value is not a verbatim slice of the source the
// whole value span is returned.
func (n *node) sub(idx *diag.LineIndex, off, length int) diag.Span {
	if n.textOffset < 0 || idx == nil {
		return n.span
	}
	if off+length > len(n.value) {
		length = len(n.value) - off
	}
	if length < 0 {
		length = 0
	}
	return idx.Span(n.textOffset+off, length)
}

// setText fills raw and textOffset for a string scalar that starts at start
// and ends at end in text.
func (n *node) setText(text string, start, end int) {
	n.raw = text[start:end]
	n.textOffset = -1
	switch {
	case n.raw == n.value:
		n.textOffset = start
	case len(n.raw) >= 2 && (n.raw[0] == '"' || n.raw[0] == '\'') &&
		n.raw[len(n.raw)-1] == n.raw[0] && n.raw[1:len(n.raw)-1] == n.value:
		n.textOffset = start + 1
	}
}
