package config

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bcomnes/bumpversion/pkg/diag"
	toml "github.com/pelletier/go-toml"
)

// tomlParseError matches the "(line, col): message" errors of go-toml.
var tomlParseError = regexp.MustCompile(`^\((\d+), (\d+)\): (.*)$`)

// readTOML parses data and returns the tree under table, a dotted path such
// as "tool.bumpversion", or the document root when table is empty.
func readTOML(idx *diag.LineIndex, data []byte, table string, diags *diag.List) (*node, bool) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		span := idx.Span(0, 0)
		msg := err.Error()
		if m := tomlParseError.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			col, _ := strconv.Atoi(m[2])
			span = idx.Span(idx.Offset(line, col), 1)
			msg = m[3]
		}
		diags.Add(diag.Errorf(span, "invalid TOML: %s", msg))
		return nil, false
	}

	c := &tomlConverter{idx: idx, x: extent{text: idx.Text()}}
	if table == "" {
		return c.tree(tree, idx.Span(0, 0), nil), true
	}
	path := strings.Split(table, ".")
	sub, ok := tree.GetPath(path).(*toml.Tree)
	if !ok {
		diags.Add(diag.Errorf(idx.Span(0, 0), "no [%s] table", table))
		return nil, false
	}
	return c.tree(sub, c.headerSpan(tree.GetPositionPath(path)), nil), true
}

type tomlConverter struct {
	idx *diag.LineIndex
	x   extent
}

func (c *tomlConverter) offset(pos toml.Position) int {
	if pos.Invalid() {
		return -1
	}
	return c.idx.Offset(pos.Line, pos.Col)
}

// headerSpan covers a [table] or [[table]] header line.
func (c *tomlConverter) headerSpan(pos toml.Position) diag.Span {
	off := c.offset(pos)
	if off < 0 {
		return diag.Span{Source: c.idx.Name()}
	}
	return c.idx.Span(off, c.x.lineEnd(off)-off)
}

type located struct {
	key        string
	keyStart   int
	keyEnd     int
	valueStart int
	valueEnd   int
}

// tree converts t. fields carries the positions lexed from an inline table,
// whose keys go-toml does not locate.
func (c *tomlConverter) tree(t *toml.Tree, span diag.Span, fields []field) *node {
	n := &node{kind: mapNode, span: span}
	inline := make(map[string]field, len(fields))
	for _, f := range fields {
		inline[f.key] = f
	}

	var keys []located
	for _, key := range t.Keys() {
		loc := located{key: key, keyStart: -1, valueStart: -1}
		if f, ok := inline[key]; ok {
			loc = located{key: key, keyStart: f.keyStart, keyEnd: f.keyEnd, valueStart: f.valueStart, valueEnd: f.valueEnd}
		} else if off := c.locate(t, key, span); off >= 0 {
			loc.keyStart = off
			loc.keyEnd = off + c.keyLength(off)
			loc.valueStart = c.x.assignment(off)
		}
		keys = append(keys, loc)
	}
	// Keys come back in map order; the document order is what users expect
	// in diagnostics. Unlocated keys go last.
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i].keyStart, keys[j].keyStart
		if a < 0 || b < 0 {
			return b < 0 && a >= 0
		}
		if a == b {
			return keys[i].key < keys[j].key
		}
		return a < b
	})

	for _, loc := range keys {
		e := entry{key: loc.key, keySpan: span}
		if loc.keyStart >= 0 {
			e.keySpan = c.idx.Span(loc.keyStart, loc.keyEnd-loc.keyStart)
		}
		e.value = c.value(t.GetPath([]string{loc.key}), loc, e.keySpan)
		n.entries = append(n.entries, e)
	}
	return n
}

// locate returns the offset of key inside the table t, whose header is at
// span. Arrays of inline tables carry no positions in go-toml, so those keys
// are searched for in the text following the header.
func (c *tomlConverter) locate(t *toml.Tree, key string, span diag.Span) int {
	if off := c.offset(t.GetPositionPath([]string{key})); off >= 0 {
		return off
	}
	re, err := regexp.Compile(`(?m)^[ \t]*("` + regexp.QuoteMeta(key) + `"|` + regexp.QuoteMeta(key) + `)[ \t]*=`)
	if err != nil {
		return -1
	}
	from := span.Offset
	if from > len(c.x.text) {
		return -1
	}
	m := re.FindStringSubmatchIndex(c.x.text[from:])
	if m == nil {
		return -1
	}
	return from + m[2]
}

func (c *tomlConverter) keyLength(off int) int {
	t := c.x.text
	if off < len(t) && t[off] == '[' {
		return c.x.lineEnd(off) - off
	}
	if off < len(t) && (t[off] == '"' || t[off] == '\'') {
		return c.x.closeQuote(off, t[off]) - off
	}
	i := off
	for i < len(t) && isBareKey(t[i]) {
		i++
	}
	return i - off
}

func (c *tomlConverter) value(v any, loc located, keySpan diag.Span) *node {
	start, end := loc.valueStart, loc.valueEnd
	if start >= 0 && end <= start {
		end = c.x.end(start, false)
	}
	span := keySpan
	if start >= 0 {
		span = c.idx.Span(start, end-start)
	}

	switch v := v.(type) {
	case *toml.Tree:
		if start >= 0 && start < len(c.x.text) && c.x.text[start] == '{' {
			return c.tree(v, span, c.x.inlineTable(start))
		}
		return c.tree(v, c.headerSpan(v.Position()), nil)
	case []*toml.Tree:
		n := &node{kind: listNode, span: span}
		var elems [][2]int
		if start >= 0 {
			elems = c.x.elements(start)
		}
		for i, sub := range v {
			if i < len(elems) {
				el := elems[i]
				n.items = append(n.items, c.tree(sub, c.idx.Span(el[0], el[1]-el[0]), c.x.inlineTable(el[0])))
				continue
			}
			// [[table]] headers.
			n.items = append(n.items, c.tree(sub, c.headerSpan(sub.Position()), nil))
		}
		if len(elems) == 0 && len(v) > 0 {
			n.span = n.items[0].span
		}
		return n
	case []any:
		n := &node{kind: listNode, span: span}
		var elems [][2]int
		if start >= 0 {
			elems = c.x.elements(start)
		}
		for i, item := range v {
			loc := located{valueStart: -1}
			if i < len(elems) {
				loc.valueStart, loc.valueEnd = elems[i][0], elems[i][1]
			}
			n.items = append(n.items, c.value(item, loc, span))
		}
		return n
	}

	n := &node{kind: scalarNode, span: span, textOffset: -1}
	switch v := v.(type) {
	case string:
		n.typ, n.value = stringScalar, v
		if start >= 0 {
			n.setText(c.x.text, start, end)
		}
	case int64:
		n.typ, n.i, n.value = intScalar, v, strconv.FormatInt(v, 10)
	case uint64:
		n.typ, n.i, n.value = intScalar, int64(v), strconv.FormatUint(v, 10)
	case float64:
		n.typ, n.f, n.value = floatScalar, v, strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		n.typ, n.b, n.value = boolScalar, v, strconv.FormatBool(v)
	default:
		n.typ, n.value = otherScalar, fmt.Sprint(v)
	}
	return n
}
