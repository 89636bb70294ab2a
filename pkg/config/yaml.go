package config

import (
	"regexp"
	"strconv"

	"github.com/bcomnes/bumpversion/pkg/diag"
	"gopkg.in/yaml.v3"
)

var yamlLineError = regexp.MustCompile(`line (\d+)`)

func readYAML(idx *diag.LineIndex, data []byte, diags *diag.List) (*node, bool) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		span := idx.Span(0, 0)
		if m := yamlLineError.FindStringSubmatch(err.Error()); m != nil {
			line, _ := strconv.Atoi(m[1])
			off := idx.Offset(line, 1)
			span = idx.Span(off, len(idx.Line(line)))
		}
		diags.Add(diag.Errorf(span, "invalid YAML: %s", err))
		return nil, false
	}
	c := &yamlConverter{idx: idx, x: extent{text: idx.Text(), yaml: true}}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &node{kind: mapNode, span: idx.Span(0, 0)}, true
	}
	return c.convert(doc.Content[0], false), true
}

type yamlConverter struct {
	idx *diag.LineIndex
	x   extent
}

func (c *yamlConverter) span(n *yaml.Node, flow bool) (diag.Span, int, int) {
	start := c.idx.Offset(n.Line, n.Column)
	end := start
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
			end = c.x.lineEnd(start)
		} else {
			end = c.x.end(start, flow)
		}
	case yaml.SequenceNode, yaml.MappingNode:
		if n.Style&yaml.FlowStyle != 0 {
			end = c.x.end(start, true)
		} else {
			end = start + 1
		}
	}
	return c.idx.Span(start, end-start), start, end
}

func (c *yamlConverter) convert(n *yaml.Node, flow bool) *node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return c.convert(n.Alias, flow)
	}
	span, start, end := c.span(n, flow)
	inner := flow || n.Style&yaml.FlowStyle != 0

	switch n.Kind {
	case yaml.MappingNode:
		out := &node{kind: mapNode, span: span}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			keySpan, _, _ := c.span(k, inner)
			out.entries = append(out.entries, entry{key: k.Value, keySpan: keySpan, value: c.convert(v, inner)})
		}
		return out
	case yaml.SequenceNode:
		out := &node{kind: listNode, span: span}
		for _, item := range n.Content {
			out.items = append(out.items, c.convert(item, inner))
		}
		return out
	}

	out := &node{kind: scalarNode, span: span, value: n.Value, textOffset: -1}
	switch n.ShortTag() {
	case "!!str":
		out.typ = stringScalar
		out.setText(c.x.text, start, end)
	case "!!int":
		out.typ = intScalar
		if err := n.Decode(&out.i); err != nil {
			out.typ = otherScalar
		}
	case "!!float":
		out.typ = floatScalar
		if err := n.Decode(&out.f); err != nil {
			out.typ = otherScalar
		}
	case "!!bool":
		out.typ = boolScalar
		if err := n.Decode(&out.b); err != nil {
			out.typ = otherScalar
		}
	case "!!null":
		out.typ = nullScalar
	default:
		out.typ = otherScalar
	}
	return out
}
