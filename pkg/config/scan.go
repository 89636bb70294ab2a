package config

import "strings"

// extent finds where values end in the raw text of a document. The parsers
// only report where a key or value starts; the spans in diagnostics need the
// end as well.
type extent struct {
	text string
	// yaml selects YAML quoting ('' escapes a single quote) and comment rules
	// (a # only starts a comment after whitespace).
	yaml bool
}

// end returns the offset just past the value starting at start. flow reports
// whether the value sits inside a [...] or {...} collection, where , ] and }
// end a bare value.
func (x extent) end(start int, flow bool) int {
	t := x.text
	if start >= len(t) {
		return len(t)
	}
	switch {
	case strings.HasPrefix(t[start:], `"""`):
		return x.closeTriple(start, `"""`, true)
	case strings.HasPrefix(t[start:], `'''`) && !x.yaml:
		return x.closeTriple(start, `'''`, false)
	case t[start] == '"':
		return x.closeQuote(start, '"')
	case t[start] == '\'':
		return x.closeQuote(start, '\'')
	case t[start] == '[':
		return x.closeBracket(start, '[', ']')
	case t[start] == '{':
		return x.closeBracket(start, '{', '}')
	}
	return x.bare(start, flow)
}

func (x extent) closeTriple(start int, delim string, escapes bool) int {
	t := x.text
	for i := start + len(delim); i < len(t); i++ {
		if escapes && t[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(t[i:], delim) {
			end := i + len(delim)
			// Up to two quotes may close against the delimiter: """a"""".
			for k := 0; k < 2 && end < len(t) && t[end] == delim[0]; k++ {
				end++
			}
			return end
		}
	}
	return len(t)
}

func (x extent) closeQuote(start int, q byte) int {
	t := x.text
	for i := start + 1; i < len(t); i++ {
		switch c := t[i]; {
		case c == '\\' && q == '"':
			i++
		case c == q:
			if q == '\'' && x.yaml && i+1 < len(t) && t[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		case c == '\n' && !x.yaml:
			return i
		}
	}
	return len(t)
}

func (x extent) closeBracket(start int, open, close byte) int {
	t := x.text
	depth := 0
	for i := start; i < len(t); i++ {
		switch c := t[i]; c {
		case '"', '\'':
			i = x.end(i, true) - 1
		case '#':
			if x.comment(i) {
				i = x.lineEnd(i) - 1
			}
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(t)
}

func (x extent) bare(start int, flow bool) int {
	t := x.text
	end := start
	for i := start; i < len(t); i++ {
		c := t[i]
		if c == '\n' || c == '\r' {
			break
		}
		if c == '#' && x.comment(i) {
			break
		}
		if flow && (c == ',' || c == ']' || c == '}') {
			break
		}
		end = i + 1
	}
	for end > start && (t[end-1] == ' ' || t[end-1] == '\t') {
		end--
	}
	return end
}

func (x extent) comment(i int) bool {
	if !x.yaml {
		return true
	}
	return i == 0 || x.text[i-1] == ' ' || x.text[i-1] == '\t' || x.text[i-1] == '\n'
}

func (x extent) lineEnd(i int) int {
	if n := strings.IndexByte(x.text[i:], '\n'); n >= 0 {
		return i + n
	}
	return len(x.text)
}

// skip moves past whitespace, newlines, commas and comments. It is used
// between the elements of a collection.
func (x extent) skip(i int) int {
	t := x.text
	for i < len(t) {
		switch c := t[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			i++
		case c == '#' && x.comment(i):
			i = x.lineEnd(i)
		default:
			return i
		}
	}
	return i
}

// elements returns the [start, end) offsets of the elements of the
// collection that opens at start.
func (x extent) elements(start int) [][2]int {
	t := x.text
	if start >= len(t) || (t[start] != '[' && t[start] != '{') {
		return nil
	}
	closer := byte(']')
	if t[start] == '{' {
		closer = '}'
	}
	var out [][2]int
	i := x.skip(start + 1)
	for i < len(t) && t[i] != closer {
		end := x.end(i, true)
		if end <= i {
			break
		}
		out = append(out, [2]int{i, end})
		i = x.skip(end)
	}
	return out
}

// field is one key = value pair of an inline table.
type field struct {
	key                  string
	keyStart, keyEnd     int
	valueStart, valueEnd int
}

// inlineTable lexes the key = value pairs of the TOML inline table that
// opens at start.
func (x extent) inlineTable(start int) []field {
	t := x.text
	if start >= len(t) || t[start] != '{' {
		return nil
	}
	var out []field
	i := x.skip(start + 1)
	for i < len(t) && t[i] != '}' {
		f := field{keyStart: i}
		if t[i] == '"' || t[i] == '\'' {
			f.keyEnd = x.closeQuote(i, t[i])
			f.key = strings.Trim(t[i:f.keyEnd], `"'`)
		} else {
			j := i
			for j < len(t) && isBareKey(t[j]) {
				j++
			}
			f.keyEnd = j
			f.key = t[i:j]
		}
		if f.keyEnd <= i {
			break
		}
		j := f.keyEnd
		for j < len(t) && (t[j] == ' ' || t[j] == '\t') {
			j++
		}
		if j >= len(t) || t[j] != '=' {
			break
		}
		j++
		for j < len(t) && (t[j] == ' ' || t[j] == '\t') {
			j++
		}
		f.valueStart = j
		f.valueEnd = x.end(j, true)
		out = append(out, f)
		i = x.skip(f.valueEnd)
	}
	return out
}

// assignment returns the offset of the value of the key = value line whose
// key starts at keyStart, or -1.
func (x extent) assignment(keyStart int) int {
	t := x.text
	i := keyStart
	if i < len(t) && (t[i] == '"' || t[i] == '\'') {
		i = x.closeQuote(i, t[i])
	} else {
		for i < len(t) && (isBareKey(t[i]) || t[i] == '.') {
			i++
		}
	}
	for i < len(t) && (t[i] == ' ' || t[i] == '\t') {
		i++
	}
	if i >= len(t) || t[i] != '=' {
		return -1
	}
	i++
	for i < len(t) && (t[i] == ' ' || t[i] == '\t') {
		i++
	}
	return i
}

func isBareKey(c byte) bool {
	return c == '_' || c == '-' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
