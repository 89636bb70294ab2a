package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bcomnes/bumpversion/pkg/diag"
	"github.com/bcomnes/bumpversion/pkg/replace"
	"github.com/bcomnes/bumpversion/pkg/template"
	"github.com/bcomnes/bumpversion/pkg/version"
)

var (
	globalKeys = []string{
		"current_version", "template", "parts", "match", "ignore_case", "search", "replace",
		"regex", "commit", "tag", "message", "tag_name", "tag_message", "allow_dirty",
		"vcs_timeout", "vcs_retries", "go_module", "files",
	}
	ruleKeys = []string{
		"filename", "glob", "exclude", "template", "search", "replace", "regex", "match",
		"ignore_case", "ignore_missing_file", "ignore_missing_version", "include_bumps", "exclude_bumps",
	}
	partKeys = []string{"name", "kind", "reset", "first_value", "values", "independent", "wrap"}
)

// decoder turns a node tree into a Config, reporting every problem it finds
// instead of stopping at the first one.
type decoder struct {
	cfg   *Config
	idx   *diag.LineIndex
	diags *diag.List

	// schemeOK is false when parts failed to decode; placeholder checks
	// against the scheme are skipped then to avoid follow-up noise.
	schemeOK bool
}

func (d *decoder) errorf(span diag.Span, format string, args ...any) {
	d.diags.Add(diag.Errorf(span, format, args...))
}

func (d *decoder) warnf(span diag.Span, format string, args ...any) {
	d.diags.Add(diag.Warnf(span, format, args...))
}

// fields indexes the entries of a map node, warning about unknown keys.
func (d *decoder) fields(n *node, known []string, where string) map[string]entry {
	out := make(map[string]entry, len(n.entries))
	for _, e := range n.entries {
		if !slices.Contains(known, e.key) {
			d.warnf(e.keySpan, "unknown key %q%s", e.key, where)
			continue
		}
		out[e.key] = e
	}
	return out
}

func (d *decoder) decode(root *node) {
	cfg := d.cfg
	if root.kind != mapNode {
		d.errorf(root.span, "configuration must be a table, found %s", root.describe())
		return
	}
	keys := d.fields(root, globalKeys, "")

	d.schemeOK = true
	if e, ok := keys["parts"]; ok {
		d.parts(e)
	}
	context := ContextNames(cfg.Scheme)

	templateOK := true
	if e, ok := keys["template"]; ok {
		if v, ok := d.versionTemplate(e); ok {
			cfg.Template = v
		} else {
			templateOK = false
		}
	}
	d.contextTemplate(keys, "search", context, &cfg.Search)
	d.contextTemplate(keys, "replace", context, &cfg.Replace)
	d.contextTemplate(keys, "message", context, &cfg.Message)
	d.contextTemplate(keys, "tag_name", context, &cfg.TagName)
	d.contextTemplate(keys, "tag_message", context, &cfg.TagMessage)

	d.flag(keys, "regex", &cfg.Regex)
	d.flag(keys, "ignore_case", &cfg.IgnoreCase)
	d.flag(keys, "commit", &cfg.Commit)
	d.flag(keys, "tag", &cfg.Tag)
	d.flag(keys, "allow_dirty", &cfg.AllowDirty)
	d.flag(keys, "go_module", &cfg.GoModule)
	if e, ok := keys["match"]; ok {
		if v, ok := d.policy(e); ok {
			cfg.Match = v
		}
	}
	if e, ok := keys["vcs_timeout"]; ok {
		d.timeout(e)
	}
	if e, ok := keys["vcs_retries"]; ok {
		if v, ok := d.integer(e); ok {
			if v.V < 0 || v.V > MaxVCSRetries {
				d.errorf(v.Span, "vcs_retries must be between 0 and %d, found %d", MaxVCSRetries, v.V)
			} else {
				cfg.VCSRetries = Value[int]{V: int(v.V), Span: v.Span, Set: true}
			}
		}
	}
	if cfg.Regex.V && cfg.Search.Set {
		d.checkRegex(cfg.Search, cfg.IgnoreCase.V)
	}

	e, ok := keys["current_version"]
	if !ok {
		d.errorf(root.span, "missing required key %q", "current_version")
	} else if v, ok := d.str(e); ok {
		cfg.CurrentVersion = v
		cfg.currentRaw = e.value.raw
		cfg.currentNode = e.value
		if templateOK && d.schemeOK {
			d.current(e.value)
		}
	}

	if e, ok := keys["files"]; ok {
		d.files(e, context)
	}
}

func (d *decoder) current(n *node) {
	cfg := d.cfg
	v, err := cfg.Scheme.Parse(cfg.Template.V, n.value)
	if err == nil {
		cfg.Current = v
		return
	}
	span := n.span
	var pm *version.ParseMismatchError
	if errors.As(err, &pm) {
		span = n.sub(d.idx, pm.Offset, max(len(pm.Actual), 1))
	}
	d.diags.Add(diag.Diagnostic{
		Severity: diag.Error,
		Message:  fmt.Sprintf("current_version: %v", err),
		Spans:    []diag.Span{span},
		Err:      err,
	})
}

// Scalars.

func (d *decoder) mismatch(e entry, want string) {
	d.errorf(e.value.span, "%s: expected %s, found %s", e.key, want, e.value.describe())
}

func (d *decoder) str(e entry) (Value[string], bool) {
	n := e.value
	if n.kind != scalarNode || n.typ != stringScalar {
		d.mismatch(e, "a string")
		return Value[string]{}, false
	}
	return Value[string]{V: n.value, Span: n.span, Set: true}, true
}

func (d *decoder) boolean(e entry) (Value[bool], bool) {
	n := e.value
	if n.kind != scalarNode || n.typ != boolScalar {
		d.mismatch(e, "a boolean")
		return Value[bool]{}, false
	}
	return Value[bool]{V: n.b, Span: n.span, Set: true}, true
}

func (d *decoder) flag(keys map[string]entry, key string, dst *Value[bool]) {
	if e, ok := keys[key]; ok {
		if v, ok := d.boolean(e); ok {
			*dst = v
		}
	}
}

func (d *decoder) integer(e entry) (Value[int64], bool) {
	n := e.value
	if n.kind != scalarNode || n.typ != intScalar {
		d.mismatch(e, "an integer")
		return Value[int64]{}, false
	}
	return Value[int64]{V: n.i, Span: n.span, Set: true}, true
}

func (d *decoder) timeout(e entry) {
	n := e.value
	var secs float64
	switch {
	case n.kind == scalarNode && n.typ == intScalar:
		secs = float64(n.i)
	case n.kind == scalarNode && n.typ == floatScalar:
		secs = n.f
	default:
		d.mismatch(e, "a number of seconds")
		return
	}
	if secs <= 0 {
		d.errorf(n.span, "vcs_timeout must be positive, found %s", n.value)
		return
	}
	d.cfg.VCSTimeout = Value[time.Duration]{V: time.Duration(secs * float64(time.Second)), Span: n.span, Set: true}
}

// list accepts a list of strings, or a single string as a list of one.
func (d *decoder) list(e entry) (Value[[]string], bool) {
	n := e.value
	if n.kind == scalarNode && n.typ == stringScalar {
		return Value[[]string]{V: []string{n.value}, Span: n.span, Set: true}, true
	}
	if n.kind != listNode {
		d.mismatch(e, "a list of strings")
		return Value[[]string]{}, false
	}
	out := Value[[]string]{Span: n.span, Set: true}
	ok := true
	for _, item := range n.items {
		if item.kind != scalarNode || item.typ != stringScalar {
			d.errorf(item.span, "%s: expected a string, found %s", e.key, item.describe())
			ok = false
			continue
		}
		out.V = append(out.V, item.value)
	}
	return out, ok
}

func (d *decoder) policy(e entry) (Value[replace.Policy], bool) {
	s, ok := d.str(e)
	if !ok {
		return Value[replace.Policy]{}, false
	}
	p, err := replace.ParsePolicy(s.V)
	if err != nil {
		d.errorf(s.Span, "%s: %v", e.key, err)
		return Value[replace.Policy]{}, false
	}
	return Value[replace.Policy]{V: p, Span: s.Span, Set: true}, true
}

// Templates.

// template parses a string value, re-basing syntax errors onto the
// configuration text.
func (d *decoder) template(e entry) (Value[*template.Template], bool) {
	s, ok := d.str(e)
	if !ok {
		return Value[*template.Template]{}, false
	}
	t, err := template.Parse(s.V)
	if err != nil {
		var errs template.SyntaxErrors
		if !errors.As(err, &errs) {
			d.errorf(s.Span, "%s: %v", e.key, err)
			return Value[*template.Template]{}, false
		}
		for _, se := range errs {
			d.diags.Add(diag.Diagnostic{
				Severity: diag.Error,
				Message:  fmt.Sprintf("%s: %s", e.key, se.Message),
				Spans:    []diag.Span{e.value.sub(d.idx, se.Offset, se.Length)},
				Err:      se,
			})
		}
		return Value[*template.Template]{}, false
	}
	return Value[*template.Template]{V: t, Span: s.Span, Set: true}, true
}

// versionTemplate parses a template whose placeholders are components.
func (d *decoder) versionTemplate(e entry) (Value[*template.Template], bool) {
	v, ok := d.template(e)
	if !ok {
		return v, false
	}
	if !d.schemeOK {
		return v, true
	}
	known := d.cfg.Scheme.Names()
	for _, tok := range v.V.Tokens() {
		if tok.Kind != template.Placeholder || slices.Contains(known, tok.Text) {
			continue
		}
		d.diags.Add(diag.Diagnostic{
			Severity: diag.Error,
			Message:  fmt.Sprintf("%s: unknown version component {%s} (known: %s)", e.key, tok.Text, strings.Join(known, ", ")),
			Spans:    []diag.Span{e.value.sub(d.idx, tok.Offset, tok.Length)},
			Err:      &version.UnknownComponentError{Name: tok.Text, Known: known, Offset: tok.Offset, Length: tok.Length},
		})
		ok = false
	}
	return v, ok
}

func (d *decoder) contextTemplate(keys map[string]entry, key string, context []string, dst *Value[*template.Template]) bool {
	e, ok := keys[key]
	if !ok {
		return true
	}
	v, ok := d.template(e)
	if !ok {
		return false
	}
	if d.schemeOK {
		for _, tok := range v.V.Tokens() {
			if tok.Kind != template.Placeholder || slices.Contains(context, tok.Text) {
				continue
			}
			d.errorf(e.value.sub(d.idx, tok.Offset, tok.Length),
				"%s: unknown placeholder {%s} (available: %s)", key, tok.Text, strings.Join(context, ", "))
			ok = false
		}
	}
	if ok {
		*dst = v
	}
	return ok
}

// checkRegex compiles search the way a bump would, with every placeholder
// standing for a plain word.
func (d *decoder) checkRegex(search Value[*template.Template], ignoreCase bool) {
	expr, err := search.V.ExecuteEscaped(func(string) (string, bool) { return "0", true },
		func(s string) string { return s }, regexp.QuoteMeta)
	if err != nil {
		return
	}
	if _, err := replace.NewCache().Compile(replace.Pattern{Expr: expr, Regex: true, IgnoreCase: ignoreCase}); err != nil {
		d.errorf(search.Span, "search is not a valid regular expression: %v", err)
	}
}

// Parts.

func (d *decoder) parts(e entry) {
	n := e.value
	d.cfg.PartsSpan = n.span
	var components []version.Component
	ok := true
	switch n.kind {
	case listNode:
		for _, item := range n.items {
			if item.kind != mapNode {
				d.errorf(item.span, "parts: expected a table, found %s", item.describe())
				ok = false
				continue
			}
			c, cok := d.part(item, "")
			ok = ok && cok
			components = append(components, c)
		}
	case mapNode:
		// [parts.<name>] tables, in declaration order.
		for _, pe := range n.entries {
			if pe.value.kind != mapNode {
				d.errorf(pe.value.span, "parts.%s: expected a table, found %s", pe.key, pe.value.describe())
				ok = false
				continue
			}
			c, cok := d.part(pe.value, pe.key)
			ok = ok && cok
			components = append(components, c)
		}
	default:
		d.mismatch(e, "a list of parts")
		ok = false
	}
	if !ok {
		d.schemeOK = false
		return
	}
	s, err := version.NewScheme(components...)
	if err != nil {
		d.errorf(n.span, "parts: %v", err)
		d.schemeOK = false
		return
	}
	d.cfg.Scheme = s
}

func (d *decoder) part(n *node, name string) (version.Component, bool) {
	keys := d.fields(n, partKeys, " in part")
	c := version.Component{Name: name, Kind: version.Counter}
	ok := true
	if e, found := keys["name"]; found {
		if v, vok := d.str(e); vok {
			c.Name = v.V
		} else {
			ok = false
		}
	}
	if c.Name == "" {
		d.errorf(n.span, "part has no name")
		ok = false
	}
	if e, found := keys["values"]; found {
		if e.value.kind != listNode {
			d.mismatch(e, "a list of labels")
			ok = false
		} else {
			for _, item := range e.value.items {
				if item.kind != scalarNode {
					d.errorf(item.span, "values: expected a label, found %s", item.describe())
					ok = false
					continue
				}
				c.Values = append(c.Values, item.value)
			}
			c.Kind = version.Enum
		}
	}
	if e, found := keys["kind"]; found {
		if v, vok := d.str(e); vok {
			k, err := version.ParseKind(v.V)
			if err != nil {
				d.errorf(v.Span, "kind: %v", err)
				ok = false
			} else {
				c.Kind = k
			}
		} else {
			ok = false
		}
	}
	for _, key := range []string{"reset", "first_value"} {
		e, found := keys[key]
		if !found {
			continue
		}
		if e.value.kind != scalarNode || (e.value.typ != stringScalar && e.value.typ != intScalar) {
			d.mismatch(e, "a string or integer")
			ok = false
			continue
		}
		c.Reset = e.value.value
	}
	if e, found := keys["independent"]; found {
		v, vok := d.boolean(e)
		c.Independent, ok = v.V, ok && vok
	}
	if e, found := keys["wrap"]; found {
		v, vok := d.boolean(e)
		c.Wrap, ok = v.V, ok && vok
	}
	return c, ok
}

// Files.

func (d *decoder) files(e entry, context []string) {
	n := e.value
	if n.kind != listNode {
		d.mismatch(e, "a list of file rules")
		return
	}
	type seen struct {
		index  int
		search string
	}
	targets := make(map[string]seen)
	for _, item := range n.items {
		if item.kind != mapNode {
			d.errorf(item.span, "files: expected a table, found %s", item.describe())
			continue
		}
		r, ok := d.rule(item, context)
		if !ok {
			continue
		}
		d.cfg.Files = append(d.cfg.Files, r)

		key := "filename:" + filepath.Clean(r.Filename.V)
		if r.Glob.Set {
			key = "glob:" + r.Glob.V
		}
		search := r.Effective(d.cfg).Search.Source()
		first, dup := targets[key]
		if !dup {
			targets[key] = seen{index: len(d.cfg.Files) - 1, search: search}
			continue
		}
		prev := d.cfg.Files[first.index].Span
		if first.search == search {
			d.diags.Add(diag.Diagnostic{
				Severity: diag.Error,
				Message:  fmt.Sprintf("duplicate rule for %s with the same search %q", r.Target(), search),
				Spans:    []diag.Span{r.Span, prev},
			})
			continue
		}
		d.diags.Add(diag.Diagnostic{
			Severity: diag.Warning,
			Message:  fmt.Sprintf("%s is also updated by an earlier rule with a different search", r.Target()),
			Spans:    []diag.Span{r.Span, prev},
		})
	}
}

func (d *decoder) rule(n *node, context []string) (Rule, bool) {
	keys := d.fields(n, ruleKeys, " in file rule")
	r := Rule{Span: n.span}
	ok := true
	track := func(good bool) {
		ok = ok && good
	}

	if e, found := keys["filename"]; found {
		v, vok := d.str(e)
		r.Filename = v
		track(vok)
	}
	if e, found := keys["glob"]; found {
		v, vok := d.str(e)
		if vok {
			if !doublestar.ValidatePattern(filepath.ToSlash(v.V)) {
				d.errorf(v.Span, "glob: %v", doublestar.ErrBadPattern)
				vok = false
			}
		}
		r.Glob = v
		track(vok)
	}
	switch {
	case r.Filename.Set && r.Glob.Set:
		d.errorf(n.span, "file rule sets both filename and glob")
		track(false)
	case !r.Filename.Set && !r.Glob.Set && ok:
		d.errorf(n.span, "file rule needs a filename or a glob")
		track(false)
	}
	if e, found := keys["exclude"]; found {
		v, vok := d.list(e)
		for _, pattern := range v.V {
			r.Exclude = append(r.Exclude, Value[string]{V: pattern, Span: v.Span, Set: true})
		}
		track(vok)
	}

	if e, found := keys["template"]; found {
		v, vok := d.versionTemplate(e)
		r.Template = v
		track(vok)
	}
	track(d.contextTemplate(keys, "search", context, &r.Search))
	track(d.contextTemplate(keys, "replace", context, &r.Replace))
	d.flag(keys, "regex", &r.Regex)
	d.flag(keys, "ignore_case", &r.IgnoreCase)
	d.flag(keys, "ignore_missing_file", &r.IgnoreMissingFile)
	if e, found := keys["match"]; found {
		v, vok := d.policy(e)
		r.Match = v
		track(vok)
	}
	if e, found := keys["ignore_missing_version"]; found {
		if v, vok := d.boolean(e); vok && v.V && !r.Match.Set {
			r.Match = Value[replace.Policy]{V: replace.AllowMany, Span: v.Span, Set: true}
		}
	}
	for _, key := range []string{"include_bumps", "exclude_bumps"} {
		e, found := keys[key]
		if !found {
			continue
		}
		v, vok := d.list(e)
		if vok && d.schemeOK {
			for _, name := range v.V {
				if _, known := d.cfg.Scheme.Lookup(name); !known {
					d.errorf(v.Span, "%s: unknown version component %q (known: %s)",
						key, name, strings.Join(d.cfg.Scheme.Names(), ", "))
					vok = false
				}
			}
		}
		if key == "include_bumps" {
			r.IncludeBumps = v
		} else {
			r.ExcludeBumps = v
		}
		track(vok)
	}

	if ok && (r.Regex.Set || r.Search.Set || r.IgnoreCase.Set) {
		eff := r.Effective(d.cfg)
		if eff.Regex {
			d.checkRegex(pick(r.Search, d.cfg.Search), eff.IgnoreCase)
		}
	}
	return r, ok
}
