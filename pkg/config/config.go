// Package config loads the bumpversion configuration from TOML or YAML.
//
// Every value consumed from a configuration file keeps the span it was read
// from, so that problems found while loading, or later while bumping, can be
// shown against the exact text the user wrote. Loading never stops at the
// first problem: every diagnostic is collected into a diag.List.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcomnes/bumpversion/pkg/diag"
	"github.com/bcomnes/bumpversion/pkg/replace"
	"github.com/bcomnes/bumpversion/pkg/template"
	"github.com/bcomnes/bumpversion/pkg/version"
	"github.com/spf13/afero"
)

// Format of a configuration source.
type Format int

const (
	TOML Format = iota
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "toml"
}

// FormatOf guesses the format from a file name.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return TOML
}

// Defaults.
var (
	DefaultTemplate   = template.MustParse("{major}.{minor}.{patch}")
	DefaultSearch     = template.MustParse("{current_version}")
	DefaultReplace    = template.MustParse("{new_version}")
	DefaultMessage    = template.MustParse("Bump version: {current_version} → {new_version}")
	DefaultTagName    = template.MustParse("v{new_version}")
	DefaultTagMessage = template.MustParse("Bump version: {current_version} → {new_version}")
)

const (
	DefaultVCSTimeout = 30 * time.Second
	// MaxVCSRetries caps the opt-in retries of git commands.
	MaxVCSRetries = 3
)

// Value is a configured value and where it was read from. Set is false
// when the key was absent and V holds the default.
type Value[T any] struct {
	V    T
	Span diag.Span
	Set  bool
}

func def[T any](v T) Value[T] {
	return Value[T]{V: v}
}

// Rule selects the files to update and how.
type Rule struct {
	Span diag.Span

	// Exactly one of Filename and Glob is set.
	Filename Value[string]
	Glob     Value[string]
	Exclude  []Value[string]

	Template   Value[*template.Template]
	Search     Value[*template.Template]
	Replace    Value[*template.Template]
	Regex      Value[bool]
	Match      Value[replace.Policy]
	IgnoreCase Value[bool]

	IgnoreMissingFile Value[bool]
	// IncludeBumps limits the rule to bumps of the listed components; empty
	// means every component. ExcludeBumps wins over IncludeBumps.
	IncludeBumps Value[[]string]
	ExcludeBumps Value[[]string]
}

// Target is the configured filename or glob.
func (r *Rule) Target() string {
	if r.Glob.Set {
		return r.Glob.V
	}
	return r.Filename.V
}

// Applies reports whether the rule takes part in a bump of component. An
// explicit new version (component "") involves every rule.
func (r *Rule) Applies(component string) bool {
	if component == "" {
		return true
	}
	for _, c := range r.ExcludeBumps.V {
		if c == component {
			return false
		}
	}
	if len(r.IncludeBumps.V) == 0 {
		return true
	}
	for _, c := range r.IncludeBumps.V {
		if c == component {
			return true
		}
	}
	return false
}

// Effective is a rule with every field resolved.
type Effective struct {
	Rule       *Rule
	Template   *template.Template
	Search     *template.Template
	Replace    *template.Template
	Regex      bool
	Match      replace.Policy
	IgnoreCase bool
}

// Effective resolves the rule against the global settings of c. The
// precedence is fixed per field: a value set on the rule, then the global
// value, then the built-in default. Declaration order never matters.
func (r *Rule) Effective(c *Config) Effective {
	return Effective{
		Rule:       r,
		Template:   pick(r.Template, c.Template).V,
		Search:     pick(r.Search, c.Search).V,
		Replace:    pick(r.Replace, c.Replace).V,
		Regex:      pick(r.Regex, c.Regex).V,
		Match:      pick(r.Match, c.Match).V,
		IgnoreCase: pick(r.IgnoreCase, c.IgnoreCase).V,
	}
}

func pick[T any](local, global Value[T]) Value[T] {
	if local.Set {
		return local
	}
	return global
}

// Config is the loaded configuration. It does not change after loading,
// except for SetCurrent once a bump has been applied.
type Config struct {
	// Path of the configuration file; empty for in-memory sources.
	Path   string
	Format Format
	Source *diag.LineIndex

	Scheme    *version.Scheme
	PartsSpan diag.Span

	CurrentVersion Value[string]
	// Current is CurrentVersion parsed with Template.
	Current version.Version

	Template   Value[*template.Template]
	Search     Value[*template.Template]
	Replace    Value[*template.Template]
	Regex      Value[bool]
	Match      Value[replace.Policy]
	IgnoreCase Value[bool]

	Commit     Value[bool]
	Tag        Value[bool]
	Message    Value[*template.Template]
	TagName    Value[*template.Template]
	TagMessage Value[*template.Template]
	AllowDirty Value[bool]
	VCSTimeout Value[time.Duration]
	VCSRetries Value[int]
	GoModule   Value[bool]

	Files []Rule

	// currentRaw is the text of current_version as written in the source,
	// quotes included, and currentNode the scalar it came from.
	currentRaw  string
	currentNode *node
}

func newConfig(path string, format Format, src *diag.LineIndex) *Config {
	return &Config{
		Path:       path,
		Format:     format,
		Source:     src,
		Scheme:     version.DefaultScheme(),
		Template:   def(DefaultTemplate),
		Search:     def(DefaultSearch),
		Replace:    def(DefaultReplace),
		Match:      def(replace.DefaultPolicy),
		Message:    def(DefaultMessage),
		TagName:    def(DefaultTagName),
		TagMessage: def(DefaultTagMessage),
		VCSTimeout: def(DefaultVCSTimeout),
	}
}

// SetCurrent records v as the current version. The orchestrator calls it
// once the new version has been written to every file.
func (c *Config) SetCurrent(v version.Version) error {
	text, err := v.Render(c.Template.V)
	if err != nil {
		return err
	}
	c.Current = v
	c.CurrentVersion.V = text
	return nil
}

// ErrStale is returned by RewriteCurrent when the configuration file no
// longer holds current_version where it was loaded from.
var ErrStale = errors.New("configuration file changed since it was loaded")

// RewriteCurrent returns content with the current_version value replaced by
// text. content must be the configuration file as it was loaded. Quoting
// style and everything around the value is kept.
func (c *Config) RewriteCurrent(content []byte, text string) ([]byte, error) {
	if !c.CurrentVersion.Set || c.currentNode == nil {
		return nil, fmt.Errorf("current_version has no source location")
	}
	span := c.CurrentVersion.Span
	if span.End() > len(content) || string(content[span.Offset:span.End()]) != c.currentRaw {
		return nil, ErrStale
	}
	n := c.currentNode
	start, end := span.Offset, span.End()
	replacement := text
	if n.textOffset >= 0 {
		start = n.textOffset
		end = n.textOffset + len(n.value)
	} else {
		replacement = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text) + `"`
	}
	out := make([]byte, 0, len(content)-(end-start)+len(replacement))
	out = append(out, content[:start]...)
	out = append(out, replacement...)
	out = append(out, content[end:]...)
	return out, nil
}

// ContextNames lists the placeholders available to search, replace,
// message and tag templates for a scheme.
func ContextNames(s *version.Scheme) []string {
	names := []string{"current_version", "new_version"}
	for _, n := range s.Names() {
		names = append(names, "current_"+n, "new_"+n)
	}
	return names
}

// NewContext builds the values for the names of ContextNames.
func NewContext(current, next version.Version, currentText, nextText string) map[string]string {
	ctx := map[string]string{
		"current_version": currentText,
		"new_version":     nextText,
	}
	for _, p := range current.Values() {
		ctx["current_"+p.Name] = p.Value
	}
	for _, p := range next.Values() {
		ctx["new_"+p.Name] = p.Value
	}
	return ctx
}

// Candidates are the file names Find looks for, in order.
var Candidates = []string{".bumpversion.toml", "pyproject.toml", ".bumpversion.yaml", ".bumpversion.yml"}

// pyprojectTable is the table holding the configuration in pyproject.toml.
const pyprojectTable = "tool.bumpversion"

// ErrNotFound is returned by Find when no configuration file exists.
var ErrNotFound = errors.New("no configuration file found")

// Find returns the first configuration file in dir. A pyproject.toml only
// counts when it has a [tool.bumpversion] table.
func Find(fs afero.Fs, dir string) (string, error) {
	for _, name := range Candidates {
		path := filepath.Join(dir, name)
		ok, err := afero.Exists(fs, path)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if name == "pyproject.toml" {
			data, err := afero.ReadFile(fs, path)
			if err != nil {
				return "", err
			}
			if !strings.Contains(string(data), "["+pyprojectTable) {
				continue
			}
		}
		return path, nil
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNotFound, dir, strings.Join(Candidates, ", "))
}

// Load reads and decodes the configuration file at path. The returned list
// holds every diagnostic, warnings included. The error is non-nil when the
// file cannot be read or when the list has errors, in which case it is the
// list's *diag.ListError and the returned Config must not be used for a bump.
func Load(fs afero.Fs, path string) (*Config, *diag.List, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &diag.List{}, err
	}
	cfg, diags := decodeFile(path, FormatOf(path), filepath.Base(path) == "pyproject.toml", data)
	return cfg, diags, diags.Err()
}

// LoadBytes decodes an in-memory configuration. name is used in spans.
func LoadBytes(name string, format Format, data []byte) (*Config, *diag.List) {
	return decodeFile(name, format, false, data)
}

func decodeFile(name string, format Format, pyproject bool, data []byte) (*Config, *diag.List) {
	diags := &diag.List{}
	idx := diag.NewLineIndex(name, string(data))

	var (
		root *node
		ok   bool
	)
	switch {
	case format == YAML:
		root, ok = readYAML(idx, data, diags)
	case pyproject:
		root, ok = readTOML(idx, data, pyprojectTable, diags)
	default:
		root, ok = readTOML(idx, data, "", diags)
	}
	cfg := newConfig(name, format, idx)
	if !ok {
		return cfg, diags
	}
	d := &decoder{cfg: cfg, idx: idx, diags: diags}
	d.decode(root)
	diags.Sort()
	return cfg, diags
}
