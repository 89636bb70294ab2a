package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bcomnes/bumpversion/pkg/diag"
	"github.com/bcomnes/bumpversion/pkg/replace"
	"github.com/bcomnes/bumpversion/pkg/template"
	"github.com/bcomnes/bumpversion/pkg/version"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullTOML = `current_version = "2.0.0-rc"
template = "{major}.{minor}.{patch}-{pre}"
commit = true
tag = true
tag_name = "release-{new_version}"
match = "at-least-one"
vcs_timeout = 5
vcs_retries = 2

[[parts]]
name = "major"

[[parts]]
name = "minor"

[[parts]]
name = "patch"

[[parts]]
name = "pre"
values = ["dev", "rc", "final"]

[[files]]
filename = "setup.py"
search = 'version="{current_version}"'
replace = 'version="{new_version}"'
match = "exactly-one"

[[files]]
glob = "docs/*.md"
exclude = ["docs/CHANGELOG.md"]
template = "{major}.{minor}"
exclude_bumps = ["pre"]
`

const fullYAML = `current_version: "2.0.0-rc"
template: "{major}.{minor}.{patch}-{pre}"
commit: true
tag: true
tag_name: "release-{new_version}"
match: at-least-one
vcs_timeout: 5
vcs_retries: 2
parts:
  - name: major
  - name: minor
  - name: patch
  - name: pre
    values: [dev, rc, final]
files:
  - filename: setup.py
    search: 'version="{current_version}"'
    replace: 'version="{new_version}"'
    match: exactly-one
  - glob: docs/*.md
    exclude: [docs/CHANGELOG.md]
    template: "{major}.{minor}"
    exclude_bumps: [pre]
`

func load(t *testing.T, name string, src string) (*Config, *diag.List) {
	t.Helper()
	return LoadBytes(name, FormatOf(name), []byte(src))
}

func TestLoadFull(t *testing.T) {
	for _, tc := range []struct{ name, src string }{
		{".bumpversion.toml", fullTOML},
		{".bumpversion.yaml", fullYAML},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg, diags := load(t, tc.name, tc.src)
			require.Empty(t, diags.All())

			assert.Equal(t, []string{"major", "minor", "patch", "pre"}, cfg.Scheme.Names())
			pre, ok := cfg.Scheme.Lookup("pre")
			require.True(t, ok)
			assert.Equal(t, version.Enum, pre.Kind)
			assert.Equal(t, "dev", pre.ResetValue())

			assert.Equal(t, "2.0.0-rc", cfg.CurrentVersion.V)
			assert.Equal(t, "major=2, minor=0, patch=0, pre=rc", cfg.Current.String())
			assert.True(t, cfg.Commit.V)
			assert.True(t, cfg.Tag.V)
			assert.False(t, cfg.AllowDirty.Set)
			assert.Equal(t, "release-{new_version}", cfg.TagName.V.Source())
			assert.Equal(t, DefaultMessage, cfg.Message.V)
			assert.Equal(t, replace.AtLeastOne, cfg.Match.V)
			assert.Equal(t, 5*time.Second, cfg.VCSTimeout.V)
			assert.Equal(t, 2, cfg.VCSRetries.V)

			require.Len(t, cfg.Files, 2)
			setup := cfg.Files[0].Effective(cfg)
			assert.Equal(t, "setup.py", cfg.Files[0].Target())
			assert.Equal(t, `version="{current_version}"`, setup.Search.Source())
			assert.Equal(t, replace.ExactlyOne, setup.Match)
			assert.Equal(t, cfg.Template.V, setup.Template)

			docs := cfg.Files[1].Effective(cfg)
			assert.Equal(t, "docs/*.md", cfg.Files[1].Target())
			assert.Equal(t, "{major}.{minor}", docs.Template.Source())
			assert.Equal(t, replace.AtLeastOne, docs.Match, "global match applies when the rule sets none")
			assert.Equal(t, DefaultSearch, docs.Search)
			require.Len(t, cfg.Files[1].Exclude, 1)
			assert.Equal(t, "docs/CHANGELOG.md", cfg.Files[1].Exclude[0].V)
			assert.False(t, cfg.Files[1].Applies("pre"))
			assert.True(t, cfg.Files[1].Applies("minor"))
			assert.True(t, cfg.Files[1].Applies(""))
		})
	}
}

func TestValueSpans(t *testing.T) {
	for _, tc := range []struct{ name, src string }{
		{".bumpversion.toml", fullTOML},
		{".bumpversion.yaml", fullYAML},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg, _ := load(t, tc.name, tc.src)

			off := strings.Index(tc.src, `"2.0.0-rc"`)
			assert.Equal(t, diag.Span{Source: tc.name, Offset: off, Length: 10, Line: 1, Column: off + 1}, cfg.CurrentVersion.Span)

			off = strings.Index(tc.src, `"release-{new_version}"`)
			assert.Equal(t, off, cfg.TagName.Span.Offset)
			assert.Equal(t, 5, cfg.TagName.Span.Line)

			off = strings.Index(tc.src, `"{major}.{minor}"`)
			assert.Equal(t, off, cfg.Files[1].Template.Span.Offset)
			assert.Equal(t, len(`"{major}.{minor}"`), cfg.Files[1].Template.Span.Length)
		})
	}
}

func TestTemplateSyntaxErrorIsRebased(t *testing.T) {
	for _, tc := range []struct{ name, src string }{
		{"c.toml", "current_version = \"1.2\"\ntemplate = \"{major.{minor}\"\n"},
		{"c.yaml", "current_version: \"1.2\"\ntemplate: \"{major.{minor}\"\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, diags := load(t, tc.name, tc.src)
			errs := diags.Errors()
			require.Len(t, errs, 1, "%v", errs)

			var se *template.SyntaxError
			require.True(t, errors.As(errs[0].Err, &se))
			start := strings.Index(tc.src, `{major.`)
			assert.Equal(t, start, errs[0].Spans[0].Offset)
			assert.Equal(t, 6, errs[0].Spans[0].Length)
			assert.Equal(t, 2, errs[0].Spans[0].Line)
		})
	}
}

func TestCurrentVersionMismatch(t *testing.T) {
	src := "current_version = \"1.x.3\"\n"
	cfg, diags := load(t, "c.toml", src)
	errs := diags.Errors()
	require.Len(t, errs, 1)

	var pm *version.ParseMismatchError
	require.True(t, errors.As(errs[0].Err, &pm))
	assert.Equal(t, strings.Index(src, "x"), errs[0].Spans[0].Offset)

	var derr *diag.ListError
	require.True(t, errors.As(diags.Err(), &derr))
	assert.True(t, errors.As(diags.Err(), &pm), "the typed error is reachable from the list error")
	assert.True(t, cfg.Current.IsZero())
}

func TestDiagnosticsAreCollected(t *testing.T) {
	src := `template = "{major}.{minor}.{build}"
commit = "yes"
colour = "blue"
match = "some"
vcs_retries = 7
search = "{current_version} {nope}"

[[files]]
filename = "a.txt"

[[files]]
filename = "a.txt"

[[files]]
filename = "./a.txt"
search = "v{current_version}"

[[files]]
glob = "*.md"
filename = "b.md"

[[files]]
replace = "x"
`
	_, diags := load(t, "c.toml", src)

	var messages []string
	for _, d := range diags.All() {
		messages = append(messages, d.Severity.String()+": "+d.Message)
	}
	joined := strings.Join(messages, "\n")
	for _, want := range []string{
		`error: template: unknown version component {build}`,
		`error: commit: expected a boolean, found string`,
		`warning: unknown key "colour"`,
		`error: match: unknown match policy "some"`,
		`error: vcs_retries must be between 0 and 3, found 7`,
		`error: search: unknown placeholder {nope}`,
		`error: duplicate rule for a.txt with the same search "{current_version}"`,
		`warning: ./a.txt is also updated by an earlier rule with a different search`,
		`error: file rule sets both filename and glob`,
		`error: file rule needs a filename or a glob`,
		`error: missing required key "current_version"`,
	} {
		assert.Contains(t, joined, want)
	}

	// Sorted by position: the template error on line 1 comes before the rule
	// errors further down.
	all := diags.All()
	for i := 1; i < len(all); i++ {
		if len(all[i].Spans) > 0 && len(all[i-1].Spans) > 0 {
			assert.LessOrEqual(t, all[i-1].Spans[0].Offset, all[i].Spans[0].Offset)
		}
	}
}

func TestDiagnosticLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("current_version = \"1.2.3\"\n")
	for i := 0; i < 80; i++ {
		b.WriteString("unknown_")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(" = 1\n")
	}
	_, diags := load(t, "c.toml", b.String())
	assert.Equal(t, diag.DefaultLimit+1, diags.Len())
	assert.True(t, diags.HasErrors(), "overflow is an error")
}

func TestPartsAsTables(t *testing.T) {
	src := `current_version = "1.2.final"
template = "{major}.{minor}.{release}"

[parts.major]

[parts.minor]

[parts.release]
values = ["dev", "final"]
independent = true
`
	cfg, diags := load(t, "c.toml", src)
	require.Empty(t, diags.All())
	assert.Equal(t, []string{"major", "minor", "release"}, cfg.Scheme.Names())
	rel, _ := cfg.Scheme.Lookup("release")
	assert.True(t, rel.Independent)
}

func TestInvalidParts(t *testing.T) {
	src := `current_version = "1"
template = "{major}"
parts = [{name = "major", kind = "roman"}, {kind = "counter"}, {name = "x", values = []}]
`
	_, diags := load(t, "c.toml", src)
	joined := ""
	for _, d := range diags.Errors() {
		joined += d.Message + "\n"
	}
	assert.Contains(t, joined, `kind: unknown component kind "roman"`)
	assert.Contains(t, joined, "part has no name")
	assert.NotContains(t, joined, "unknown version component", "template checks are skipped when parts are broken")
}

func TestParseErrors(t *testing.T) {
	_, diags := load(t, "c.toml", "current_version = \n[x\n")
	errs := diags.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "invalid TOML")
	assert.NotZero(t, errs[0].Spans[0].Line)

	_, diags = load(t, "c.yaml", "current_version: 1\n  bad: [\n")
	errs = diags.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "invalid YAML")
}

func TestRewriteCurrent(t *testing.T) {
	for _, tc := range []struct{ name, src, want string }{
		{"c.toml", "# head\ncurrent_version = \"1.2.3\" # trailing\n", "# head\ncurrent_version = \"1.3.0\" # trailing\n"},
		{"c.toml", "current_version = '1.2.3'\n", "current_version = '1.3.0'\n"},
		{"c.yaml", "current_version: 1.2.3\nfiles: []\n", "current_version: 1.3.0\nfiles: []\n"},
		{"c.yaml", "current_version: \"1.2.3\"\n", "current_version: \"1.3.0\"\n"},
	} {
		cfg, diags := load(t, tc.name, tc.src)
		require.False(t, diags.HasErrors(), "%v", diags.All())
		out, err := cfg.RewriteCurrent([]byte(tc.src), "1.3.0")
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(out))
	}

	cfg, _ := load(t, "c.toml", "current_version = \"1.2.3\"\n")
	_, err := cfg.RewriteCurrent([]byte("current_version = \"9.9.9\"\n"), "1.3.0")
	assert.ErrorIs(t, err, ErrStale)
}

func TestSetCurrent(t *testing.T) {
	cfg, diags := load(t, "c.toml", "current_version = \"1.4.9\"\n")
	require.Empty(t, diags.All())
	next, err := cfg.Current.Bump("minor")
	require.NoError(t, err)
	require.NoError(t, cfg.SetCurrent(next))
	assert.Equal(t, "1.5.0", cfg.CurrentVersion.V)
	assert.True(t, cfg.Current.Equal(next))
}

func TestContext(t *testing.T) {
	s := version.DefaultScheme()
	cur, err := s.New(map[string]string{"major": "1", "minor": "4", "patch": "9"})
	require.NoError(t, err)
	next, err := cur.Bump("minor")
	require.NoError(t, err)

	ctx := NewContext(cur, next, "1.4.9", "1.5.0")
	for _, name := range ContextNames(s) {
		_, ok := ctx[name]
		assert.True(t, ok, name)
	}
	assert.Equal(t, "9", ctx["current_patch"])
	assert.Equal(t, "0", ctx["new_patch"])
	assert.Equal(t, "1.5.0", ctx["new_version"])
}

func TestRegexSearchIsChecked(t *testing.T) {
	src := `current_version = "1.2.3"

[[files]]
filename = "a"
regex = true
search = "version = ({current_version}"
`
	_, diags := load(t, "c.toml", src)
	errs := diags.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "not a valid regular expression")
}

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/repo", 0o755))

	_, err := Find(fs, "/repo")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, afero.WriteFile(fs, "/repo/pyproject.toml", []byte("[project]\nname = \"x\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/.bumpversion.yml", []byte("current_version: 1.0.0\n"), 0o644))
	path, err := Find(fs, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "/repo/.bumpversion.yml", path, "pyproject.toml without a bumpversion table is skipped")

	require.NoError(t, afero.WriteFile(fs, "/repo/pyproject.toml", []byte("[project]\nname = \"x\"\n\n[tool.bumpversion]\ncurrent_version = \"0.3.1\"\n"), 0o644))
	path, err = Find(fs, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "/repo/pyproject.toml", path)

	cfg, diags, err := Load(fs, path)
	require.NoError(t, err)
	assert.Empty(t, diags.All())
	assert.Equal(t, "0.3.1", cfg.CurrentVersion.V)
	assert.Equal(t, 5, cfg.CurrentVersion.Span.Line)

	_, _, err = Load(fs, "/repo/missing.toml")
	assert.Error(t, err)
}
