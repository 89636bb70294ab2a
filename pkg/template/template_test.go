package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokens(t *testing.T) {
	tests := []struct {
		format string
		want   []Token
	}{
		{"", nil},
		{"1.0", []Token{{Kind: Literal, Text: "1.0", Offset: 0, Length: 3}}},
		{"{major}.{minor}.{patch}", []Token{
			{Kind: Placeholder, Text: "major", Offset: 0, Length: 7},
			{Kind: Literal, Text: ".", Offset: 7, Length: 1},
			{Kind: Placeholder, Text: "minor", Offset: 8, Length: 7},
			{Kind: Literal, Text: ".", Offset: 15, Length: 1},
			{Kind: Placeholder, Text: "patch", Offset: 16, Length: 7},
		}},
		{"v{major}-{pre_1}", []Token{
			{Kind: Literal, Text: "v", Offset: 0, Length: 1},
			{Kind: Placeholder, Text: "major", Offset: 1, Length: 7},
			{Kind: Literal, Text: "-", Offset: 8, Length: 1},
			{Kind: Placeholder, Text: "pre_1", Offset: 9, Length: 7},
		}},
		{"{{literal}} {x}", []Token{
			{Kind: Literal, Text: "{literal} ", Offset: 0, Length: 12},
			{Kind: Placeholder, Text: "x", Offset: 12, Length: 3},
		}},
	}
	for _, tc := range tests {
		tmpl, err := Parse(tc.format)
		require.NoError(t, err, "Parse(%q)", tc.format)
		assert.Equal(t, tc.want, tmpl.tokens, "Parse(%q)", tc.format)
		assert.Equal(t, tc.format, tmpl.Source())
	}
}

func TestParseUnterminatedPlaceholder(t *testing.T) {
	_, err := Parse("{major.{minor}")
	require.Error(t, err)

	var errs SyntaxErrors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, 0, errs[0].Offset)
	assert.Equal(t, 6, errs[0].Length, "span should cover the unterminated {major")
	assert.Contains(t, errs[0].Message, "unterminated")

	var one *SyntaxError
	require.True(t, errors.As(err, &one))
	assert.Equal(t, errs[0], one)
}

func TestParseCollectsAllErrors(t *testing.T) {
	tests := []struct {
		format string
		spans  [][2]int
	}{
		{"{}", [][2]int{{0, 2}}},
		{"{", [][2]int{{0, 1}}},
		{"x}", [][2]int{{1, 1}}},
		{"{1abc}", [][2]int{{0, 6}}},
		{"{ma-jor}", [][2]int{{0, 8}}},
		{"{major", [][2]int{{0, 6}}},
		{"{} and } and {9}", [][2]int{{0, 2}, {7, 1}, {13, 3}}},
		{"{major}.{minor.{patch}}", [][2]int{{8, 6}, {22, 1}}},
	}
	for _, tc := range tests {
		_, err := Parse(tc.format)
		var errs SyntaxErrors
		require.True(t, errors.As(err, &errs), "Parse(%q) = %v", tc.format, err)
		var got [][2]int
		for _, e := range errs {
			got = append(got, [2]int{e.Offset, e.Length})
		}
		assert.Equal(t, tc.spans, got, "Parse(%q)", tc.format)
	}
}

func TestNamesAndRepeats(t *testing.T) {
	tmpl := MustParse("{major}.{minor} ({major})")
	assert.Equal(t, []string{"major", "minor"}, tmpl.Names())
	assert.True(t, tmpl.Has("minor"))
	assert.False(t, tmpl.Has("patch"))

	out, err := tmpl.Execute(Map(map[string]string{"major": "3", "minor": "1"}))
	require.NoError(t, err)
	assert.Equal(t, "3.1 (3)", out)
}

func TestExecuteMissing(t *testing.T) {
	_, err := MustParse("v{new_version}").Execute(Map(nil))
	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "new_version", missing.Name)
}

func TestExecuteEscaped(t *testing.T) {
	tmpl := MustParse(`version = "{current_version}"`)
	out, err := tmpl.ExecuteEscaped(
		Map(map[string]string{"current_version": "1.2.3"}),
		func(s string) string { return "<" + s + ">" },
		func(s string) string { return "[" + s + "]" },
	)
	require.NoError(t, err)
	assert.Equal(t, `<version = ">[1.2.3]<">`, out)
}

func TestStringRoundTrip(t *testing.T) {
	for _, format := range []string{"", "{a}", "{{x}}-{y}", "plain", "}}{{"} {
		tmpl := MustParse(format)
		again, err := Parse(tmpl.String())
		require.NoError(t, err)
		assert.Equal(t, tmpl.tokens, again.tokens, "format %q", format)
	}
	assert.Equal(t, "{{x}}.{y}", MustParse("{{x}}.{y}").String())
	assert.Equal(t, []Token{{Kind: Literal, Text: "{x}", Offset: 0, Length: 5}}, MustParse("{{x}}").Tokens())
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("{") })
}
