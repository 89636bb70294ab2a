package vcs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRepo initializes a git repository with one committed file.
func newRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not available on system")
	}
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test User"},
		{"config", "commit.gpgsign", "false"},
		{"config", "tag.gpgsign", "false"},
	} {
		git(t, dir, args...)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "VERSION"), []byte("1.2.3\n"), 0o644))
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-m", "initial commit")
	return dir
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func TestCommitAndTag(t *testing.T) {
	dir := newRepo(t)
	g := &Git{Dir: dir}
	ctx := context.Background()
	require.NoError(t, g.Available(ctx))

	tag, err := g.LatestTag(ctx)
	require.NoError(t, err)
	assert.Empty(t, tag)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "VERSION"), []byte("1.3.0\n"), 0o644))
	require.NoError(t, g.Commit(ctx, "Bump version: 1.2.3 → 1.3.0", []string{"VERSION"}))
	require.NoError(t, g.Tag(ctx, "v1.3.0", "Bump version: 1.2.3 → 1.3.0"))

	assert.Equal(t, "Bump version: 1.2.3 → 1.3.0", git(t, dir, "log", "-1", "--format=%s"))
	tag, err = g.LatestTag(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1.3.0", tag)

	dirty, err := g.DirtyFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestTagTwiceFails(t *testing.T) {
	dir := newRepo(t)
	g := &Git{Dir: dir}
	ctx := context.Background()
	require.NoError(t, g.Tag(ctx, "v1.2.3", ""))

	err := g.Tag(ctx, "v1.2.3", "")
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "tag", gerr.Op)
	assert.Contains(t, gerr.Stderr, "already exists")
}

func TestCheckClean(t *testing.T) {
	dir := newRepo(t)
	g := &Git{Dir: dir}
	ctx := context.Background()
	require.NoError(t, g.CheckClean(ctx, nil))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "VERSION"), []byte("dirty\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x\n"), 0o644))

	err := g.CheckClean(ctx, []string{"VERSION"})
	var derr *DirtyError
	require.True(t, errors.As(err, &derr))
	require.Len(t, derr.Files, 1)
	assert.Equal(t, "notes.txt", filepath.Base(derr.Files[0]))

	assert.NoError(t, g.CheckClean(ctx, []string{"VERSION", filepath.Join(dir, "notes.txt")}))
}

func TestCancelledContext(t *testing.T) {
	dir := newRepo(t)
	g := &Git{Dir: dir, Retries: 10}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Commit(ctx, "never", nil)
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not available on system")
	}
	g := &Git{Dir: t.TempDir(), Retries: 1}
	err := g.Available(context.Background())
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "rev-parse", gerr.Op)
}
