// Package vcs records a version bump in version control.
//
// Only git is supported. Every git invocation runs as a child process bound
// to a context and a per-call timeout.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Committer records a bump. Both calls happen at most once per run.
type Committer interface {
	Commit(ctx context.Context, message string, files []string) error
	Tag(ctx context.Context, name, message string) error
}

const (
	// DefaultTimeout bounds a single git invocation.
	DefaultTimeout = 30 * time.Second
	// MaxRetries caps Git.Retries.
	MaxRetries = 3
)

// Error is a failed git operation.
type Error struct {
	Op     string
	Err    error
	Stderr string
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s failed: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DirtyError lists modified files that a bump would not commit.
type DirtyError struct {
	Files []string
}

func (e *DirtyError) Error() string {
	return fmt.Sprintf("working directory is dirty; uncommitted files not included in commit: %s", strings.Join(e.Files, ", "))
}

// Git runs git in Dir.
type Git struct {
	Dir string
	// Timeout bounds each git invocation; zero means DefaultTimeout.
	Timeout time.Duration
	// Retries is how many times a failed invocation is repeated. It is
	// capped at MaxRetries and defaults to none.
	Retries int
	Logger  *zap.Logger
}

var _ Committer = (*Git)(nil)

func (g *Git) log() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

func (g *Git) run(ctx context.Context, op string, args ...string) ([]byte, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attempts := 1 + min(max(g.Retries, 0), MaxRetries)

	var last *Error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := g.once(ctx, timeout, op, args)
		if err == nil {
			return out, nil
		}
		last = err
		if ctx.Err() != nil || attempt == attempts {
			break
		}
		g.log().Warn("git command failed, retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, last
}

func (g *Git) once(ctx context.Context, timeout time.Duration, op string, args []string) ([]byte, *Error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "git", args...)
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.log().Debug("running git", zap.Strings("args", args), zap.String("dir", g.Dir))
	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", timeout, cctx.Err())
	} else if ctx.Err() != nil {
		err = ctx.Err()
	}
	return nil, &Error{Op: op, Err: err, Stderr: strings.TrimSpace(stderr.String())}
}

// Available checks that git is installed and Dir is inside a work tree.
func (g *Git) Available(ctx context.Context) error {
	if _, err := g.run(ctx, "version", "--version"); err != nil {
		return err
	}
	_, err := g.run(ctx, "rev-parse", "rev-parse", "--is-inside-work-tree")
	return err
}

// Commit stages files and commits them with message.
func (g *Git) Commit(ctx context.Context, message string, files []string) error {
	if len(files) > 0 {
		args := append([]string{"add", "--"}, files...)
		if _, err := g.run(ctx, "add", args...); err != nil {
			return err
		}
	}
	_, err := g.run(ctx, "commit", "commit", "-m", message)
	if err == nil {
		g.log().Info("committed", zap.Strings("files", files))
	}
	return err
}

// Tag tags HEAD. A non-empty message makes an annotated tag.
func (g *Git) Tag(ctx context.Context, name, message string) error {
	args := []string{"tag", name}
	if message != "" {
		args = []string{"tag", "-a", name, "-m", message}
	}
	_, err := g.run(ctx, "tag", args...)
	if err == nil {
		g.log().Info("tagged", zap.String("tag", name))
	}
	return err
}

// LatestTag returns the most recent tag reachable from HEAD, or "" when the
// repository has none.
func (g *Git) LatestTag(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "describe", "describe", "--tags", "--abbrev=0")
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) && (strings.Contains(gerr.Stderr, "No names found") ||
			strings.Contains(gerr.Stderr, "No tags can describe") ||
			strings.Contains(gerr.Stderr, "bad revision")) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// DirtyFiles returns the absolute paths of modified, added, deleted and
// untracked files.
func (g *Git) DirtyFiles(ctx context.Context) ([]string, error) {
	top, err := g.run(ctx, "rev-parse", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	root := strings.TrimSpace(string(top))
	out, err := g.run(ctx, "status", "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		if unq, err := strconv.Unquote(path); err == nil {
			path = unq
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(path)))
	}
	return files, nil
}

// CheckClean fails with a *DirtyError when files other than allowed are
// modified. allowed holds paths relative to Dir or absolute.
func (g *Git) CheckClean(ctx context.Context, allowed []string) error {
	dirty, err := g.DirtyFiles(ctx)
	if err != nil {
		return err
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		allowedSet[g.abs(f)] = struct{}{}
	}
	var disallowed []string
	for _, f := range dirty {
		if _, ok := allowedSet[g.abs(f)]; !ok {
			disallowed = append(disallowed, f)
		}
	}
	if len(disallowed) > 0 {
		slices.Sort(disallowed)
		return &DirtyError{Files: disallowed}
	}
	return nil
}

// abs resolves p against Dir and follows symlinks where possible, so that
// paths reported by git compare equal to configured ones.
func (g *Git) abs(p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(g.Dir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	if real, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		return filepath.Join(real, filepath.Base(p))
	}
	return p
}
