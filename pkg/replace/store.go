package replace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Store reads and writes target files through an afero filesystem.
type Store struct {
	fs afero.Fs
}

// NewStore returns a store over fs. A nil fs means the OS filesystem.
func NewStore(fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs}
}

// Exists reports whether path is an existing regular file.
func (s *Store) Exists(path string) (bool, error) {
	fi, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &IOError{Path: path, Op: "stat", Err: err}
	}
	return !fi.IsDir(), nil
}

// Read returns the content and permission bits of path.
func (s *Store) Read(path string) ([]byte, os.FileMode, error) {
	fi, err := s.fs.Stat(path)
	if err != nil {
		return nil, 0, &IOError{Path: path, Op: "stat", Err: err}
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, 0, &IOError{Path: path, Op: "read", Err: err}
	}
	return data, fi.Mode().Perm(), nil
}

// WriteAtomic replaces path with data. The data goes to a temporary file in
// the same directory which is then renamed over path, so readers see either
// the old or the new content and never a partial write.
func (s *Store) WriteAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".bump-")
	if err != nil {
		return &IOError{Path: path, Op: "create temp file for", Err: err}
	}
	name := tmp.Name()
	cleanup := func() {
		_ = s.fs.Remove(name)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return &IOError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &IOError{Path: path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &IOError{Path: path, Op: "close", Err: err}
	}
	if mode != 0 {
		if err := s.fs.Chmod(name, mode); err != nil {
			cleanup()
			return &IOError{Path: path, Op: "chmod", Err: err}
		}
	}
	if err := s.fs.Rename(name, path); err != nil {
		cleanup()
		return &IOError{Path: path, Op: "rename", Err: err}
	}
	return nil
}

// Glob expands pattern and drops every path matched by one of exclude. The
// pattern may use ** to cross directory levels. The result is sorted.
func (s *Store) Glob(pattern string, exclude []string) ([]string, error) {
	pattern = filepath.Clean(pattern)
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	for _, ex := range exclude {
		if !doublestar.ValidatePathPattern(ex) {
			return nil, fmt.Errorf("exclude %q: %w", ex, doublestar.ErrBadPattern)
		}
	}

	base, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = filepath.FromSlash(base)
	if fi, err := s.fs.Stat(base); err != nil || !fi.IsDir() {
		return nil, nil
	}
	rel, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(s.fs, base)), rest, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	var out []string
	for _, r := range rel {
		m := filepath.Join(base, filepath.FromSlash(r))
		if s.excluded(m, exclude) {
			continue
		}
		if ok, _ := s.Exists(m); !ok {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) excluded(path string, exclude []string) bool {
	for _, ex := range exclude {
		if ok, _ := doublestar.PathMatch(filepath.Clean(ex), path); ok {
			return true
		}
	}
	return false
}
