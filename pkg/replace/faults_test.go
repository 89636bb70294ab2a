package replace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

var errInjected = errors.New("injected fault")

// faultyFs wraps an afero.Fs and fails selected operations.
type faultyFs struct {
	afero.Fs

	mu sync.Mutex
	// failRename makes renames onto these targets fail, counting down the
	// number of failures per target (a negative count fails forever).
	failRename map[string]int
	// failWriteFor makes writes to temp files for these targets fail after
	// the first half of the data has been written.
	failWriteFor map[string]bool
	renames      []string
}

func newFaultyFs() *faultyFs {
	return &faultyFs{
		Fs:           afero.NewMemMapFs(),
		failRename:   make(map[string]int),
		failWriteFor: make(map[string]bool),
	}
}

func (f *faultyFs) Rename(oldname, newname string) error {
	f.mu.Lock()
	n, ok := f.failRename[newname]
	if ok && n != 0 {
		f.failRename[newname] = n - 1
		f.mu.Unlock()
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errInjected}
	}
	f.renames = append(f.renames, newname)
	f.mu.Unlock()
	return f.Fs.Rename(oldname, newname)
}

func (f *faultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	file, err := f.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for target := range f.failWriteFor {
		prefix := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".bump-")
		if strings.HasPrefix(name, prefix) {
			return &truncatingFile{File: file}, nil
		}
	}
	return file, nil
}

// truncatingFile writes half of the first buffer and then fails, like a disk
// filling up mid-write.
type truncatingFile struct {
	afero.File
}

func (t *truncatingFile) Write(p []byte) (int, error) {
	n, _ := t.File.Write(p[:len(p)/2])
	return n, errInjected
}
