package bumpversion

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bcomnes/bumpversion/pkg/replace"
	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// moduleChanges returns the changes that move a Go module to the major
// version of newText: the module directive of go.mod and every import of
// the module's own packages. It returns nothing when the major version does
// not change or no go.mod is found above dir.
func moduleChanges(fsys afero.Fs, dir, oldText, newText string) ([]replace.FileChange, error) {
	oldMajor, newMajor := semver.Major(semverOf(oldText)), semver.Major(semverOf(newText))
	if newMajor == "" || oldMajor == newMajor {
		return nil, nil
	}
	modDir, err := locateGoModDir(fsys, dir)
	if err != nil {
		return nil, nil
	}
	modPath := filepath.Join(modDir, "go.mod")
	data, err := afero.ReadFile(fsys, modPath)
	if err != nil {
		return nil, &replace.IOError{Path: modPath, Op: "read", Err: err}
	}
	oldMod, err := modulePath(modPath, data)
	if err != nil {
		return nil, err
	}
	newMod := majorModulePath(oldMod, newMajor)
	if newMod == oldMod {
		return nil, nil
	}

	changes := []replace.FileChange{{
		Path: modPath,
		Transforms: []replace.Transform{func(content []byte) ([]byte, error) {
			return updateGoMod(modPath, content, newMod)
		}},
	}}
	files, err := scanSelfImports(fsys, modDir, oldMod)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		path := f
		changes = append(changes, replace.FileChange{
			Path: path,
			Transforms: []replace.Transform{func(content []byte) ([]byte, error) {
				return rewriteImports(path, content, oldMod, newMod)
			}},
		})
	}
	return changes, nil
}

// majorModulePath returns the path of module mod at major version maj.
// v0 and v1 carry no suffix.
func majorModulePath(mod, maj string) string {
	base, _, _ := module.SplitPathVersion(mod)
	if maj == "v0" || maj == "v1" {
		return base
	}
	return base + "/" + maj
}

func modulePath(path string, data []byte) (string, error) {
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return "", fmt.Errorf("parsing go.mod: %w", err)
	}
	if f.Module == nil {
		return "", fmt.Errorf("%s: module directive not found", path)
	}
	return f.Module.Mod.Path, nil
}

// updateGoMod returns the go.mod content with its module path set to newMod.
func updateGoMod(path string, content []byte, newMod string) ([]byte, error) {
	f, err := modfile.Parse(path, content, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing go.mod: %w", err)
	}
	if f.Module == nil {
		return nil, fmt.Errorf("%s: module directive not found", path)
	}
	if err := f.AddModuleStmt(newMod); err != nil {
		return nil, err
	}
	out, err := f.Format()
	if err != nil {
		return nil, fmt.Errorf("formatting go.mod: %w", err)
	}
	return out, nil
}

// locateGoModDir walks up from startDir until it finds go.mod.
func locateGoModDir(fsys afero.Fs, startDir string) (string, error) {
	d := filepath.Clean(startDir)
	for {
		if ok, _ := afero.Exists(fsys, filepath.Join(d, "go.mod")); ok {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", os.ErrNotExist
		}
		d = parent
	}
}

// importsModule reports whether import path p belongs to module mod.
func importsModule(p, mod string) bool {
	return p == mod || strings.HasPrefix(p, mod+"/")
}

// scanSelfImports returns the .go files under modDir that import a package
// of module mod. Vendored code and nested modules are skipped.
func scanSelfImports(fsys afero.Fs, modDir, mod string) ([]string, error) {
	var matches []string
	err := afero.Walk(fsys, modDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path == modDir {
				return nil
			}
			name := info.Name()
			if name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			if ok, _ := afero.Exists(fsys, filepath.Join(path, "go.mod")); ok {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		src, err := afero.ReadFile(fsys, path)
		if err != nil {
			return &replace.IOError{Path: path, Op: "read", Err: err}
		}
		f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.ImportsOnly)
		if err != nil {
			// Unparsable files are left alone.
			return nil
		}
		for _, imp := range f.Imports {
			p, _ := strconv.Unquote(imp.Path.Value)
			if importsModule(p, mod) {
				matches = append(matches, path)
				break
			}
		}
		return nil
	})
	sort.Strings(matches)
	return matches, err
}

// rewriteImports replaces the import paths of module oldMod in a Go source
// file. Only the import path literals change; the rest of the file is kept
// byte for byte.
func rewriteImports(path string, src []byte, oldMod, newMod string) ([]byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}
	var matches []replace.Match
	var repl []string
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !importsModule(p, oldMod) {
			continue
		}
		start := fset.Position(imp.Path.Pos()).Offset
		matches = append(matches, replace.Match{Start: start, End: start + len(imp.Path.Value)})
		repl = append(repl, strconv.Quote(newMod+strings.TrimPrefix(p, oldMod)))
	}

	out := make([]byte, 0, len(src)+len(matches)*len(newMod))
	last := 0
	for i, m := range matches {
		out = append(out, src[last:m.Start]...)
		out = append(out, repl[i]...)
		last = m.End
	}
	return append(out, src[last:]...), nil
}
