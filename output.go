package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	bumpversion "github.com/bcomnes/bumpversion/pkg"
	"github.com/bcomnes/bumpversion/pkg/diag"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONResponse is the envelope of every --json output.
type JSONResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	// ExitCode is set on failures.
	ExitCode int `json:"exit_code,omitempty"`
}

func (a *app) jsonOutput() bool {
	return a.v.GetBool("json")
}

func (a *app) printJSON(v any) {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(a.stderr, "Error encoding JSON: %v\n", err)
	}
}

func (a *app) printSuccess(data any) {
	a.printJSON(JSONResponse{Success: true, Data: data})
}

// useColor resolves --color for output written to w.
func (a *app) useColor(w io.Writer) bool {
	switch a.v.GetString("color") {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && diag.IsTerminal(f)
}

// failure carries the data of a failed command into its JSON error
// response.
type failure struct {
	err  error
	data any
}

func (f *failure) Error() string { return f.err.Error() }
func (f *failure) Unwrap() error { return f.err }

// fail reports err and returns its exit code.
func (a *app) fail(err error) int {
	code := bumpversion.ExitCode(err)
	if code == bumpversion.ExitOK {
		code = bumpversion.ExitOther
	}

	var data any
	var f *failure
	if errors.As(err, &f) {
		data, err = f.data, f.err
	}

	if a.jsonOutput() {
		a.printJSON(JSONResponse{Success: false, Data: data, Error: err.Error(), ExitCode: code})
		return code
	}

	var derr *diag.ListError
	if errors.As(err, &derr) {
		a.printDiagnostics(derr.Diagnostics)
		fmt.Fprintf(a.stderr, "Error: invalid configuration\n")
		return code
	}
	fmt.Fprintln(a.stderr, "Error:", err)
	return code
}

// printDiagnostics writes diagnostics with the source lines they point at.
func (a *app) printDiagnostics(diags []diag.Diagnostic) {
	p := diag.NewPrinter(a.stderr, a.useColor(a.stderr))
	seen := map[string]bool{}
	fs := afero.NewOsFs()
	for _, d := range diags {
		for _, s := range d.Spans {
			if s.Source == "" || seen[s.Source] {
				continue
			}
			seen[s.Source] = true
			if data, err := afero.ReadFile(fs, s.Source); err == nil {
				p.AddSource(diag.NewLineIndex(s.Source, string(data)))
			}
		}
	}
	p.Print(diags)
}
