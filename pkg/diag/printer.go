package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Printer writes diagnostics with the offending source line underlined.
type Printer struct {
	w       io.Writer
	sources map[string]*LineIndex

	errLabel  *color.Color
	warnLabel *color.Color
	gutter    *color.Color
	caret     *color.Color
}

// NewPrinter returns a printer writing to w. Color is enabled when useColor is
// true.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	p := &Printer{
		w:         w,
		sources:   make(map[string]*LineIndex),
		errLabel:  color.New(color.FgRed, color.Bold),
		warnLabel: color.New(color.FgYellow, color.Bold),
		gutter:    color.New(color.FgBlue),
		caret:     color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.errLabel, p.warnLabel, p.gutter, p.caret} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// AddSource registers source text so spans into it can be shown.
func (p *Printer) AddSource(x *LineIndex) {
	p.sources[x.Name()] = x
}

// Print writes every diagnostic.
func (p *Printer) Print(diags []Diagnostic) {
	for _, d := range diags {
		p.print(d)
	}
}

func (p *Printer) print(d Diagnostic) {
	label := p.errLabel
	if d.Severity == Warning {
		label = p.warnLabel
	}
	fmt.Fprintf(p.w, "%s %s\n", label.Sprintf("%s:", d.Severity), d.Message)
	for _, s := range d.Spans {
		fmt.Fprintf(p.w, "  %s %s\n", p.gutter.Sprint("-->"), s)
		src, ok := p.sources[s.Source]
		if !ok || s.Line == 0 {
			continue
		}
		line := src.Line(s.Line)
		num := fmt.Sprintf("%d", s.Line)
		pad := strings.Repeat(" ", len(num))
		fmt.Fprintf(p.w, "  %s %s\n", p.gutter.Sprint(num+" |"), line)

		width := s.Length
		if rest := len(line) - (s.Column - 1); width > rest {
			width = rest
		}
		if width < 1 {
			width = 1
		}
		indent := strings.Repeat(" ", max(s.Column-1, 0))
		fmt.Fprintf(p.w, "  %s %s%s\n", p.gutter.Sprint(pad+" |"), indent, p.caret.Sprint(strings.Repeat("^", width)))
	}
}
