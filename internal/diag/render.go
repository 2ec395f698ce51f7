package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"plasma/internal/source"
)

var (
	errColor      = color.New(color.FgRed, color.Bold)
	warnColor     = color.New(color.FgYellow, color.Bold)
	internalColor = color.New(color.FgMagenta, color.Bold)
	posColor      = color.New(color.Bold)
	caretColor    = color.New(color.FgGreen)
)

// Render prints diagnostics in the `filename:line: message` form with a
// source snippet and caret underline. Coloring is controlled by the
// global color.NoColor flag, which the CLI sets from --color and the
// terminal check.
func Render(w io.Writer, fs *source.FileSet, bag *Bag) {
	for _, d := range bag.Items() {
		renderOne(w, fs, d)
	}
}

func renderOne(w io.Writer, fs *source.FileSet, d Diagnostic) {
	head := sevColor(d.Severity).Sprint(strings.ToLower(d.Severity.String()))
	if fs == nil || d.Primary == (source.Span{}) {
		fmt.Fprintf(w, "%s: %s [%s]\n", head, d.Message, d.Code.ID())
		return
	}
	f := fs.Get(d.Primary.File)
	start, _ := fs.Resolve(d.Primary)
	fmt.Fprintf(w, "%s %s: %s [%s]\n",
		posColor.Sprintf("%s:%d:", f.Path, start.Line), head, d.Message, d.Code.ID())

	line := f.GetLine(start.Line)
	if line == "" {
		return
	}
	fmt.Fprintf(w, "    %s\n", line)

	// Underline measured in display cells so wide runes stay aligned.
	prefix := runewidth.StringWidth(line[:min(int(start.Col)-1, len(line))])
	width := int(d.Primary.Len())
	if width < 1 {
		width = 1
	}
	fmt.Fprintf(w, "    %s%s\n", strings.Repeat(" ", prefix), caretColor.Sprint(strings.Repeat("^", width)))

	for _, n := range d.Notes {
		nStart, _ := fs.Resolve(n.Span)
		nf := fs.Get(n.Span.File)
		fmt.Fprintf(w, "    note: %s:%d: %s\n", nf.Path, nStart.Line, n.Msg)
	}
}

func sevColor(s Severity) *color.Color {
	switch s {
	case SevInternal:
		return internalColor
	case SevError:
		return errColor
	case SevWarning:
		return warnColor
	}
	return posColor
}
