// Package ui renders the per-file build summary the CLI prints after a
// build; the totals line is added only for multi-file builds.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FileStatus is one row of the summary.
type FileStatus struct {
	Path     string
	Errors   int
	Internal bool
	Cached   bool
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	iceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
	pathStyle = lipgloss.NewStyle().Bold(true)
)

// RenderSummary formats the build outcome, one line per file.
func RenderSummary(files []FileStatus) string {
	var sb strings.Builder
	failed := 0
	for _, f := range files {
		var status string
		switch {
		case f.Internal:
			status = iceStyle.Render("internal error")
			failed++
		case f.Errors > 0:
			status = errStyle.Render(fmt.Sprintf("%d error(s)", f.Errors))
			failed++
		case f.Cached:
			status = okStyle.Render("ok") + dimStyle.Render(" (cached)")
		default:
			status = okStyle.Render("ok")
		}
		fmt.Fprintf(&sb, "%s %s\n", pathStyle.Render(f.Path), status)
	}
	if len(files) > 1 {
		if failed == 0 {
			fmt.Fprintf(&sb, "%s\n", okStyle.Render(fmt.Sprintf("%d file(s) compiled", len(files))))
		} else {
			fmt.Fprintf(&sb, "%s\n", errStyle.Render(fmt.Sprintf("%d of %d file(s) failed", failed, len(files))))
		}
	}
	return sb.String()
}
