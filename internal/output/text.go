// Package output renders a run result for people and for machines.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/detent/checkformat/internal/config"
	"github.com/detent/checkformat/internal/runner"
)

const (
	errorPrefix = "ERROR: "

	checkFailedSummary = "check format failed. run 'check-format fix'"
	fixFailedSummary   = "some problems could not be fixed automatically"
	passMarker         = "PASS"
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

type painter bool

func (p painter) paint(style lipgloss.Style, s string) string {
	if !p {
		return s
	}
	return style.Render(s)
}

// FormatText prints a "From <path>" header and the findings of every file
// that has any, then a summary line. PASS is printed only for a clean check
// run. styled enables terminal colors.
func FormatText(w io.Writer, res *runner.RunResult, styled bool) {
	p := painter(styled)
	prefix := p.paint(errorStyle, errorPrefix)

	for _, f := range res.Files {
		if len(f.Findings) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", prefix, p.paint(headerStyle, "From "+f.Record.Path))
		for _, fd := range f.Findings {
			_, _ = fmt.Fprintf(w, "%s%s\n", prefix, fd.String())
		}
	}

	if res.Mode == config.ModeFix {
		if n := res.ModifiedCount(); n > 0 {
			_, _ = fmt.Fprintln(w, p.paint(hintStyle, fmt.Sprintf("rewrote %d file%s", n, plural(n))))
		}
	}

	if res.HasFindings() {
		summary := checkFailedSummary
		if res.Mode == config.ModeFix {
			summary = fixFailedSummary
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", prefix, summary)
		return
	}

	if res.Mode == config.ModeCheck && !res.Cancelled {
		_, _ = fmt.Fprintln(w, p.paint(passStyle, passMarker))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
