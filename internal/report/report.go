// Package report renders the end-of-run summary for humans.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"als-transform/internal/diagnostic"
	"als-transform/internal/pipeline"
)

// Styles color the summary. The zero value renders plain text.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Good    lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
	enabled bool
}

// ColorStyles returns the styles used on terminals.
func ColorStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true),
		Label:   lipgloss.NewStyle().Faint(true),
		Good:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		Bad:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		enabled: true,
	}
}

// StylesFor colors output only when w is a terminal.
func StylesFor(w io.Writer) Styles {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return ColorStyles()
	}

	return Styles{}
}

func (s Styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}

	return st.Render(text)
}

func (s Styles) status(st pipeline.Status) string {
	switch st {
	case pipeline.StatusSuccess:
		return s.render(s.Good, st.String())
	case pipeline.StatusPartial:
		return s.render(s.Warn, st.String())
	default:
		return s.render(s.Bad, st.String())
	}
}

// Write prints the summary of out.
func Write(w io.Writer, out *pipeline.Outcome, styles Styles) error {
	sum := out.Summary

	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", styles.render(styles.Title, "run"), out.RunID)

	line := func(label string, value any) {
		fmt.Fprintf(&b, "  %s %v\n", styles.render(styles.Label, fmt.Sprintf("%-17s", label+":")), value)
	}

	line("status", styles.status(out.Status))
	line("records processed", sum.Processed)
	line("passed", sum.Passed)
	line("failed", sum.Failed)
	line("transform errors", sum.TransformErrors)
	line("emitted", sum.Emitted)

	if sum.Aborted {
		line("aborted", styles.render(styles.Bad, "yes (strict mode)"))
	}

	var counts []string
	for _, rule := range diagnostic.Rules {
		if n := sum.Violations[rule]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s=%d", rule, n))
		}
	}

	if len(counts) > 0 {
		line("violations", strings.Join(counts, " "))
	}

	_, err := io.WriteString(w, b.String())

	return err
}
