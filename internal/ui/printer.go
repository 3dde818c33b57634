package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/egv/cmdverify/internal/contracts"
)

type printerStyles struct {
	passed  lipgloss.Style
	failed  lipgloss.Style
	skipped lipgloss.Style
	detail  lipgloss.Style
	summary lipgloss.Style
}

// LinePrinter is an event sink that prints one line per finished check and a
// summary line when the run ends. Colors follow the writer's terminal
// capabilities, so redirected output stays plain.
type LinePrinter struct {
	out    io.Writer
	styles printerStyles
	mu     sync.Mutex
}

func NewLinePrinter(out io.Writer) *LinePrinter {
	if out == nil {
		out = io.Discard
	}
	renderer := lipgloss.NewRenderer(out)
	return &LinePrinter{
		out: out,
		styles: printerStyles{
			passed:  renderer.NewStyle().Foreground(lipgloss.Color("10")),
			failed:  renderer.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			skipped: renderer.NewStyle().Foreground(lipgloss.Color("11")),
			detail:  renderer.NewStyle().Faint(true),
			summary: renderer.NewStyle().Bold(true),
		},
	}
}

func (p *LinePrinter) Emit(_ context.Context, event contracts.Event) error {
	var text string
	switch event.Type {
	case contracts.EventTypeCheckFinished:
		if event.Result == nil {
			return nil
		}
		text = p.formatResult(*event.Result)
	case contracts.EventTypeRunFinished:
		if event.Summary == nil {
			return nil
		}
		text = p.styles.summary.Render(SummaryLine(*event.Summary)) + "\n"
	default:
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, text)
	return err
}

func (p *LinePrinter) formatResult(result contracts.CheckResult) string {
	switch result.Status {
	case contracts.CheckStatusPassed:
		return p.styles.passed.Render("✓") + fmt.Sprintf(" %s (%s)\n", result.Name, FormatDuration(result.Duration))
	case contracts.CheckStatusSkipped:
		return p.styles.skipped.Render("-") + fmt.Sprintf(" %s (skipped: %s)\n", result.Name, strings.Join(result.Reasons, "; "))
	}

	var b strings.Builder
	b.WriteString(p.styles.failed.Render("✗"))
	fmt.Fprintf(&b, " %s (%s)\n", result.Name, FormatDuration(result.Duration))
	for _, reason := range result.Reasons {
		b.WriteString("    " + p.styles.detail.Render(reason) + "\n")
	}
	if result.LogPath != "" {
		b.WriteString("    " + p.styles.detail.Render("log: "+result.LogPath) + "\n")
	}
	return b.String()
}

// SummaryLine renders "3 passed, 1 failed, 1 skipped in 2.3s".
func SummaryLine(summary contracts.RunSummary) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped in %s",
		summary.Passed(), summary.Failed(), summary.Skipped(), FormatDuration(summary.Duration()))
}

// FormatDuration keeps millisecond precision below a second and one decimal
// above it.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "0ms"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
