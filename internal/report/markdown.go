package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/egv/cmdverify/internal/contracts"
)

var statusIcons = map[contracts.CheckStatus]string{
	contracts.CheckStatusPassed:   "✅",
	contracts.CheckStatusFailed:   "❌",
	contracts.CheckStatusTimedOut: "⏱️",
	contracts.CheckStatusSkipped:  "⏭️",
}

// Markdown renders a run summary as a self-contained Markdown document.
func Markdown(summary contracts.RunSummary) string {
	var b strings.Builder
	b.WriteString("# Command verification report\n\n")

	if summary.RunID != "" {
		fmt.Fprintf(&b, "- Run: `%s`\n", summary.RunID)
	}
	if summary.Manifest != "" {
		fmt.Fprintf(&b, "- Manifest: `%s`\n", summary.Manifest)
	}
	if !summary.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", summary.StartedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- Result: **%s** (%d passed, %d failed, %d skipped in %s)\n\n",
		summary.Status(), summary.Passed(), summary.Failed(), summary.Skipped(), roundDuration(summary.Duration()))

	b.WriteString("| Check | Status | Exit | Duration |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, result := range summary.Results {
		exit := fmt.Sprintf("%d", result.ExitCode)
		duration := roundDuration(result.Duration)
		if result.Status == contracts.CheckStatusSkipped {
			exit = "-"
			duration = "-"
		}
		fmt.Fprintf(&b, "| %s | %s %s | %s | %s |\n", escapeCell(result.Name), statusIcons[result.Status], result.Status, exit, duration)
	}

	var details []contracts.CheckResult
	for _, result := range summary.Results {
		if len(result.Reasons) > 0 {
			details = append(details, result)
		}
	}
	if len(details) > 0 {
		b.WriteString("\n## Details\n")
		for _, result := range details {
			fmt.Fprintf(&b, "\n### %s\n\n", result.Name)
			if len(result.Command) > 0 {
				fmt.Fprintf(&b, "`%s`\n\n", strings.Join(result.Command, " "))
			}
			for _, reason := range result.Reasons {
				fmt.Fprintf(&b, "- %s\n", reason)
			}
			if result.LogPath != "" {
				fmt.Fprintf(&b, "\nLog: `%s`\n", result.LogPath)
			}
		}
	}
	return b.String()
}

// WriteMarkdown writes the report to path, creating parent directories.
func WriteMarkdown(path string, summary contracts.RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Markdown(summary)), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func roundDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "0ms"
	}
	return d.Round(time.Millisecond).String()
}

func escapeCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
