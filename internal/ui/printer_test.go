package ui

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/egv/cmdverify/internal/contracts"
)

func TestLinePrinterWritesResultLines(t *testing.T) {
	buffer := &bytes.Buffer{}
	printer := NewLinePrinter(buffer)
	ctx := context.Background()

	events := []contracts.Event{
		{Type: contracts.EventTypeRunStarted, Total: 3},
		{Type: contracts.EventTypeCheckStarted, CheckName: "build"},
		{Type: contracts.EventTypeCheckFinished, Result: &contracts.CheckResult{
			Name: "build", Status: contracts.CheckStatusPassed, Duration: 12 * time.Millisecond,
		}},
		{Type: contracts.EventTypeCheckFinished, Result: &contracts.CheckResult{
			Name:     "lint",
			Status:   contracts.CheckStatusFailed,
			Duration: 1234 * time.Millisecond,
			Reasons:  []string{"exit code 1, expected 0"},
			LogPath:  "runner-logs/commands/lint.log",
		}},
		{Type: contracts.EventTypeCheckFinished, Result: &contracts.CheckResult{
			Name:    "docs",
			Status:  contracts.CheckStatusSkipped,
			Reasons: []string{`required command "mdbook" not found on PATH`},
		}},
	}
	for _, event := range events {
		if err := printer.Emit(ctx, event); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	want := "✓ build (12ms)\n" +
		"✗ lint (1.2s)\n" +
		"    exit code 1, expected 0\n" +
		"    log: runner-logs/commands/lint.log\n" +
		"- docs (skipped: required command \"mdbook\" not found on PATH)\n"
	if buffer.String() != want {
		t.Fatalf("expected output:\n%s\ngot:\n%s", want, buffer.String())
	}
}

func TestLinePrinterWritesSummary(t *testing.T) {
	buffer := &bytes.Buffer{}
	printer := NewLinePrinter(buffer)
	start := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	summary := contracts.RunSummary{
		StartedAt:  start,
		FinishedAt: start.Add(2300 * time.Millisecond),
		Results: []contracts.CheckResult{
			{Name: "a", Status: contracts.CheckStatusPassed},
			{Name: "b", Status: contracts.CheckStatusPassed},
			{Name: "c", Status: contracts.CheckStatusPassed},
			{Name: "d", Status: contracts.CheckStatusTimedOut},
			{Name: "e", Status: contracts.CheckStatusSkipped},
		},
	}

	if err := printer.Emit(context.Background(), contracts.Event{Type: contracts.EventTypeRunFinished, Summary: &summary}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if got, want := buffer.String(), "3 passed, 1 failed, 1 skipped in 2.3s\n"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{400 * time.Microsecond, "0ms"},
		{12 * time.Millisecond, "12ms"},
		{1234 * time.Millisecond, "1.2s"},
		{75 * time.Second, "1m15s"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Fatalf("FormatDuration(%s): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
