package contracts

import (
	"strings"
	"testing"
	"time"
)

func TestMarshalEventJSONLStableOrder(t *testing.T) {
	e := Event{
		Type:      EventTypeCheckStarted,
		RunID:     "run-42",
		CheckName: "lint",
		QueuePos:  2,
		Total:     3,
		Metadata:  map[string]string{"dir": "/repo", "timeout": "30s"},
		Timestamp: time.Date(2026, 2, 9, 12, 30, 0, 0, time.UTC),
	}

	line, err := MarshalEventJSONL(e)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	expected := `{"type":"check_started","run_id":"run-42","check":"lint","queue_pos":2,"total":3,"metadata":{"dir":"/repo","timeout":"30s"},"ts":"2026-02-09T12:30:00Z"}`
	if strings.TrimSpace(line) != expected {
		t.Fatalf("unexpected json line\nexpected: %s\nactual:   %s", expected, strings.TrimSpace(line))
	}
}

func TestMarshalEventJSONLAlwaysEndsWithNewline(t *testing.T) {
	line, err := MarshalEventJSONL(Event{Type: EventTypeRunStarted, RunID: "r-1", Timestamp: time.Now().UTC()})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("expected JSONL output to end with newline")
	}
}

func TestMarshalEventJSONLIncludesSummaryCounts(t *testing.T) {
	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	summary := RunSummary{
		RunID:      "run-7",
		StartedAt:  start,
		FinishedAt: start.Add(2500 * time.Millisecond),
		Results: []CheckResult{
			{Name: "build", Status: CheckStatusPassed},
			{Name: "lint", Status: CheckStatusFailed},
			{Name: "e2e", Status: CheckStatusTimedOut},
			{Name: "docs", Status: CheckStatusSkipped},
		},
	}

	line, err := MarshalEventJSONL(Event{Type: EventTypeRunFinished, RunID: "run-7", Summary: &summary, Timestamp: start})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `"summary":{"run_id":"run-7","status":"failed","total":4,"passed":1,"failed":2,"skipped":1,"duration_ms":2500,"failed_checks":["lint","e2e"]}`
	if !strings.Contains(line, want) {
		t.Fatalf("expected %s in %s", want, line)
	}
}

func TestCheckResultValidate(t *testing.T) {
	for _, status := range []CheckStatus{CheckStatusPassed, CheckStatusFailed, CheckStatusTimedOut, CheckStatusSkipped} {
		if err := (CheckResult{Status: status}).Validate(); err != nil {
			t.Fatalf("expected %q to be valid, got %v", status, err)
		}
	}
	if err := (CheckResult{Status: "done"}).Validate(); err != ErrInvalidCheckStatus {
		t.Fatalf("expected ErrInvalidCheckStatus, got %v", err)
	}
}

func TestRunSummaryStatusIgnoresSkippedChecks(t *testing.T) {
	summary := RunSummary{Results: []CheckResult{
		{Name: "a", Status: CheckStatusPassed},
		{Name: "b", Status: CheckStatusSkipped},
	}}
	if summary.Status() != "passed" {
		t.Fatalf("expected passed, got %s", summary.Status())
	}
	if got := summary.FailedNames(); len(got) != 0 {
		t.Fatalf("expected no failed names, got %v", got)
	}
}
