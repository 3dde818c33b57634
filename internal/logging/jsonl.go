package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// RunSummaryEntry is one line of the run history file.
type RunSummaryEntry struct {
	Timestamp  string   `json:"timestamp"`
	RunID      string   `json:"run_id"`
	Manifest   string   `json:"manifest"`
	Status     string   `json:"status"`
	Total      int      `json:"total"`
	Passed     int      `json:"passed"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	DurationMS int64    `json:"duration_ms"`
	FailedIDs  []string `json:"failed_checks,omitempty"`
}

func AppendRunSummary(logPath string, entry RunSummaryEntry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05Z")
	}
	return appendJSONLine(logPath, entry)
}

func appendJSONLine(logPath string, value any) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.Write(append(payload, '\n')); err != nil {
		return err
	}
	return nil
}
