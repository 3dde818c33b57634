package contracts

import (
	"context"
	"errors"
	"time"
)

type CheckStatus string

const (
	CheckStatusPassed   CheckStatus = "passed"
	CheckStatusFailed   CheckStatus = "failed"
	CheckStatusTimedOut CheckStatus = "timed_out"
	CheckStatusSkipped  CheckStatus = "skipped"
)

var ErrInvalidCheckStatus = errors.New("invalid check status")

type CheckResult struct {
	Name       string
	Command    []string
	Status     CheckStatus
	ExitCode   int
	Duration   time.Duration
	Reasons    []string
	LogPath    string
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r CheckResult) Validate() error {
	switch r.Status {
	case CheckStatusPassed, CheckStatusFailed, CheckStatusTimedOut, CheckStatusSkipped:
		return nil
	default:
		return ErrInvalidCheckStatus
	}
}

// Failed reports whether the result counts against the run.
func (r CheckResult) Failed() bool {
	return r.Status == CheckStatusFailed || r.Status == CheckStatusTimedOut
}

type RunSummary struct {
	RunID      string
	Manifest   string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []CheckResult
}

func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s RunSummary) Passed() int  { return s.count(CheckStatusPassed) }
func (s RunSummary) Skipped() int { return s.count(CheckStatusSkipped) }

func (s RunSummary) Failed() int {
	return s.count(CheckStatusFailed) + s.count(CheckStatusTimedOut)
}

func (s RunSummary) FailedNames() []string {
	names := []string{}
	for _, result := range s.Results {
		if result.Failed() {
			names = append(names, result.Name)
		}
	}
	return names
}

// Status is "passed" when no check failed, skipped checks included.
func (s RunSummary) Status() string {
	if s.Failed() > 0 {
		return "failed"
	}
	return "passed"
}

func (s RunSummary) count(status CheckStatus) int {
	n := 0
	for _, result := range s.Results {
		if result.Status == status {
			n++
		}
	}
	return n
}

type EventType string

const (
	EventTypeRunStarted    EventType = "run_started"
	EventTypeCheckStarted  EventType = "check_started"
	EventTypeCheckFinished EventType = "check_finished"
	EventTypeRunFinished   EventType = "run_finished"
)

// Event is emitted by the engine as a run progresses. Result is set on
// check_finished and Summary on run_finished.
type Event struct {
	Type      EventType
	RunID     string
	CheckName string
	QueuePos  int
	Total     int
	Message   string
	Metadata  map[string]string
	Result    *CheckResult
	Summary   *RunSummary
	Timestamp time.Time
}

type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event) error

func (f EventSinkFunc) Emit(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}
