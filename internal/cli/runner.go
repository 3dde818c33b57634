package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	failurePrefix = "❌ Command verification failed: "
	hintPrefix    = "↳ Hint: "
)

// ExitStatus holds the process exit code until main applies it, so deferred
// cleanup runs before the process ends.
type ExitStatus struct {
	mu   sync.Mutex
	code int
}

// Set records code as the status main will exit with.
func (s *ExitStatus) Set(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
}

// Code returns the recorded status, 0 until Set is called.
func (s *ExitStatus) Code() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Runner invokes verification once and reports its failure.
type Runner struct {
	Verify func(ctx context.Context) error
	Stderr io.Writer
	Status *ExitStatus
}

// Run calls Verify and blocks until it returns. On failure it prints the
// failure line, plus hints for configuration failures, and sets the exit
// status to 1. It never panics and never exits the process.
func (r *Runner) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	failure := r.invoke(ctx)
	if failure == nil {
		return
	}
	r.report(failure)
	if r.Status != nil {
		r.Status.Set(1)
	}
}

// RunIfEntryPoint runs only when isEntry is true and reports whether it did.
// The composition root decides isEntry.
func (r *Runner) RunIfEntryPoint(ctx context.Context, isEntry bool) bool {
	if !isEntry {
		return false
	}
	r.Run(ctx)
	return true
}

func (r *Runner) invoke(ctx context.Context) (failure Failure) {
	defer func() {
		if recovered := recover(); recovered != nil {
			failure = Classify(recovered)
		}
	}()
	if r.Verify == nil {
		return nil
	}
	if err := r.Verify(ctx); err != nil {
		return Classify(err)
	}
	return nil
}

func (r *Runner) report(failure Failure) {
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	var b strings.Builder
	b.WriteString(failurePrefix + failure.Text() + "\n")
	if cfg, ok := failure.(ConfigFailure); ok {
		for _, hint := range cfg.Hints {
			b.WriteString(hintPrefix + hint + "\n")
		}
	}
	_, _ = io.WriteString(stderr, b.String())
}
