package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/egv/cmdverify/internal/config"
	"github.com/egv/cmdverify/internal/contracts"
	"github.com/egv/cmdverify/internal/exec"
	"github.com/egv/cmdverify/internal/logging"
	"github.com/egv/cmdverify/internal/report"
)

// Options configures one verification run. The zero value loads the default
// manifest from the working directory and reports nowhere but the manifest's
// own report section.
type Options struct {
	RepoRoot   string
	ConfigPath string
	// Only restricts the run to the named checks, kept in manifest order.
	Only []string
	// FailFast is combined with the manifest's fail_fast.
	FailFast bool
	// Concurrency overrides the manifest when positive.
	Concurrency int
	Sink        contracts.EventSink
	// Echo receives each command line and its outcome as checks run.
	Echo   io.Writer
	Logger zerolog.Logger

	Getenv   func(string) string
	LookPath func(string) (string, error)
	Now      func() time.Time
}

// RunVerification loads the manifest, runs every selected check and reports
// the outcome. It returns nil when no check failed, *ConfigurationError for
// problems the user must fix before anything can run, and *FailedError when
// checks ran and at least one failed.
func RunVerification(ctx context.Context, opts Options) error {
	_, err := Execute(ctx, opts)
	return err
}

// Execute is RunVerification that also returns the run summary. The summary is
// zero when the run never started.
func Execute(ctx context.Context, opts Options) (contracts.RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts = withDefaults(opts)

	manifest, err := LoadManifest(opts)
	if err != nil {
		return contracts.RunSummary{}, err
	}
	checks, err := selectChecks(manifest.Checks, opts.Only)
	if err != nil {
		return contracts.RunSummary{}, err
	}
	concurrency, err := effectiveConcurrency(manifest.Concurrency, opts.Concurrency)
	if err != nil {
		return contracts.RunSummary{}, err
	}

	fanout, err := openSinks(ctx, manifest, opts.Sink)
	if err != nil {
		return contracts.RunSummary{}, err
	}

	e := &engine{
		opts:        opts,
		manifest:    manifest,
		checks:      checks,
		concurrency: concurrency,
		failFast:    manifest.FailFast || opts.FailFast,
		runner:      exec.NewCommandRunner(manifest.Report.LogDir, opts.Echo),
		sink:        fanout,
		emitCtx:     context.WithoutCancel(ctx),
		logger:      opts.Logger.With().Str("component", "verification").Logger(),
		runID:       uuid.NewString(),
	}
	summary := e.run(ctx)
	e.writeReports(summary)
	if closeErr := fanout.Close(); closeErr != nil {
		e.logger.Warn().Err(closeErr).Msg("closing report sinks")
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return summary, fmt.Errorf("verification interrupted: %w", ctxErr)
	}
	if failed := summary.FailedNames(); len(failed) > 0 {
		return summary, &FailedError{Total: len(summary.Results), Failed: failed}
	}
	return summary, nil
}

// LoadManifest resolves and validates the manifest without running anything.
func LoadManifest(opts Options) (config.Manifest, error) {
	opts = withDefaults(opts)
	manifest, err := config.Load(config.LoadOptions{
		RepoRoot: opts.RepoRoot,
		Path:     opts.ConfigPath,
		Getenv:   opts.Getenv,
	})
	if err != nil {
		return config.Manifest{}, AsConfigurationError(err)
	}
	return manifest, nil
}

func withDefaults(opts Options) Options {
	if opts.RepoRoot == "" {
		opts.RepoRoot = "."
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.LookPath == nil {
		opts.LookPath = osexec.LookPath
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

// AsConfigurationError converts a manifest error into a *ConfigurationError
// and returns any other error unchanged.
func AsConfigurationError(err error) error {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return &ConfigurationError{Message: cfgErr.Message, Hints: compactHints(cfgErr.Hints), Err: err}
	}
	return err
}

func selectChecks(checks []config.Check, only []string) ([]config.Check, error) {
	wanted := map[string]bool{}
	for _, name := range only {
		name = strings.TrimSpace(name)
		if name != "" {
			wanted[name] = true
		}
	}
	if len(wanted) == 0 {
		return checks, nil
	}

	known := map[string]bool{}
	names := make([]string, 0, len(checks))
	for _, check := range checks {
		known[check.Name] = true
		names = append(names, check.Name)
	}
	unknown := []string{}
	for _, name := range only {
		name = strings.TrimSpace(name)
		if name != "" && !known[name] && !contains(unknown, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, NewConfigurationError(
			fmt.Sprintf("unknown check %s passed to --only", quoteAll(unknown)),
			"Available checks: "+strings.Join(names, ", "),
		)
	}

	selected := make([]config.Check, 0, len(wanted))
	for _, check := range checks {
		if wanted[check.Name] {
			selected = append(selected, check)
		}
	}
	return selected, nil
}

func effectiveConcurrency(manifest int, override int) (int, error) {
	if override == 0 {
		if manifest <= 0 {
			return config.DefaultConcurrency, nil
		}
		return manifest, nil
	}
	if override < 1 || override > config.MaxConcurrency {
		return 0, NewConfigurationError(
			fmt.Sprintf("concurrency %d is out of range", override),
			fmt.Sprintf("Pass --concurrency between 1 and %d, or 0 to keep the manifest value.", config.MaxConcurrency),
		)
	}
	return override, nil
}

type engine struct {
	opts        Options
	manifest    config.Manifest
	checks      []config.Check
	concurrency int
	failFast    bool
	runner      *exec.CommandRunner
	sink        contracts.EventSink
	emitCtx     context.Context
	logger      zerolog.Logger
	runID       string

	mu           sync.Mutex
	firstFailure string
}

func (e *engine) run(ctx context.Context) contracts.RunSummary {
	summary := contracts.RunSummary{
		RunID:     e.runID,
		Manifest:  e.manifest.Path,
		StartedAt: e.opts.Now(),
	}
	total := len(e.checks)
	e.emit(contracts.Event{
		Type:     contracts.EventTypeRunStarted,
		Total:    total,
		Message:  e.manifest.Path,
		Metadata: map[string]string{"concurrency": fmt.Sprint(e.concurrency), "fail_fast": fmt.Sprint(e.failFast)},
	})
	e.logger.Debug().Str("run_id", e.runID).Int("checks", total).Int("concurrency", e.concurrency).Msg("run started")

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	results := make([]contracts.CheckResult, total)
	done := make([]bool, total)
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := min(e.concurrency, total)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				results[i] = e.runCheck(runCtx, ctx, i)
				done[i] = true
				if results[i].Failed() && e.failFast {
					e.recordFailure(results[i].Name)
					cancelRun()
				}
			}
		}()
	}

dispatch:
	for i := range e.checks {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i, check := range e.checks {
		if done[i] {
			continue
		}
		now := e.opts.Now()
		results[i] = contracts.CheckResult{
			Name:       check.Name,
			Command:    check.Command(),
			Status:     contracts.CheckStatusSkipped,
			ExitCode:   -1,
			Reasons:    []string{e.notStartedReason(ctx)},
			StartedAt:  now,
			FinishedAt: now,
		}
		e.emitFinished(i, results[i])
	}

	summary.Results = results
	summary.FinishedAt = e.opts.Now()
	e.emit(contracts.Event{
		Type:    contracts.EventTypeRunFinished,
		Total:   total,
		Message: summary.Status(),
		Summary: &summary,
	})
	e.logger.Debug().Str("run_id", e.runID).Str("status", summary.Status()).Dur("elapsed", summary.Duration()).Msg("run finished")
	return summary
}

// runCheck runs one check under runCtx. parent is the caller's context and
// tells a fail-fast cancellation apart from an interrupted run.
func (e *engine) runCheck(runCtx context.Context, parent context.Context, pos int) contracts.CheckResult {
	check := e.checks[pos]
	e.emit(contracts.Event{
		Type:      contracts.EventTypeCheckStarted,
		CheckName: check.Name,
		QueuePos:  pos + 1,
		Total:     len(e.checks),
	})

	result := contracts.CheckResult{
		Name:      check.Name,
		Command:   check.Command(),
		StartedAt: e.opts.Now(),
	}
	log := e.logger.With().Str("check", check.Name).Logger()

	if missing := e.missingRequirements(check); len(missing) > 0 {
		result.ExitCode = -1
		result.Reasons = missing
		result.Status = contracts.CheckStatusFailed
		if check.Optional {
			result.Status = contracts.CheckStatusSkipped
		}
		result.FinishedAt = e.opts.Now()
		log.Debug().Strs("reasons", missing).Str("status", string(result.Status)).Msg("requirements not met")
		e.emitFinished(pos, result)
		return result
	}

	log.Debug().Strs("argv", result.Command).Str("dir", check.Dir).Dur("timeout", check.Timeout).Msg("running check")
	outcome, err := e.runner.Run(runCtx, exec.Command{
		Label:   check.Name,
		Args:    result.Command,
		Dir:     check.Dir,
		Env:     check.Env,
		Timeout: check.Timeout,
	})
	result.ExitCode = outcome.ExitCode
	result.Duration = outcome.Duration
	result.LogPath = outcome.LogPath
	result.FinishedAt = e.opts.Now()

	switch {
	case err != nil && runCtx.Err() != nil:
		result.Status = contracts.CheckStatusFailed
		result.Reasons = []string{e.cancelledReason(parent)}
	case err != nil:
		result.Status = contracts.CheckStatusFailed
		result.Reasons = []string{"could not start: " + err.Error()}
	case outcome.TimedOut:
		result.Status = contracts.CheckStatusTimedOut
		result.Reasons = evaluate(check, outcome)
	default:
		result.Reasons = evaluate(check, outcome)
		result.Status = contracts.CheckStatusPassed
		if len(result.Reasons) > 0 {
			result.Status = contracts.CheckStatusFailed
		}
	}
	log.Debug().Str("status", string(result.Status)).Int("exit_code", result.ExitCode).Dur("elapsed", result.Duration).Msg("check finished")
	e.emitFinished(pos, result)
	return result
}

func (e *engine) missingRequirements(check config.Check) []string {
	missing := []string{}
	for _, name := range check.Requires {
		if _, err := e.opts.LookPath(name); err != nil {
			missing = append(missing, fmt.Sprintf("required command %q not found on PATH", name))
		}
	}
	return missing
}

func (e *engine) recordFailure(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.firstFailure == "" {
		e.firstFailure = name
	}
}

func (e *engine) failFastCause() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("fail_fast after %q failed", e.firstFailure)
}

func (e *engine) notStartedReason(parent context.Context) string {
	if parent.Err() != nil {
		return "not started: run interrupted"
	}
	return "not started: " + e.failFastCause()
}

func (e *engine) cancelledReason(parent context.Context) string {
	if parent.Err() != nil {
		return "killed: run interrupted"
	}
	return "killed: " + e.failFastCause()
}

func (e *engine) emitFinished(pos int, result contracts.CheckResult) {
	e.emit(contracts.Event{
		Type:      contracts.EventTypeCheckFinished,
		CheckName: result.Name,
		QueuePos:  pos + 1,
		Total:     len(e.checks),
		Message:   string(result.Status),
		Result:    &result,
	})
}

// emit stamps the event and fans it out. Sink failures after startup are
// logged and never fail the run.
func (e *engine) emit(event contracts.Event) {
	event.RunID = e.runID
	if event.Timestamp.IsZero() {
		event.Timestamp = e.opts.Now().UTC()
	}
	if err := e.sink.Emit(e.emitCtx, event); err != nil {
		e.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("report sink rejected event")
	}
}

func (e *engine) writeReports(summary contracts.RunSummary) {
	if path := e.manifest.Report.JSONL; path != "" {
		err := logging.AppendRunSummary(path, logging.RunSummaryEntry{
			Timestamp:  summary.FinishedAt.UTC().Format(time.RFC3339),
			RunID:      summary.RunID,
			Manifest:   summary.Manifest,
			Status:     summary.Status(),
			Total:      len(summary.Results),
			Passed:     summary.Passed(),
			Failed:     summary.Failed(),
			Skipped:    summary.Skipped(),
			DurationMS: summary.Duration().Milliseconds(),
			FailedIDs:  summary.FailedNames(),
		})
		if err != nil {
			e.logger.Warn().Err(err).Str("path", path).Msg("writing run summary")
		}
	}
	if path := e.manifest.Report.Markdown; path != "" {
		if err := report.WriteMarkdown(path, summary); err != nil {
			e.logger.Warn().Err(err).Str("path", path).Msg("writing markdown report")
		}
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
