package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/egv/cmdverify/internal/logging"
)

// waitDelay bounds how long Run waits for inherited pipes after a timeout
// kill, so grandchildren of sh -c cannot hang a check.
const waitDelay = 2 * time.Second

type Command struct {
	Label   string
	Args    []string
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
	LogPath  string
}

// CommandRunner executes commands, capturing their output and optionally
// echoing progress to out and keeping per-command log files.
type CommandRunner struct {
	logger *logging.CommandLogger
	out    io.Writer
	now    func() time.Time
}

func NewCommandRunner(logDir string, out io.Writer) *CommandRunner {
	return &CommandRunner{
		logger: logging.NewCommandLogger(logDir),
		out:    out,
		now:    time.Now,
	}
}

// Run executes command and waits for it. A non-zero exit or a timeout is
// reported through Result; the error is reserved for commands that could not
// be started and for cancellation of ctx itself.
func (cr *CommandRunner) Run(ctx context.Context, command Command) (Result, error) {
	if len(command.Args) == 0 {
		return Result{ExitCode: -1}, errors.New("empty command")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx := ctx
	cancel := func() {}
	if command.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, command.Timeout)
	}
	defer cancel()

	var stdout, stderr strings.Builder
	cmd := exec.CommandContext(runCtx, command.Args[0], command.Args[1:]...)
	cmd.Dir = command.Dir
	cmd.Env = mergedEnv(command.Env)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	printCommand(cr.out, command.Args)
	start := cr.now()
	err := cmd.Run()
	elapsed := cr.now().Sub(start)

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCodeFromError(err),
		Duration: elapsed,
	}
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
	}

	logPath, logErr := cr.logger.LogCommand(logging.CommandRecord{
		Label:     command.Label,
		Command:   command.Args,
		Dir:       command.Dir,
		Stdout:    result.Stdout,
		Stderr:    result.Stderr,
		ExitCode:  result.ExitCode,
		Err:       err,
		StartTime: start,
		Elapsed:   elapsed,
	})
	if logErr == nil {
		result.LogPath = logPath
	}
	printOutcome(cr.out, result)

	if err == nil || result.TimedOut {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s: %w", strings.Join(command.Args, " "), ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, nil
	}
	return result, fmt.Errorf("%s: %w", strings.Join(command.Args, " "), err)
}

func mergedEnv(overrides map[string]string) []string {
	env := os.Environ()
	if len(overrides) == 0 {
		return env
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}
	return env
}

func printCommand(out io.Writer, args []string) {
	if out == nil {
		return
	}
	fmt.Fprintln(out, "$ "+strings.Join(args, " "))
}

func printOutcome(out io.Writer, result Result) {
	if out == nil {
		return
	}
	status := "ok"
	if result.TimedOut {
		status = "timed out"
	} else if result.ExitCode != 0 {
		status = "failed"
	}
	fmt.Fprintf(out, "%s (exit=%d, elapsed=%s)\n", status, result.ExitCode, FormatElapsed(result.Duration))
}

// FormatElapsed rounds to milliseconds; anything shorter prints as 0ms.
func FormatElapsed(elapsed time.Duration) string {
	if elapsed < time.Millisecond {
		return "0ms"
	}
	return elapsed.Round(time.Millisecond).String()
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
