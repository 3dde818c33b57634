package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/egv/cmdverify/internal/config"
	"github.com/egv/cmdverify/internal/contracts"
	"github.com/egv/cmdverify/internal/logging"
	"github.com/egv/cmdverify/internal/report"
	"github.com/egv/cmdverify/internal/ui"
	"github.com/egv/cmdverify/internal/ui/tui"
	"github.com/egv/cmdverify/internal/verification"
)

const (
	formatPlain    = "plain"
	formatJSONL    = "jsonl"
	formatMarkdown = "markdown"
)

const markdownWidth = 100

var runTUI = func(ctx context.Context, out io.Writer, verify func(context.Context, contracts.EventSink) error) error {
	return tui.Run(ctx, out, verify)
}

func runChecks(ctx context.Context, global *globalOptions, run *runOptions, stdout io.Writer, stderr io.Writer) error {
	logger, err := newLogger(global, stderr)
	if err != nil {
		return err
	}
	format := strings.ToLower(strings.TrimSpace(run.format))
	switch format {
	case formatPlain, formatJSONL, formatMarkdown:
	default:
		return verification.NewConfigurationError(
			fmt.Sprintf("unknown output format %q", run.format),
			"Use --format plain, --format jsonl or --format markdown.",
		)
	}

	opts := verificationOptions(global, logger)
	opts.Only = run.only
	opts.FailFast = run.failFast
	opts.Concurrency = run.concurrency
	if logger.GetLevel() <= zerolog.DebugLevel {
		opts.Echo = stderr
	}

	if run.tui {
		if isTerminal(stdout) {
			if format != formatPlain {
				logger.Info().Str("format", format).Msg("--tui replaces --format output on a terminal")
			}
			return runTUI(ctx, stdout, func(ctx context.Context, sink contracts.EventSink) error {
				opts.Sink = sink
				return verification.RunVerification(ctx, opts)
			})
		}
		logger.Info().Msg("stdout is not a terminal; using plain progress instead of --tui")
	}

	switch format {
	case formatJSONL:
		opts.Sink = contracts.NewStreamEventSink(stdout)
	case formatMarkdown:
		summary, runErr := verification.Execute(ctx, opts)
		if summary.RunID != "" {
			rendered, renderErr := report.RenderTerminal(report.Markdown(summary), markdownWidth, isTerminal(stdout))
			if renderErr != nil {
				logger.Warn().Err(renderErr).Msg("rendering markdown report")
			} else {
				fmt.Fprint(stdout, rendered)
			}
		}
		return runErr
	default:
		opts.Sink = ui.NewLinePrinter(stdout)
	}
	return verification.RunVerification(ctx, opts)
}

func verificationOptions(global *globalOptions, logger zerolog.Logger) verification.Options {
	return verification.Options{
		RepoRoot:   global.repo,
		ConfigPath: configPath(global),
		Logger:     logger,
	}
}

// configPath prefers --config over CMDVERIFY_CONFIG; empty means the default
// location under --repo.
func configPath(global *globalOptions) string {
	if path := strings.TrimSpace(global.config); path != "" {
		return path
	}
	return strings.TrimSpace(os.Getenv(config.EnvConfigPath))
}

func newLogger(global *globalOptions, stderr io.Writer) (zerolog.Logger, error) {
	level := global.logLevel
	if strings.TrimSpace(level) == "" {
		level = os.Getenv(logging.EnvLogLevel)
	}
	logger, err := logging.NewLogger(stderr, level, global.logFormat)
	if err != nil {
		return zerolog.Nop(), verification.WrapConfigurationError(err, "invalid logging options",
			"Use --log-level trace, debug, info, warn or error.",
			"Use --log-format console or json.",
		)
	}
	return logger, nil
}
