package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/egv/cmdverify/internal/cli"
	"github.com/egv/cmdverify/internal/logging"
)

var version = "dev"

var isTerminal = func(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok || file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// isEntryPoint stays true for the built binary whatever argv[0] says.
var isEntryPoint = func() bool { return true }

func main() {
	os.Exit(RunMain(os.Args[1:], os.Stdout, os.Stderr))
}

// RunMain parses args, runs the selected command through the command runner
// and returns the exit status once every deferred cleanup has run.
func RunMain(args []string, stdout io.Writer, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := &cli.ExitStatus{}
	runner := &cli.Runner{
		Verify: func(ctx context.Context) error {
			root := newRootCommand(stdout, stderr)
			root.SetArgs(args)
			return root.ExecuteContext(ctx)
		},
		Stderr: stderr,
		Status: status,
	}
	runner.RunIfEntryPoint(ctx, isEntryPoint())
	return status.Code()
}

type globalOptions struct {
	repo      string
	config    string
	logLevel  string
	logFormat string
}

type runOptions struct {
	only        []string
	failFast    bool
	concurrency int
	format      string
	tui         bool
}

func newRootCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	global := &globalOptions{}
	run := &runOptions{}

	root := &cobra.Command{
		Use:   "cmdverify",
		Short: "Run the command checks declared in .cmdverify/config.yaml",
		Long: `cmdverify runs a declared list of commands and verifies that each one
exits and prints what the manifest expects. Without a subcommand it runs
every check; see "cmdverify init" for a starter manifest.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChecks(cmd.Context(), global, run, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	addGlobalFlags(root.PersistentFlags(), global)
	addRunFlags(root.Flags(), run)

	root.AddCommand(
		newValidateCommand(global, stdout),
		newInitCommand(global, stdout),
		newListCommand(global, stdout),
		newVersionCommand(stdout),
	)
	return root
}

func addGlobalFlags(flags *pflag.FlagSet, opts *globalOptions) {
	flags.StringVar(&opts.repo, "repo", ".", "Repository root")
	flags.StringVar(&opts.config, "config", "", "Manifest path (default .cmdverify/config.yaml; env CMDVERIFY_CONFIG)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Diagnostics level: trace, debug, info, warn, error (default warn; env CMDVERIFY_LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", logging.FormatConsole, "Diagnostics format: console or json")
}

func addRunFlags(flags *pflag.FlagSet, opts *runOptions) {
	flags.StringSliceVar(&opts.only, "only", nil, "Run only the named checks (comma-separated or repeated)")
	flags.BoolVar(&opts.failFast, "fail-fast", false, "Stop launching checks after the first failure")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Checks to run at once (0 keeps the manifest value)")
	flags.StringVar(&opts.format, "format", formatPlain, "Progress output: plain, jsonl or markdown")
	flags.BoolVar(&opts.tui, "tui", false, "Show interactive progress when stdout is a terminal")
}
