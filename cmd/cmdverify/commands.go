package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/egv/cmdverify/internal/config"
	"github.com/egv/cmdverify/internal/verification"
)

func newValidateCommand(global *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the manifest without running any check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			manifest, err := verification.LoadManifest(verificationOptions(global, logger))
			if err != nil {
				return err
			}
			logger.Debug().Str("path", manifest.Path).Int("checks", len(manifest.Checks)).Msg("manifest loaded")
			fmt.Fprintln(stdout, "config is valid")
			return nil
		},
	}
}

func newInitCommand(global *globalOptions, stdout io.Writer) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter manifest to .cmdverify/config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.WriteStarter(global.repo, force)
			if err != nil {
				return verification.AsConfigurationError(err)
			}
			fmt.Fprintf(stdout, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing manifest")
	return cmd
}

func newListCommand(global *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the manifest's checks and their commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			manifest, err := verification.LoadManifest(verificationOptions(global, logger))
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			for _, check := range manifest.Checks {
				command := strings.Join(check.Command(), " ")
				if check.Optional {
					command += " (optional)"
				}
				fmt.Fprintf(writer, "%s\t%s\n", check.Name, command)
			}
			return writer.Flush()
		},
	}
}

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cmdverify version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(stdout, "cmdverify %s\n", version)
		},
	}
}
