// Package cli implements the cleanctl command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataclean/internal/config"
	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/logging"
)

// app carries state shared by subcommands.
type app struct {
	engine   *core.Engine
	logLevel string
	profile  string
	stdout   io.Writer
	stderr   io.Writer
}

// NewRootCmd builds the cleanctl command tree.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		engine: core.NewEngine(),
		stdout: stdout,
		stderr: stderr,
	}

	root := &cobra.Command{
		Use:           "cleanctl",
		Short:         "Clean messy CSV, TSV, JSON and Excel files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.NewLogger(a.logLevel, "text", a.stderr))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.profile, "profile", os.Getenv("CLEAN_PROFILE"), "YAML cleaning profile")

	root.AddCommand(a.newCleanCmd())
	root.AddCommand(a.newDialectsCmd())
	root.AddCommand(a.newHistoryCmd())
	return root
}

// baseOptions returns the defaults with the profile applied.
func (a *app) baseOptions() (core.Options, error) {
	opts := core.DefaultOptions()
	if a.profile == "" {
		return opts, nil
	}
	p, err := config.LoadProfile(a.profile)
	if err != nil {
		return opts, err
	}
	return p.Options(opts), nil
}

// Execute runs cleanctl against the process streams and returns the exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", core.FormatUserError(err))
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}
