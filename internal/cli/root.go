// Package cli defines the cardiologyfeed command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/realikechukwu/cardiology-feed/internal/app"
	"github.com/realikechukwu/cardiology-feed/internal/config"
	"github.com/realikechukwu/cardiology-feed/internal/logging"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cardiologyfeed",
		Short: "Weekly cardiology literature digest",
		Long: `cardiologyfeed fetches recent articles from the top cardiology journals
via PubMed, classifies and filters them into a digest, summarises the top
studies, and emails the result. Seen and sent state is tracked across runs so
no article is surfaced or emailed twice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		NewFetchCommand(opts),
		NewSendCommand(opts),
		NewRunCommand(opts),
		NewServeCommand(opts),
	)
	return cmd
}

// buildApp loads configuration, applies the verbosity flag, and wires the
// application.
func buildApp(opts *RootOptions, mutate func(*config.Config)) (*app.Application, *slog.Logger) {
	cfg := config.Load()
	if mutate != nil {
		mutate(&cfg)
	}
	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.New(level)
	return app.New(cfg, logger), logger
}
