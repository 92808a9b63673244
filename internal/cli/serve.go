package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/realikechukwu/cardiology-feed/internal/config"
	"github.com/realikechukwu/cardiology-feed/internal/infrastructure/scheduler"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewServeCommand creates the serve command: the full pipeline on a
// recurring interval, until interrupted.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on a recurring schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			var interval time.Duration
			application, logger := buildApp(opts.RootOptions, func(cfg *config.Config) {
				if cmd.Flags().Changed("interval") {
					cfg.Scheduler.Interval = opts.Interval.String()
				}
				interval = cfg.Scheduler.IntervalDuration()
			})
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			driver := scheduler.NewIntervalScheduler(interval)
			job := func() {
				if err := application.Pipeline().Run(ctx, application.FetchOptions(), application.DeliverOptions()); err != nil {
					logger.Error("scheduled run failed", "error", err)
				}
			}

			logger.Info("scheduler started", "interval", interval.String())
			if err := driver.Start(ctx, job); err != nil {
				return err
			}

			<-ctx.Done()
			return driver.Stop(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 7*24*time.Hour, "time between runs")

	return cmd
}
