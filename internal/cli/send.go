package cli

import (
	"github.com/spf13/cobra"

	"github.com/realikechukwu/cardiology-feed/internal/config"
)

// SendOptions holds flags for the send command.
type SendOptions struct {
	*RootOptions
	LatestJSON       string
	SentState        string
	MaxSummaries     int
	MinAbstractChars int
	Subject          string
	DryRun           bool
	TestMode         bool
	RequeueFailed    bool
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Summarise the digest artifact and email it",
		Long: `Send reads the digest artifact, drops articles emailed by an earlier
run, selects the top studies for summarisation, renders the HTML digest, and
sends it. The sent state advances only after the email has been accepted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _ := buildApp(opts.RootOptions, func(cfg *config.Config) {
				if opts.LatestJSON != "" {
					cfg.Paths.Artifact = opts.LatestJSON
				}
				if opts.SentState != "" {
					cfg.Paths.SentState = opts.SentState
				}
				if cmd.Flags().Changed("max-summaries") {
					cfg.Digest.MaxSummaries = opts.MaxSummaries
				}
				if cmd.Flags().Changed("min-abstract-chars") {
					cfg.Digest.MinAbstractChars = opts.MinAbstractChars
				}
			})
			defer application.Close()

			deliverOpts := application.DeliverOptions()
			deliverOpts.Subject = opts.Subject
			deliverOpts.DryRun = opts.DryRun
			deliverOpts.TestMode = opts.TestMode
			deliverOpts.RequeueFailed = opts.RequeueFailed

			_, err := application.Pipeline().Deliver(cmd.Context(), deliverOpts)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.LatestJSON, "latest-json", "", "digest artifact path (default from config)")
	cmd.Flags().StringVar(&opts.SentState, "sent-state", "", "sent-state ledger path (default from config)")
	cmd.Flags().IntVar(&opts.MaxSummaries, "max-summaries", 10, "maximum articles to summarise")
	cmd.Flags().IntVar(&opts.MinAbstractChars, "min-abstract-chars", 200, "minimum abstract length for summarisation eligibility")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "override the email subject")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "write an HTML preview instead of sending")
	cmd.Flags().BoolVar(&opts.TestMode, "test-mode", false, "skip sent-state reading and writing")
	cmd.Flags().BoolVar(&opts.RequeueFailed, "requeue-failed", false, "list summary-failed articles as headlines instead of deferring them")

	return cmd
}
