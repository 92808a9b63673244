package cli

import (
	"github.com/spf13/cobra"

	"github.com/realikechukwu/cardiology-feed/internal/config"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Days              int
	Max               int
	Email             string
	APIKey            string
	IncludeNoAbstract bool
	NoDedupe          bool
	DryRunEmail       bool
	TestMode          bool
	Subject           string
}

// NewRunCommand creates the run command, the fetch+send pass a scheduled job
// would execute.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full fetch + send pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _ := buildApp(opts.RootOptions, func(cfg *config.Config) {
				if cmd.Flags().Changed("days") {
					cfg.Digest.Days = opts.Days
				}
				if cmd.Flags().Changed("max") {
					cfg.Digest.MaxResults = opts.Max
				}
				if opts.Email != "" {
					cfg.PubMed.Email = opts.Email
				}
				if opts.APIKey != "" {
					cfg.PubMed.APIKey = opts.APIKey
				}
				if opts.IncludeNoAbstract {
					cfg.Digest.IncludeLowQuality = true
				}
			})
			defer application.Close()

			fetchOpts := application.FetchOptions()
			fetchOpts.DisableDedupe = opts.NoDedupe
			fetchOpts.TestMode = opts.TestMode

			deliverOpts := application.DeliverOptions()
			deliverOpts.Subject = opts.Subject
			deliverOpts.DryRun = opts.DryRunEmail
			deliverOpts.TestMode = opts.TestMode

			return application.Pipeline().Run(cmd.Context(), fetchOpts, deliverOpts)
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", 7, "look back this many days")
	cmd.Flags().IntVar(&opts.Max, "max", 300, "maximum PMIDs to retrieve")
	cmd.Flags().StringVar(&opts.Email, "email", "", "NCBI contact email (or set NCBI_EMAIL)")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "NCBI API key (or set NCBI_API_KEY)")
	cmd.Flags().BoolVar(&opts.IncludeNoAbstract, "include-no-abstract", false, "route abstract-less articles to needs-review instead of dropping them")
	cmd.Flags().BoolVar(&opts.NoDedupe, "no-dedupe", false, "disable seen-state dedupe in the fetch step")
	cmd.Flags().BoolVar(&opts.DryRunEmail, "dry-run-email", false, "write an HTML preview instead of sending")
	cmd.Flags().BoolVar(&opts.TestMode, "test-mode", false, "skip all state reading and writing")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "override the email subject")

	return cmd
}
