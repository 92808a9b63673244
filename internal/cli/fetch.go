package cli

import (
	"github.com/spf13/cobra"

	"github.com/realikechukwu/cardiology-feed/internal/config"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Days              int
	Max               int
	Out               string
	Email             string
	APIKey            string
	IncludeNoAbstract bool
	NoDedupe          bool
	TestMode          bool
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and classify recent articles into the digest artifact",
		Long: `Fetch searches PubMed for articles from the configured journals within
the trailing window, classifies them, drops anything surfaced by an earlier
run, and writes the digest artifact JSON. The seen state advances only after
the artifact has been written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _ := buildApp(opts.RootOptions, func(cfg *config.Config) {
				if cmd.Flags().Changed("days") {
					cfg.Digest.Days = opts.Days
				}
				if cmd.Flags().Changed("max") {
					cfg.Digest.MaxResults = opts.Max
				}
				if opts.Out != "" {
					cfg.Paths.Artifact = opts.Out
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

			_, err := application.Pipeline().Fetch(cmd.Context(), fetchOpts)
			return err
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", 7, "look back this many days")
	cmd.Flags().IntVar(&opts.Max, "max", 300, "maximum PMIDs to retrieve")
	cmd.Flags().StringVar(&opts.Out, "out", "", "digest artifact path (default from config)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "NCBI contact email (or set NCBI_EMAIL)")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "NCBI API key (or set NCBI_API_KEY)")
	cmd.Flags().BoolVar(&opts.IncludeNoAbstract, "include-no-abstract", false, "route abstract-less articles to needs-review instead of dropping them")
	cmd.Flags().BoolVar(&opts.NoDedupe, "no-dedupe", false, "disable seen-state dedupe")
	cmd.Flags().BoolVar(&opts.TestMode, "test-mode", false, "skip seen-state reading and writing")

	return cmd
}
