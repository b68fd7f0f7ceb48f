package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Saksham20/ginsync"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*Options
	ResolveTimeout time.Duration
	FetchTimeout   time.Duration
	Concurrency    int
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *Options) *cobra.Command {
	opts := &SyncOptions{Options: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync [source...]",
		Short: "Bring local dataset copies up to date with their remotes",
		Long: `Sync resolves each source's remote HEAD, checks the cache for a tree at
that revision, and fetches only on a miss. With no arguments every configured
source is synced; naming sources restricts the run to those.

Sources come from the config file:

  salt: 1
  sources:
    - name: ecephys
      remote: https://gin.g-node.org/NeuralEnsemble/ephy_testing_data
      localPath: ./data/ephy_testing_data
    - name: ophys
      remote: https://gin.g-node.org/CatalystNeuro/ophys_testing_data
      localPath: ./data/ophys_testing_data

Example:
  ginsync sync
  ginsync sync ecephys --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts, args)
		},
	}

	cmd.Flags().DurationVar(&opts.ResolveTimeout, "resolve-timeout", ginsync.DefaultResolveTimeout, "timeout for resolving a remote's head revision")
	cmd.Flags().DurationVar(&opts.FetchTimeout, "fetch-timeout", 0, "timeout for fetching one dataset (0 = unbounded)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "max sources synced at once (0 = all)")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions, args []string) error {
	logger, err := newLogger(opts.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := loadConfig(opts.Options)
	if err != nil {
		return err
	}
	sources, err := cfg.Select(args)
	if err != nil {
		return err
	}
	store, err := openStore(opts.Options, cfg)
	if err != nil {
		return err
	}

	syncer, err := ginsync.New(
		ginsync.WithSalt(cfg.Salt),
		ginsync.WithScope(cfg.Scope),
		ginsync.WithStore(store),
		ginsync.WithLogger(logger),
		ginsync.WithResolveTimeout(opts.ResolveTimeout),
		ginsync.WithFetchTimeout(opts.FetchTimeout),
		ginsync.WithConcurrency(opts.Concurrency),
	)
	if err != nil {
		return err
	}

	summary, err := syncer.SyncAll(cmd.Context(), sources)
	if err != nil {
		return err
	}

	printSummary(cmd, summary)
	if failed := summary.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(summary.Results))
	}
	return nil
}

func printSummary(cmd *cobra.Command, summary *ginsync.Summary) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	for _, r := range summary.Results {
		switch r.Outcome {
		case ginsync.OutcomeSkipped:
			fmt.Fprintf(w, "%s\tskipped\trev %s\tcache %s\n", r.Name, shortRev(r.Revision), r.Hit)
		case ginsync.OutcomeFetched:
			fmt.Fprintf(w, "%s\tfetched\trev %s\tcache %s\t%s\n", r.Name, shortRev(r.Revision), r.Hit, r.DurationFetch.Round(time.Millisecond))
		default:
			fmt.Fprintf(w, "%s\tfailed\t%v\n", r.Name, r.Err)
		}
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "%d sources: %d fetched, %d skipped, %d failed\n",
		len(summary.Results), summary.Fetched(), summary.Skipped(), summary.Failed())
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	if rev == "" {
		return "-"
	}
	return rev
}
