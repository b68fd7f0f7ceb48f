package cli

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/Saksham20/ginsync/cache"
)

// PruneOptions holds flags for the prune command.
type PruneOptions struct {
	*Options
	OlderThan time.Duration
	MaxSize   string
}

// NewPruneCommand creates the prune command.
func NewPruneCommand(rootOpts *Options) *cobra.Command {
	opts := &PruneOptions{Options: rootOpts}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Evict old cache entries",
		Long: `Prune removes cache entries by age, total size, or both. Local dataset
copies are untouched; evicted revisions are simply refetched next time they
are needed.

Example:
  ginsync prune --older-than 168h
  ginsync prune --max-size 10GB`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.OlderThan, "older-than", 0, "evict entries not accessed within this duration")
	cmd.Flags().StringVar(&opts.MaxSize, "max-size", "", "evict least recently used entries above this total size (e.g. 10GB)")

	return cmd
}

func runPrune(cmd *cobra.Command, opts *PruneOptions) error {
	var strategies []cache.PruneStrategy
	if opts.OlderThan > 0 {
		strategies = append(strategies, cache.PruneOlderThan(opts.OlderThan))
	}
	if opts.MaxSize != "" {
		maxBytes, err := units.FromHumanSize(opts.MaxSize)
		if err != nil {
			return fmt.Errorf("invalid --max-size %q: %w", opts.MaxSize, err)
		}
		strategies = append(strategies, cache.PruneToSize(maxBytes))
	}
	if len(strategies) == 0 {
		return fmt.Errorf("nothing to do: pass --older-than and/or --max-size")
	}

	cfg, err := loadConfig(opts.Options)
	if err != nil && opts.CacheDir == "" {
		return err
	}
	store, err := openStore(opts.Options, cfg)
	if err != nil {
		return err
	}

	removed, err := store.Prune(cmd.Context(), strategies...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d entries\n", removed)
	return nil
}
