package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache store contents",
		Long: `Status lists the entries in the cache store with their sizes and ages.
The store location is taken from --cache-dir, the config file, or the default,
in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, rootOpts)
		},
	}
	return cmd
}

func runStatus(cmd *cobra.Command, opts *Options) error {
	// The config is optional here: --cache-dir alone is enough to locate the
	// store.
	cfg, err := loadConfig(opts)
	if err != nil && opts.CacheDir == "" {
		return err
	}

	store, err := openStore(opts, cfg)
	if err != nil {
		return err
	}

	entries := store.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "cache is empty")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "KEY\tSIZE\tAGE\tLAST ACCESS\n")
	now := time.Now()
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Key,
			units.HumanSize(float64(e.Size)),
			units.HumanDuration(now.Sub(e.CreatedAt)),
			units.HumanDuration(now.Sub(e.LastAccess)))
	}
	w.Flush()

	stats := store.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%d entries, %s total\n",
		stats.Entries, units.HumanSize(float64(stats.TotalSize)))
	return nil
}
