// Package cli implements the ginsync command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// Options holds global flags shared by all subcommands.
type Options struct {
	ConfigPath string
	CacheDir   string
	LogLevel   string
}

// NewRootCommand creates the root command for the ginsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "ginsync",
		Short: "Synchronize test-fixture datasets keyed by upstream revision",
		Long: `ginsync keeps local copies of remote fixture datasets up to date while
fetching as little as possible. Each dataset is keyed by the head revision of
its repository: unchanged upstream content is materialized from a local cache,
and only moved revisions trigger a fetch.

Datasets are declared in a YAML config file; see "ginsync sync --help" for the
expected layout.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "ginsync.yaml", "path to the sources config file")
	cmd.PersistentFlags().StringVar(&opts.CacheDir, "cache-dir", "", "cache directory (overrides the config file)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log verbosity (debug|info|warn|error)")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewPruneCommand(opts))

	return cmd
}
