package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Saksham20/ginsync"
	"github.com/Saksham20/ginsync/cache"
)

// newLogger builds a console logger at the given level. Logs go to stderr so
// command output on stdout stays parseable.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// loadConfig reads the configured YAML file from the OS filesystem. Relative
// paths in flags and config resolve against the working directory; "~" is
// left for the store to expand.
func loadConfig(opts *Options) (*ginsync.Config, error) {
	path, err := absPath(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := ginsync.LoadConfig(osfs.New("/"), path)
	if err != nil {
		return nil, err
	}

	if cfg.CacheDir, err = absPath(cfg.CacheDir); err != nil {
		return nil, err
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].LocalPath, err = absPath(cfg.Sources[i].LocalPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// cacheDir picks the effective cache directory: flag, then config, then the
// library default.
func cacheDir(opts *Options, cfg *ginsync.Config) (string, error) {
	if opts.CacheDir != "" {
		return absPath(opts.CacheDir)
	}
	if cfg != nil && cfg.CacheDir != "" {
		return cfg.CacheDir, nil
	}
	return ginsync.DefaultCacheDir(), nil
}

// openStore opens the directory store the commands operate on.
func openStore(opts *Options, cfg *ginsync.Config) (*cache.DirStore, error) {
	dir, err := cacheDir(opts, cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewDirStore(dir)
}

func absPath(p string) (string, error) {
	if p == "" || p == "~" || strings.HasPrefix(p, "~/") {
		return p, nil
	}
	return filepath.Abs(p)
}
