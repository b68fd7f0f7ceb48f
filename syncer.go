package ginsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Saksham20/ginsync/cache"
)

// Syncer coordinates fixture pipelines against a shared cache store.
// Construct with New; the zero value is not usable.
type Syncer struct {
	remote RemoteOperations
	store  cache.Store
	fs     billy.Filesystem
	logger *zap.Logger
	auth   Auth

	salt  int
	scope string

	resolveTimeout time.Duration
	fetchTimeout   time.Duration
	concurrency    int
}

// New builds a Syncer. Without options it stores entries under
// DefaultCacheDir() on the OS filesystem, talks to remotes anonymously
// through go-git, and logs nothing.
func New(opts ...Option) (*Syncer, error) {
	options := defaultSyncOptions()
	for _, opt := range opts {
		opt(options)
	}

	s := &Syncer{
		remote:         options.remote,
		store:          options.store,
		fs:             options.fs,
		logger:         options.logger,
		auth:           options.auth,
		salt:           options.salt,
		scope:          options.scope,
		resolveTimeout: options.resolveTimeout,
		fetchTimeout:   options.fetchTimeout,
		concurrency:    options.concurrency,
	}
	if s.salt < 0 {
		return nil, fmt.Errorf("%w: salt must not be negative", ErrInvalidConfig)
	}

	if s.store == nil {
		dir := options.cacheDir
		if dir == "" {
			dir = DefaultCacheDir()
		}
		store, err := cache.NewDirStore(dir, cache.WithFilesystem(s.fs))
		if err != nil {
			return nil, fmt.Errorf("opening cache store: %w", err)
		}
		s.store = store
	}
	if s.remote == nil {
		s.remote = newGitRemoteOps(s.fs, options.scratchDir)
	}
	return s, nil
}

// Sync runs the pipeline for a single source. Pipeline failures are reported
// in the Result, never as a panic; a source that fails validation is
// rejected with StateIdle before the pipeline starts.
func (s *Syncer) Sync(ctx context.Context, src Source) Result {
	if err := src.Validate(); err != nil {
		return Result{
			Name:    src.Name,
			State:   StateIdle,
			Outcome: OutcomeFailed,
			Err:     &PipelineError{Source: src.Name, State: StateIdle, Err: err},
		}
	}
	return s.newPipeline(src).run(ctx)
}

// SyncAll runs every source's pipeline in parallel and returns one Result
// per source, in input order. Configuration problems, including duplicate
// names, fail fast before any pipeline starts. Pipelines are independent: a
// failure in one never aborts the others, so the error return concerns
// configuration only.
func (s *Syncer) SyncAll(ctx context.Context, sources []Source) (*Summary, error) {
	if err := ValidateSources(sources); err != nil {
		return nil, err
	}

	results := make([]Result, len(sources))
	g := &errgroup.Group{}
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = s.newPipeline(src).run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return &Summary{Results: results}, nil
}

// saltFor returns the effective salt for a source.
func (s *Syncer) saltFor(src Source) int {
	if src.Salt != nil {
		return *src.Salt
	}
	return s.salt
}

// cleanWorkDir empties and recreates dir, returning a filesystem rooted
// there.
func (s *Syncer) cleanWorkDir(dir string) (billy.Filesystem, error) {
	if err := util.RemoveAll(s.fs, dir); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return s.fs.Chroot(dir)
}

// DefaultCacheDir returns the default location of the entry store: ginsync/
// under the user cache directory, or .ginsync in the working directory when
// no user cache directory is available.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".ginsync"
	}
	return filepath.Join(base, "ginsync")
}
