package ginsync

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"

	"github.com/Saksham20/ginsync/cache"
)

// DefaultResolveTimeout bounds head-revision resolution unless overridden
// with WithResolveTimeout. Resolution is a single round trip, so a hung
// remote should fail quickly rather than stall the whole run.
const DefaultResolveTimeout = 30 * time.Second

// Option configures a Syncer.
type Option func(*syncOptions)

type syncOptions struct {
	remote     RemoteOperations
	store      cache.Store
	fs         billy.Filesystem
	logger     *zap.Logger
	auth       Auth
	salt       int
	scope      string
	cacheDir   string
	scratchDir string

	resolveTimeout time.Duration
	fetchTimeout   time.Duration
	concurrency    int
}

func defaultSyncOptions() *syncOptions {
	return &syncOptions{
		fs:             osfs.New("/"),
		logger:         zap.NewNop(),
		salt:           1,
		scratchDir:     filepath.Join(os.TempDir(), "ginsync"),
		resolveTimeout: DefaultResolveTimeout,
	}
}

// WithSalt sets the cache salt embedded in every key. Bumping the salt
// invalidates all existing entries without touching them. Defaults to 1.
//
// Example:
//
//	syncer, err := ginsync.New(ginsync.WithSalt(3))
func WithSalt(salt int) Option {
	return func(o *syncOptions) {
		o.salt = salt
	}
}

// WithScope prepends a scope segment to every key so environments that must
// not share entries (for example different operating systems writing to a
// shared store) stay separate. Defaults to no scope.
func WithScope(scope string) Option {
	return func(o *syncOptions) {
		o.scope = scope
	}
}

// WithStore sets the cache store. Defaults to a DirStore under
// DefaultCacheDir().
func WithStore(store cache.Store) Option {
	return func(o *syncOptions) {
		o.store = store
	}
}

// WithCacheDir sets the directory of the default DirStore. Ignored when
// WithStore is also given.
func WithCacheDir(dir string) Option {
	return func(o *syncOptions) {
		o.cacheDir = dir
	}
}

// WithFilesystem sets the filesystem used for local paths, the default
// store, and fetch scratch space. Defaults to the OS filesystem.
//
// Example:
//
//	syncer, err := ginsync.New(ginsync.WithFilesystem(memfs.New()))
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *syncOptions) {
		o.fs = fs
	}
}

// WithScratchDir sets the directory fetches clone into before
// materialization. Defaults to ginsync/ under the system temp directory.
func WithScratchDir(dir string) Option {
	return func(o *syncOptions) {
		o.scratchDir = dir
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *syncOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuth sets the credential used for all remote operations. Defaults to
// anonymous access.
//
// Example:
//
//	syncer, err := ginsync.New(ginsync.WithAuth(ginsync.TokenAuth(os.Getenv("GIN_TOKEN"))))
func WithAuth(auth Auth) Option {
	return func(o *syncOptions) {
		o.auth = auth
	}
}

// WithRemoteOperations replaces the go-git backed remote operations,
// primarily for tests.
func WithRemoteOperations(ops RemoteOperations) Option {
	return func(o *syncOptions) {
		o.remote = ops
	}
}

// WithResolveTimeout bounds each head-revision resolution. Zero disables the
// bound. Defaults to DefaultResolveTimeout.
func WithResolveTimeout(d time.Duration) Option {
	return func(o *syncOptions) {
		o.resolveTimeout = d
	}
}

// WithFetchTimeout bounds each fetch. Zero, the default, leaves fetches
// unbounded; dataset transfers can legitimately run for a long time.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *syncOptions) {
		o.fetchTimeout = d
	}
}

// WithConcurrency caps how many pipelines run at once during SyncAll. Zero,
// the default, runs all pipelines concurrently.
func WithConcurrency(n int) Option {
	return func(o *syncOptions) {
		o.concurrency = n
	}
}
