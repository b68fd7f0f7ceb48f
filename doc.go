// Package ginsync synchronizes test-fixture datasets from remote git
// repositories, fetching only when the upstream content has actually
// changed.
//
// # Overview
//
// Large fixture datasets (electrophysiology recordings, imaging stacks,
// behavioral sessions) are expensive to download and change rarely. ginsync
// keys a local cache by the remote repository's head revision: when the
// revision a dataset was cached at is still the remote's head, the cached
// tree is materialized and no data is transferred. When the remote moves, a
// new cache key is derived and the dataset is fetched again, reusing
// unchanged files from the closest older entry where possible.
//
// Each configured dataset runs through an independent pipeline:
//
//  1. Resolve the remote's HEAD to a revision id (a cheap ls-remote round
//     trip, no data transfer).
//  2. Derive the cache key from (salt, name, revision), plus restore-key
//     prefixes for fallback matching.
//  3. Look the key up in the cache store.
//  4. On an exact hit, materialize the cached tree and skip fetching. On a
//     partial hit, seed the local path from the matched entry and fetch only
//     the files that differ. On a miss, fetch everything.
//  5. Save freshly fetched trees back to the store under the new key.
//
// Cache trouble is never fatal: a failed lookup degrades to a full fetch and
// a failed save leaves the fetched tree in place, both with a warning.
// Resolution and fetch failures are fatal for that pipeline only; sibling
// datasets keep running.
//
// # Usage
//
// Synchronize three datasets against a shared store:
//
//	syncer, err := ginsync.New(
//	    ginsync.WithSalt(1),
//	    ginsync.WithCacheDir("/var/cache/ginsync"),
//	    ginsync.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	summary, err := syncer.SyncAll(ctx, []ginsync.Source{
//	    {Name: "ecephys", Remote: "https://gin.g-node.org/NeuralEnsemble/ephy_testing_data", LocalPath: "/data/ephy"},
//	    {Name: "ophys", Remote: "https://gin.g-node.org/CatalystNeuro/ophys_testing_data", LocalPath: "/data/ophys"},
//	    {Name: "behavior", Remote: "https://gin.g-node.org/CatalystNeuro/behavior_testing_data", LocalPath: "/data/behavior"},
//	})
//	if err != nil {
//	    return err // configuration problem; nothing ran
//	}
//	for _, r := range summary.Results {
//	    fmt.Println(r.Name, r.Outcome)
//	}
//
// A single dataset, bounded and restricted to part of the tree:
//
//	syncer, err := ginsync.New(ginsync.WithFetchTimeout(30 * time.Minute))
//	result := syncer.Sync(ctx, ginsync.Source{
//	    Name:      "ecephys",
//	    Remote:    "https://gin.g-node.org/NeuralEnsemble/ephy_testing_data",
//	    Subpaths:  []string{"blackrock", "plexon"},
//	    LocalPath: "/data/ephy",
//	})
//	if result.Err != nil {
//	    return result.Err
//	}
//
// # Cache Keys
//
// Keys have a readable layout:
//
//	[scope-]<name>-v<salt>-<sha256(salt, name, revision)>
//
// The salt versions the whole keyspace: bumping it (globally, or per source
// via Source.Salt) forces fresh fetches without deleting any entries. The
// optional scope keeps environments that must not share entries (say, Linux
// and macOS runners writing to one store) apart. Restore keys are literal
// prefixes of the key, so "same dataset and salt, older revision" entries
// can seed a partial restore.
//
// # Pipeline States
//
// Pipelines move through an explicit state machine, surfaced in Result and
// in debug logs:
//
//	Idle → Resolving → KeyBuilt → CacheChecked → Skipped  ────────────→ Done
//	                                           ↘ Fetching → Stored ────→ Done
//	                                                      ↘ StoreFailed → Done
//
// Failures move the pipeline to Fatal; the PipelineError in Result.Err
// records the state the failure happened in. Cancelling the context aborts
// cleanly between states without corrupting the store.
//
// # Filesystem Abstraction
//
// All I/O goes through go-billy filesystems: local paths, the entry store,
// and fetch scratch space. Production code uses the OS filesystem; tests run
// entirely in memory by passing WithFilesystem(memfs.New()).
//
// # Authentication
//
// Remote access is anonymous by default. BasicAuth, TokenAuth, and
// SSHKeyAuth build credentials for private repositories:
//
//	syncer, err := ginsync.New(
//	    ginsync.WithAuth(ginsync.BasicAuth("ci", os.Getenv("GIN_TOKEN"))),
//	)
//
// # Testing
//
// The RemoteOperations interface is the seam for unit tests: inject a fake
// with WithRemoteOperations to script listings and fetches. The testutil
// package builds real fixture repositories and serves them over go-git's
// in-process file transport for end-to-end tests without a git binary or a
// network.
package ginsync
