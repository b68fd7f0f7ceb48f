// Package cache stores materialized directory trees as compressed archives
// keyed by opaque strings.
//
// # Overview
//
// The store holds one zstd-compressed tar archive per key plus a JSON
// metadata index:
//
//	~/.cache/ginsync/
//	├── index.json               # Entry metadata
//	└── entries/
//	    ├── ecephys-v1-8f4e….tar.zst
//	    └── ophys-v1-77b0….tar.zst
//
// Entries are immutable: a key is stored at most once, repeated saves of the
// same key are no-ops, and a changed tree must be saved under a new key.
// Archives are packed to a temporary file and renamed into place, so an
// interrupted save never leaves a restorable half-written entry.
//
// # Lookup
//
// Restore first tries the exact key, then each restore-key prefix in the
// order given, most specific first. A prefix match restores the newest entry
// whose key starts with that prefix and reports it as a partial hit:
//
//	result, err := store.Restore(ctx, key.Value, key.RestoreKeys, dst)
//	switch result.Kind {
//	case cache.HitExact:   // dst holds the exact tree, nothing to fetch
//	case cache.HitPartial: // dst holds a related tree, fetch the difference
//	case cache.HitNone:    // dst untouched, fetch everything
//	}
//
// # Eviction
//
// Prune removes entries selected by one or more strategies, and StartGC runs
// Prune on an interval:
//
//	stop := store.StartGC(time.Hour,
//	    cache.PruneOlderThan(7*24*time.Hour),
//	    cache.PruneToSize(10<<30))
//	defer stop()
package cache
