package cache

import (
	"context"
	"errors"

	"github.com/go-git/go-billy/v5"
)

// HitKind classifies the outcome of a cache lookup.
type HitKind int

const (
	// HitNone means no entry matched the key or any restore key.
	HitNone HitKind = iota
	// HitPartial means an entry matched a restore-key prefix but not the key
	// itself. The restored tree is a starting point, not the target revision.
	HitPartial
	// HitExact means an entry matched the key exactly.
	HitExact
)

// String returns a human-readable name for the hit kind.
func (k HitKind) String() string {
	switch k {
	case HitNone:
		return "none"
	case HitPartial:
		return "partial"
	case HitExact:
		return "exact"
	default:
		return "unknown"
	}
}

var (
	// ErrUnavailable indicates the backing store cannot be opened or written.
	ErrUnavailable = errors.New("cache store unavailable")

	// ErrCorruptEntry indicates an entry is present in the index but its
	// archive is missing or unreadable.
	ErrCorruptEntry = errors.New("cache entry corrupt")
)

// RestoreResult describes what a Restore call materialized.
type RestoreResult struct {
	// Key is the key of the entry that was restored. For partial hits this is
	// the matched entry's key, not the requested one. Empty when Kind is
	// HitNone.
	Key string

	// Kind reports whether the hit was exact, partial, or absent.
	Kind HitKind
}

// Store persists materialized directory trees under opaque string keys.
//
// Entries are immutable: a key is written at most once and never updated in
// place. Callers that need to store a changed tree must use a new key.
type Store interface {
	// Restore looks up key, then each restoreKey prefix in order, and unpacks
	// the first matching entry into dst. dst is expected to be empty; Restore
	// never removes files already present. A miss is not an error: the result
	// reports HitNone and dst is left untouched.
	Restore(ctx context.Context, key string, restoreKeys []string, dst billy.Filesystem) (*RestoreResult, error)

	// Save archives the contents of src under key. Saving a key that already
	// exists is a no-op, so concurrent saves of the same key store exactly one
	// entry. A partially written archive is never visible to Restore.
	Save(ctx context.Context, key string, src billy.Filesystem) error
}
