package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/klauspost/compress/zstd"
)

const (
	entriesDir = "entries"
	indexFile  = "index.json"
	archiveExt = ".tar.zst"
)

// DirStore is a Store backed by a directory of zstd-compressed tar archives
// with a JSON metadata index.
//
// Layout:
//
//	<base>/
//	├── index.json
//	└── entries/
//	    ├── ecephys-v1-8f4e21ab….tar.zst
//	    └── ophys-v1-77b03c9d….tar.zst
//
// A single DirStore is safe for concurrent use. Archives become visible to
// Restore only after a completed Save renames them into place, so an aborted
// Save never leaves a readable half-written entry.
type DirStore struct {
	mu    sync.Mutex
	fs    billy.Filesystem
	index *storeIndex
	level zstd.EncoderLevel
}

var _ Store = (*DirStore)(nil)

// NewDirStore opens the store rooted at basePath, creating the directory
// structure if needed. basePath may start with "~/" to refer to the user's
// home directory; otherwise it is resolved against the configured filesystem.
func NewDirStore(basePath string, opts ...Option) (*DirStore, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	basePath, err := expandHome(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := options.fs.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", ErrUnavailable, basePath, err)
	}
	base, err := options.fs.Chroot(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrUnavailable, basePath, err)
	}
	if err := base.MkdirAll(entriesDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating entries directory: %w", ErrUnavailable, err)
	}

	index, err := loadOrCreateIndex(base, indexFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return &DirStore{
		fs:    base,
		index: index,
		level: options.level,
	}, nil
}

// Restore implements Store. Lookup failures caused by damaged entries are
// reported as ErrCorruptEntry so callers can degrade to a full fetch.
func (s *DirStore) Restore(ctx context.Context, key string, restoreKeys []string, dst billy.Filesystem) (*RestoreResult, error) {
	s.mu.Lock()
	meta := s.index.get(key)
	kind := HitExact
	if meta == nil {
		meta = s.bestRestoreMatch(restoreKeys)
		kind = HitPartial
	}
	if meta == nil {
		s.mu.Unlock()
		return &RestoreResult{Kind: HitNone}, nil
	}
	f, err := s.fs.Open(entryPath(meta.Key))
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptEntry, meta.Key, err)
	}
	defer f.Close()

	if err := unpackTree(ctx, f, dst); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptEntry, meta.Key, err)
	}

	s.touch(meta.Key)
	return &RestoreResult{Key: meta.Key, Kind: kind}, nil
}

// Save implements Store. The archive is packed to a temporary file and
// renamed into place; the loser of a concurrent save of the same key discards
// its work.
func (s *DirStore) Save(ctx context.Context, key string, src billy.Filesystem) error {
	if key == "" || strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("invalid cache key %q", key)
	}

	s.mu.Lock()
	exists := s.index.get(key) != nil
	s.mu.Unlock()
	if exists {
		return nil
	}

	tmp, err := s.fs.TempFile(entriesDir, key+".tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temporary archive: %w", ErrUnavailable, err)
	}
	tmpName := tmp.Name()

	if err := packTree(ctx, src, tmp, s.level); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: archiving %s: %w", ErrUnavailable, key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("%w: archiving %s: %w", ErrUnavailable, key, err)
	}
	fi, err := s.fs.Stat(tmpName)
	if err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("%w: archiving %s: %w", ErrUnavailable, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index.get(key) != nil {
		_ = s.fs.Remove(tmpName)
		return nil
	}
	if err := s.fs.Rename(tmpName, entryPath(key)); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("%w: storing %s: %w", ErrUnavailable, key, err)
	}
	now := time.Now()
	s.index.set(&EntryMetadata{
		Key:        key,
		Size:       fi.Size(),
		CreatedAt:  now,
		LastAccess: now,
	})
	if err := s.index.save(s.fs, indexFile); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Entries returns metadata for all stored entries, newest first.
func (s *DirStore) Entries() []EntryMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EntryMetadata, 0, len(s.index.Entries))
	for _, meta := range s.index.Entries {
		out = append(out, *meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Stats summarizes the store contents.
type Stats struct {
	// Entries is the number of stored archives.
	Entries int
	// TotalSize is the sum of compressed archive sizes in bytes.
	TotalSize int64
	// Oldest and Newest bound the creation times of stored entries. Both are
	// zero when the store is empty.
	Oldest time.Time
	Newest time.Time
}

// Stats reports aggregate information about the store.
func (s *DirStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	for _, meta := range s.index.Entries {
		stats.Entries++
		stats.TotalSize += meta.Size
		if stats.Oldest.IsZero() || meta.CreatedAt.Before(stats.Oldest) {
			stats.Oldest = meta.CreatedAt
		}
		if meta.CreatedAt.After(stats.Newest) {
			stats.Newest = meta.CreatedAt
		}
	}
	return stats
}

// bestRestoreMatch returns the newest entry whose key begins with the first
// restore key that matches anything, or nil. Caller holds s.mu.
func (s *DirStore) bestRestoreMatch(restoreKeys []string) *EntryMetadata {
	for _, prefix := range restoreKeys {
		if prefix == "" {
			continue
		}
		var best *EntryMetadata
		for key, meta := range s.index.Entries {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if best == nil || meta.CreatedAt.After(best.CreatedAt) {
				best = meta
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// touch bumps an entry's LastAccess time. Index persistence is best effort
// here; a failed write only skews prune ordering.
func (s *DirStore) touch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.index.get(key)
	if meta == nil {
		return
	}
	meta.LastAccess = time.Now()
	_ = s.index.save(s.fs, indexFile)
}

func entryPath(key string) string {
	return entriesDir + "/" + key + archiveExt
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", p, err)
	}
	if p == "~" {
		return home, nil
	}
	return home + p[1:], nil
}
