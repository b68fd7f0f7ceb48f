package cache

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// PruneStrategy selects entries to evict from a candidate list. Strategies
// must not mutate the metadata they are given.
type PruneStrategy func(entries []EntryMetadata) []EntryMetadata

// PruneOlderThan evicts entries that have not been restored or stored within
// age.
func PruneOlderThan(age time.Duration) PruneStrategy {
	return func(entries []EntryMetadata) []EntryMetadata {
		cutoff := time.Now().Add(-age)
		var victims []EntryMetadata
		for _, meta := range entries {
			if meta.LastAccess.Before(cutoff) {
				victims = append(victims, meta)
			}
		}
		return victims
	}
}

// PruneToSize evicts least recently accessed entries until the total archive
// size is at most maxBytes.
func PruneToSize(maxBytes int64) PruneStrategy {
	return func(entries []EntryMetadata) []EntryMetadata {
		var total int64
		for _, meta := range entries {
			total += meta.Size
		}
		if total <= maxBytes {
			return nil
		}

		sorted := make([]EntryMetadata, len(entries))
		copy(sorted, entries)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].LastAccess.Before(sorted[j].LastAccess)
		})

		var victims []EntryMetadata
		for _, meta := range sorted {
			if total <= maxBytes {
				break
			}
			victims = append(victims, meta)
			total -= meta.Size
		}
		return victims
	}
}

// Prune applies each strategy to the current entries and removes everything
// any of them selected. It returns the number of entries removed.
func (s *DirStore) Prune(ctx context.Context, strategies ...PruneStrategy) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]EntryMetadata, 0, len(s.index.Entries))
	for _, meta := range s.index.Entries {
		entries = append(entries, *meta)
	}

	victims := make(map[string]struct{})
	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for _, meta := range strategy(entries) {
			victims[meta.Key] = struct{}{}
		}
	}
	if len(victims) == 0 {
		return 0, nil
	}

	removed := 0
	for key := range victims {
		if err := s.fs.Remove(entryPath(key)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("%w: removing %s: %w", ErrUnavailable, key, err)
		}
		s.index.remove(key)
		removed++
	}
	if err := s.index.save(s.fs, indexFile); err != nil {
		return removed, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return removed, nil
}

// StartGC runs Prune with the given strategies on a fixed interval until the
// returned stop function is called. Prune failures do not stop the loop.
func (s *DirStore) StartGC(interval time.Duration, strategies ...PruneStrategy) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_, _ = s.Prune(context.Background(), strategies...)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
