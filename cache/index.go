package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const indexVersion = "1"

// EntryMetadata records one stored archive.
type EntryMetadata struct {
	// Key is the cache key the archive was stored under.
	Key string `json:"key"`
	// Size is the compressed archive size in bytes.
	Size int64 `json:"size"`
	// CreatedAt is when the entry was stored.
	CreatedAt time.Time `json:"createdAt"`
	// LastAccess is when the entry was last restored or stored.
	LastAccess time.Time `json:"lastAccess"`
}

// storeIndex is the metadata index for all entries, persisted as JSON beside
// the archives. It is not synchronized; DirStore guards all access.
type storeIndex struct {
	Version string                    `json:"version"`
	Entries map[string]*EntryMetadata `json:"entries"`
}

// loadOrCreateIndex loads the index at path or creates an empty one. A
// damaged or version-incompatible index is replaced with an empty one rather
// than making every lookup fail; entries it referenced are refetched on
// demand.
func loadOrCreateIndex(fs billy.Filesystem, path string) (*storeIndex, error) {
	empty := func() *storeIndex {
		return &storeIndex{
			Version: indexVersion,
			Entries: make(map[string]*EntryMetadata),
		}
	}

	if _, err := fs.Stat(path); os.IsNotExist(err) {
		return empty(), nil
	}

	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}

	var index storeIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return empty(), nil
	}
	if index.Version != indexVersion {
		return empty(), nil
	}
	if index.Entries == nil {
		index.Entries = make(map[string]*EntryMetadata)
	}
	return &index, nil
}

// save writes the index to disk atomically via write-to-temp + rename.
func (idx *storeIndex) save(fs billy.Filesystem, path string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := util.WriteFile(fs, tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temporary index file: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

// get returns the metadata for key, or nil if absent.
func (idx *storeIndex) get(key string) *EntryMetadata {
	return idx.Entries[key]
}

// set records metadata for its key.
func (idx *storeIndex) set(meta *EntryMetadata) {
	idx.Entries[meta.Key] = meta
}

// remove deletes the metadata for key if present.
func (idx *storeIndex) remove(key string) {
	delete(idx.Entries, key)
}
