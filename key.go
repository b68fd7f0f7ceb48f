package ginsync

import (
	"fmt"

	"github.com/opencontainers/go-digest"
)

// BuildKey derives the cache key and restore-key prefixes for a dataset at a
// revision.
//
// The key layout is
//
//	[scope-]<name>-v<salt>-<sha256>
//
// where the digest covers (salt, name, revision). Identical inputs always
// produce the identical key; changing the revision or bumping the salt
// produces a new one. The scope segment keeps otherwise-identical keys from
// colliding across environments that must not share entries.
//
// RestoreKeys fall back from "same dataset and salt, any revision" to "same
// dataset, any salt":
//
//	key := BuildKey(1, "linux", "ecephys", rev)
//	// key.Value        == "linux-ecephys-v1-8f4e…"
//	// key.RestoreKeys  == ["linux-ecephys-v1-", "linux-ecephys-"]
func BuildKey(salt int, scope, name, revision string) Key {
	prefix := name
	if scope != "" {
		prefix = scope + "-" + name
	}
	versioned := fmt.Sprintf("%s-v%d-", prefix, salt)

	// NUL separators keep (salt, name, revision) unambiguous in the digest
	// input.
	sum := digest.FromString(fmt.Sprintf("%d\x00%s\x00%s", salt, name, revision))

	return Key{
		Value:       versioned + sum.Encoded(),
		RestoreKeys: []string{versioned, prefix + "-"},
	}
}
