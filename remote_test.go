package ginsync

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saksham20/ginsync/testutil"
)

func chrootAt(t *testing.T, fs billy.Filesystem, dir string) billy.Filesystem {
	t.Helper()
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	sub, err := fs.Chroot(dir)
	require.NoError(t, err)
	return sub
}

func TestGitRemoteOpsListReferences(t *testing.T) {
	fs := memfs.New()
	restore := testutil.Serve(fs)
	defer restore()

	fixture, err := testutil.NewFixtureRepo(fs, "/repos/ds", map[string]string{"a.txt": "alpha"})
	require.NoError(t, err)

	ops := newGitRemoteOps(fs, "/scratch")

	t.Run("resolves head to the branch tip", func(t *testing.T) {
		refs, err := ops.ListReferences(context.Background(), fixture.Remote, nil)
		require.NoError(t, err)

		assert.Equal(t, fixture.Head, refs["HEAD"])
		assert.Equal(t, fixture.Head, refs["refs/heads/master"])
	})

	t.Run("fails for an unknown remote", func(t *testing.T) {
		_, err := ops.ListReferences(context.Background(), "/repos/absent/.git", nil)
		require.Error(t, err)
	})
}

func TestGitRemoteOpsFetchTree(t *testing.T) {
	fs := memfs.New()
	restore := testutil.Serve(fs)
	defer restore()

	files := map[string]string{
		"a.txt":          "alpha",
		"raw/b.bin":      "beta",
		"raw/deep/c.dat": "gamma",
		"docs/README.md": "docs",
	}
	fixture, err := testutil.NewFixtureRepo(fs, "/repos/ds", files)
	require.NoError(t, err)

	ops := newGitRemoteOps(fs, "/scratch")

	t.Run("materializes the whole tree", func(t *testing.T) {
		dst := chrootAt(t, fs, "/work/full")
		stats, err := ops.FetchTree(context.Background(), FetchRequest{
			Remote:   fixture.Remote,
			Revision: fixture.Head,
			Dst:      dst,
		})
		require.NoError(t, err)

		assert.Equal(t, 4, stats.Files)
		assert.Equal(t, 0, stats.Reused)
		assert.Positive(t, stats.Bytes)
		for name, content := range files {
			assert.Equal(t, content, readString(t, dst, name))
		}
	})

	t.Run("filters by subpath", func(t *testing.T) {
		dst := chrootAt(t, fs, "/work/filtered")
		stats, err := ops.FetchTree(context.Background(), FetchRequest{
			Remote:   fixture.Remote,
			Revision: fixture.Head,
			Subpaths: []string{"raw"},
			Dst:      dst,
		})
		require.NoError(t, err)

		assert.Equal(t, 2, stats.Files)
		assert.Equal(t, "beta", readString(t, dst, "raw/b.bin"))
		assert.Equal(t, "gamma", readString(t, dst, "raw/deep/c.dat"))
		_, err = dst.Stat("a.txt")
		assert.Error(t, err)
		_, err = dst.Stat("docs/README.md")
		assert.Error(t, err)
	})

	t.Run("reuses seeded files", func(t *testing.T) {
		dst := chrootAt(t, fs, "/work/seeded")
		_, err := ops.FetchTree(context.Background(), FetchRequest{
			Remote:   fixture.Remote,
			Revision: fixture.Head,
			Dst:      dst,
		})
		require.NoError(t, err)

		stats, err := ops.FetchTree(context.Background(), FetchRequest{
			Remote:   fixture.Remote,
			Revision: fixture.Head,
			Dst:      dst,
			Seeded:   true,
		})
		require.NoError(t, err)

		assert.Equal(t, 0, stats.Files)
		assert.Equal(t, 4, stats.Reused)
		assert.Zero(t, stats.Bytes)
	})

	t.Run("rewrites seeded files whose content drifted", func(t *testing.T) {
		dst := chrootAt(t, fs, "/work/drifted")
		_, err := ops.FetchTree(context.Background(), FetchRequest{
			Remote:   fixture.Remote,
			Revision: fixture.Head,
			Dst:      dst,
		})
		require.NoError(t, err)
		require.NoError(t, util.WriteFile(dst, "a.txt", []byte("tampered"), 0o644))

		stats, err := ops.FetchTree(context.Background(), FetchRequest{
			Remote:   fixture.Remote,
			Revision: fixture.Head,
			Dst:      dst,
			Seeded:   true,
		})
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Files)
		assert.Equal(t, 3, stats.Reused)
		assert.Equal(t, "alpha", readString(t, dst, "a.txt"))
	})

	t.Run("rejects an unknown revision", func(t *testing.T) {
		dst := chrootAt(t, fs, "/work/unknown")
		_, err := ops.FetchTree(context.Background(), FetchRequest{
			Remote:   fixture.Remote,
			Revision: "4fa7e1bdcbee03b45250a4f9d35a15720c10c6ac",
			Dst:      dst,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("fetches a pinned revision after head moves", func(t *testing.T) {
		pinned := fixture.Head
		_, err := fixture.Commit(map[string]string{"a.txt": "alpha v2"})
		require.NoError(t, err)
		require.NotEqual(t, pinned, fixture.Head)

		dst := chrootAt(t, fs, "/work/pinned")
		_, err = ops.FetchTree(context.Background(), FetchRequest{
			Remote:   fixture.Remote,
			Revision: pinned,
			Dst:      dst,
		})
		require.NoError(t, err)
		assert.Equal(t, "alpha", readString(t, dst, "a.txt"))
	})

	t.Run("cleans up scratch space", func(t *testing.T) {
		entries, err := fs.ReadDir("/scratch")
		if err == nil {
			assert.Empty(t, entries, "fetch scratch directories should be removed")
		}
	})
}

func TestGitRemoteOpsFetchTreeSymlinks(t *testing.T) {
	fs := memfs.New()
	restore := testutil.Serve(fs)
	defer restore()

	fixture, err := testutil.NewFixtureRepo(fs, "/repos/ds", map[string]string{"data/blob.bin": "payload"})
	require.NoError(t, err)
	require.NoError(t, fixture.Filesystem().Symlink("data/blob.bin", "latest.bin"))
	_, err = fixture.Commit(nil)
	require.NoError(t, err)

	ops := newGitRemoteOps(fs, "/scratch")
	dst := chrootAt(t, fs, "/work/links")
	stats, err := ops.FetchTree(context.Background(), FetchRequest{
		Remote:   fixture.Remote,
		Revision: fixture.Head,
		Dst:      dst,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)

	target, err := dst.Readlink("latest.bin")
	require.NoError(t, err)
	assert.Equal(t, "data/blob.bin", target)
}

func TestUnderSubpaths(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		subpaths []string
		want     bool
	}{
		{"empty list matches everything", "raw/b.bin", nil, true},
		{"exact file match", "raw/b.bin", []string{"raw/b.bin"}, true},
		{"directory prefix", "raw/deep/c.dat", []string{"raw"}, true},
		{"dot matches everything", "a.txt", []string{"."}, true},
		{"trailing slash is normalized", "raw/b.bin", []string{"raw/"}, true},
		{"no match outside prefix", "docs/README.md", []string{"raw"}, false},
		{"prefix is path-wise, not string-wise", "rawdata/x.bin", []string{"raw"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, underSubpaths(tt.file, tt.subpaths))
		})
	}
}
