package ginsync

import (
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "ginsync.yaml", []byte(content), 0o644))
	return fs
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses a full configuration", func(t *testing.T) {
		fs := writeConfig(t, `
salt: 2
scope: linux
cacheDir: /var/cache/ginsync
sources:
  - name: ecephys
    remote: https://gin.g-node.org/NeuralEnsemble/ephy_testing_data
    localPath: /data/ephy_testing_data
    subpaths:
      - blackrock
      - neuralynx
  - name: ophys
    remote: https://gin.g-node.org/CatalystNeuro/ophys_testing_data
    localPath: /data/ophys_testing_data
    salt: 5
  - name: behavior
    remote: https://gin.g-node.org/CatalystNeuro/behavior_testing_data
    localPath: /data/behavior_testing_data
`)

		cfg, err := LoadConfig(fs, "ginsync.yaml")
		require.NoError(t, err)

		assert.Equal(t, 2, cfg.Salt)
		assert.Equal(t, "linux", cfg.Scope)
		assert.Equal(t, "/var/cache/ginsync", cfg.CacheDir)
		require.Len(t, cfg.Sources, 3)

		assert.Equal(t, "ecephys", cfg.Sources[0].Name)
		assert.Equal(t, []string{"blackrock", "neuralynx"}, cfg.Sources[0].Subpaths)
		assert.Nil(t, cfg.Sources[0].Salt)

		require.NotNil(t, cfg.Sources[1].Salt)
		assert.Equal(t, 5, *cfg.Sources[1].Salt)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		fs := writeConfig(t, `
salt: 1
saltt: 2
sources:
  - name: ecephys
    remote: r
    localPath: /d
`)
		_, err := LoadConfig(fs, "ginsync.yaml")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects a missing file", func(t *testing.T) {
		_, err := LoadConfig(memfs.New(), "ginsync.yaml")
		require.Error(t, err)
	})

	t.Run("rejects an empty source list", func(t *testing.T) {
		fs := writeConfig(t, "salt: 1\nsources: []\n")
		_, err := LoadConfig(fs, "ginsync.yaml")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects a negative salt", func(t *testing.T) {
		fs := writeConfig(t, `
salt: -1
sources:
  - name: ecephys
    remote: r
    localPath: /d
`)
		_, err := LoadConfig(fs, "ginsync.yaml")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects a malformed scope", func(t *testing.T) {
		fs := writeConfig(t, `
scope: "linux amd64!"
sources:
  - name: ecephys
    remote: r
    localPath: /d
`)
		_, err := LoadConfig(fs, "ginsync.yaml")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects duplicate source names", func(t *testing.T) {
		fs := writeConfig(t, `
sources:
  - name: ecephys
    remote: r1
    localPath: /d1
  - name: ecephys
    remote: r2
    localPath: /d2
`)
		_, err := LoadConfig(fs, "ginsync.yaml")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateSource)
	})
}

func TestConfigSelect(t *testing.T) {
	cfg := &Config{Sources: []Source{
		{Name: "ecephys", Remote: "r1", LocalPath: "/d1"},
		{Name: "ophys", Remote: "r2", LocalPath: "/d2"},
		{Name: "behavior", Remote: "r3", LocalPath: "/d3"},
	}}

	t.Run("returns all sources by default", func(t *testing.T) {
		got, err := cfg.Select(nil)
		require.NoError(t, err)
		assert.Equal(t, cfg.Sources, got)
	})

	t.Run("returns named sources in request order", func(t *testing.T) {
		got, err := cfg.Select([]string{"behavior", "ecephys"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "behavior", got[0].Name)
		assert.Equal(t, "ecephys", got[1].Name)
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := cfg.Select([]string{"ecephys", "imaging"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownSource)
		assert.Contains(t, err.Error(), "imaging")
		assert.Contains(t, err.Error(), "ecephys, ophys, behavior")
	})
}
