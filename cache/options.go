package cache

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/klauspost/compress/zstd"
)

// Option configures a DirStore.
type Option func(*options)

type options struct {
	fs    billy.Filesystem
	level zstd.EncoderLevel
}

func defaultOptions() *options {
	return &options{
		fs:    osfs.New("/"),
		level: zstd.SpeedDefault,
	}
}

// WithFilesystem sets the filesystem the store operates on. Defaults to the
// OS filesystem.
//
// Example:
//
//	store, err := cache.NewDirStore("/cache", cache.WithFilesystem(memfs.New()))
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithCompressionLevel sets the zstd level used when packing new archives.
// Defaults to zstd.SpeedDefault.
func WithCompressionLevel(level zstd.EncoderLevel) Option {
	return func(o *options) {
		o.level = level
	}
}
