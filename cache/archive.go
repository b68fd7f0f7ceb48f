package cache

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/klauspost/compress/zstd"
)

// packTree writes the contents of src as a zstd-compressed tar stream to w.
func packTree(ctx context.Context, src billy.Filesystem, w io.Writer, level zstd.EncoderLevel) error {
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	tw := tar.NewWriter(enc)
	if err := packDir(ctx, src, ".", tw); err != nil {
		tw.Close()
		enc.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		enc.Close()
		return fmt.Errorf("finalizing tar stream: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flushing zstd stream: %w", err)
	}
	return nil
}

// packDir appends the entries under dir to tw, recursing into subdirectories.
// Entries are emitted in sorted order so iteration is stable across
// filesystems.
func packDir(ctx context.Context, src billy.Filesystem, dir string, tw *tar.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := src.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := src.Join(dir, entry.Name())
		hdrName := path.Clean(strings.ReplaceAll(name, string(os.PathSeparator), "/"))

		switch {
		case entry.IsDir():
			hdr := &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     hdrName + "/",
				Mode:     int64(entry.Mode().Perm()),
				ModTime:  entry.ModTime(),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("writing tar header for %s: %w", name, err)
			}
			if err := packDir(ctx, src, name, tw); err != nil {
				return err
			}

		case entry.Mode()&os.ModeSymlink != 0:
			target, err := src.Readlink(name)
			if err != nil {
				return fmt.Errorf("reading symlink %s: %w", name, err)
			}
			hdr := &tar.Header{
				Typeflag: tar.TypeSymlink,
				Name:     hdrName,
				Linkname: target,
				Mode:     0o777,
				ModTime:  entry.ModTime(),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("writing tar header for %s: %w", name, err)
			}

		default:
			hdr := &tar.Header{
				Typeflag: tar.TypeReg,
				Name:     hdrName,
				Mode:     int64(entry.Mode().Perm()),
				Size:     entry.Size(),
				ModTime:  entry.ModTime(),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("writing tar header for %s: %w", name, err)
			}
			f, err := src.Open(name)
			if err != nil {
				return fmt.Errorf("opening %s: %w", name, err)
			}
			_, err = io.Copy(tw, f)
			f.Close()
			if err != nil {
				return fmt.Errorf("archiving %s: %w", name, err)
			}
		}
	}
	return nil
}

// unpackTree extracts a zstd-compressed tar stream into dst. Entry names are
// validated so a crafted archive cannot write outside dst.
func unpackTree(ctx context.Context, r io.Reader, dst billy.Filesystem) error {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar stream: %w", err)
		}

		name, err := entryName(hdr.Name)
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := dst.MkdirAll(name, dirPerm(hdr.Mode)); err != nil {
				return fmt.Errorf("creating directory %s: %w", name, err)
			}

		case tar.TypeSymlink:
			if err := dst.MkdirAll(path.Dir(name), 0o755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", name, err)
			}
			_ = dst.Remove(name)
			if err := dst.Symlink(hdr.Linkname, name); err != nil {
				return fmt.Errorf("restoring symlink %s: %w", name, err)
			}

		case tar.TypeReg:
			if err := dst.MkdirAll(path.Dir(name), 0o755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", name, err)
			}
			f, err := dst.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return fmt.Errorf("restoring %s: %w", name, err)
			}
			_, err = io.Copy(f, tr)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("restoring %s: %w", name, err)
			}
		}
	}
}

// entryName cleans and validates a tar entry name. It rejects absolute paths
// and any name that escapes the extraction root, and returns "" for the root
// entry itself.
func entryName(raw string) (string, error) {
	name := path.Clean(strings.TrimSuffix(raw, "/"))
	if name == "." || name == "" {
		return "", nil
	}
	if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
		return "", fmt.Errorf("%w: entry %q escapes extraction root", ErrCorruptEntry, raw)
	}
	return name, nil
}

func dirPerm(mode int64) os.FileMode {
	perm := os.FileMode(mode).Perm()
	if perm == 0 {
		perm = 0o755
	}
	return perm
}
