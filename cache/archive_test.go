package cache

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/klauspost/compress/zstd"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	t.Run("preserves files and directories", func(t *testing.T) {
		src := memfs.New()
		writeTree(t, src, map[string]string{
			"a.txt":           "alpha",
			"sub/b.txt":       "beta",
			"sub/deep/c.bin":  string([]byte{0, 1, 2, 255}),
			"other/empty.txt": "",
		})

		var buf bytes.Buffer
		if err := packTree(context.Background(), src, &buf, zstd.SpeedDefault); err != nil {
			t.Fatalf("packTree() error = %v", err)
		}

		dst := memfs.New()
		if err := unpackTree(context.Background(), &buf, dst); err != nil {
			t.Fatalf("unpackTree() error = %v", err)
		}

		want := readTree(t, src, ".")
		got := readTree(t, dst, ".")
		if len(got) != len(want) {
			t.Fatalf("unpacked %d files, want %d", len(got), len(want))
		}
		for name, content := range want {
			if got[name] != content {
				t.Errorf("unpacked %s = %q, want %q", name, got[name], content)
			}
		}
	})

	t.Run("preserves file modes", func(t *testing.T) {
		src := memfs.New()
		f, err := src.OpenFile("run.sh", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
		if err != nil {
			t.Fatalf("OpenFile() error = %v", err)
		}
		if _, err := f.Write([]byte("#!/bin/sh\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		f.Close()

		var buf bytes.Buffer
		if err := packTree(context.Background(), src, &buf, zstd.SpeedDefault); err != nil {
			t.Fatalf("packTree() error = %v", err)
		}
		dst := memfs.New()
		if err := unpackTree(context.Background(), &buf, dst); err != nil {
			t.Fatalf("unpackTree() error = %v", err)
		}

		fi, err := dst.Stat("run.sh")
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if fi.Mode().Perm()&0o111 == 0 {
			t.Errorf("run.sh mode = %v, want executable", fi.Mode())
		}
	})

	t.Run("preserves symlinks", func(t *testing.T) {
		src := memfs.New()
		writeTree(t, src, map[string]string{"target.txt": "data"})
		if err := src.Symlink("target.txt", "link.txt"); err != nil {
			t.Fatalf("Symlink() error = %v", err)
		}

		var buf bytes.Buffer
		if err := packTree(context.Background(), src, &buf, zstd.SpeedDefault); err != nil {
			t.Fatalf("packTree() error = %v", err)
		}
		dst := memfs.New()
		if err := unpackTree(context.Background(), &buf, dst); err != nil {
			t.Fatalf("unpackTree() error = %v", err)
		}

		target, err := dst.Readlink("link.txt")
		if err != nil {
			t.Fatalf("Readlink() error = %v", err)
		}
		if target != "target.txt" {
			t.Errorf("Readlink() = %q, want %q", target, "target.txt")
		}
	})

	t.Run("handles an empty tree", func(t *testing.T) {
		var buf bytes.Buffer
		if err := packTree(context.Background(), memfs.New(), &buf, zstd.SpeedDefault); err != nil {
			t.Fatalf("packTree() error = %v", err)
		}
		dst := memfs.New()
		if err := unpackTree(context.Background(), &buf, dst); err != nil {
			t.Fatalf("unpackTree() error = %v", err)
		}
		if got := readTree(t, dst, "."); len(got) != 0 {
			t.Errorf("unpacked tree = %v, want empty", got)
		}
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		src := memfs.New()
		writeTree(t, src, map[string]string{"a.txt": "alpha"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var buf bytes.Buffer
		if err := packTree(ctx, src, &buf, zstd.SpeedDefault); !errors.Is(err, context.Canceled) {
			t.Errorf("packTree() error = %v, want context.Canceled", err)
		}
	})
}

func TestUnpackTreeGuardsPaths(t *testing.T) {
	evil := func(t *testing.T, name string) []byte {
		t.Helper()

		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf, zstd.WithEncoderConcurrency(1))
		if err != nil {
			t.Fatalf("NewWriter() error = %v", err)
		}
		tw := tar.NewWriter(enc)
		content := []byte("owned")
		if err := tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
		}); err != nil {
			t.Fatalf("WriteHeader() error = %v", err)
		}
		if _, err := tw.Write(content); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := tw.Close(); err != nil {
			t.Fatalf("tar Close() error = %v", err)
		}
		if err := enc.Close(); err != nil {
			t.Fatalf("zstd Close() error = %v", err)
		}
		return buf.Bytes()
	}

	for _, name := range []string{"../evil.txt", "/abs.txt", "sub/../../evil.txt"} {
		t.Run(name, func(t *testing.T) {
			fs := memfs.New()
			if err := fs.MkdirAll("/dst", 0o755); err != nil {
				t.Fatalf("MkdirAll() error = %v", err)
			}
			dst, err := fs.Chroot("/dst")
			if err != nil {
				t.Fatalf("Chroot() error = %v", err)
			}

			err = unpackTree(context.Background(), bytes.NewReader(evil(t, name)), dst)
			if !errors.Is(err, ErrCorruptEntry) {
				t.Errorf("unpackTree(%q) error = %v, want ErrCorruptEntry", name, err)
			}
			if _, err := fs.Stat("/evil.txt"); err == nil {
				t.Errorf("unpackTree(%q) wrote outside the extraction root", name)
			}
		})
	}
}

func TestEntryName(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "a.txt", want: "a.txt"},
		{raw: "sub/dir/", want: "sub/dir"},
		{raw: "./a.txt", want: "a.txt"},
		{raw: ".", want: ""},
		{raw: "..", wantErr: true},
		{raw: "../a.txt", wantErr: true},
		{raw: "/etc/passwd", wantErr: true},
		{raw: "sub/../../a.txt", wantErr: true},
	}
	for _, tc := range cases {
		got, err := entryName(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("entryName(%q) = %q, want error", tc.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("entryName(%q) error = %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("entryName(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestUnpackTreeRejectsGarbage(t *testing.T) {
	dst := memfs.New()
	err := unpackTree(context.Background(), bytes.NewReader([]byte("not a zstd stream")), dst)
	if err == nil {
		t.Error("unpackTree() on garbage succeeded, want error")
	}
	if got := readTree(t, dst, "."); len(got) != 0 {
		t.Errorf("dst contains %v, want empty", got)
	}
}
