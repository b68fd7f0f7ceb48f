package ginsync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	gitcache "github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

// RemoteOperations abstracts the network-facing git operations so they can
// be mocked in tests. The default implementation talks to real remotes
// through go-git.
type RemoteOperations interface {
	// ListReferences returns the remote's advertised references as a map
	// from reference name to revision id. Symbolic references (notably HEAD)
	// are resolved against the same listing; a symbolic reference whose
	// target is not advertised is omitted.
	ListReferences(ctx context.Context, remote string, auth Auth) (map[string]string, error)

	// FetchTree materializes the tree at req.Revision into req.Dst.
	FetchTree(ctx context.Context, req FetchRequest) (*FetchStats, error)
}

// FetchRequest carries everything FetchTree needs to materialize one
// revision.
type FetchRequest struct {
	// Remote is the repository address.
	Remote string
	// Revision is the commit id to materialize.
	Revision string
	// Subpaths restricts materialization to the listed path prefixes. Empty
	// means the whole tree.
	Subpaths []string
	// Dst is the filesystem rooted at the destination directory.
	Dst billy.Filesystem
	// Auth is the credential for the remote, or nil for anonymous access.
	Auth Auth
	// Seeded indicates Dst was pre-populated from a partial cache entry.
	// Files whose content already matches the target revision are left in
	// place instead of being rewritten.
	Seeded bool
}

// FetchStats summarizes one materialization.
type FetchStats struct {
	// Files is the number of files written.
	Files int
	// Reused is the number of seeded files left in place.
	Reused int
	// Bytes is the number of bytes written.
	Bytes int64
}

// gitRemoteOps is the default RemoteOperations implementation. Fetches clone
// the remote into a scratch directory that is removed when the fetch
// completes.
type gitRemoteOps struct {
	fs         billy.Filesystem
	scratchDir string
}

func newGitRemoteOps(fs billy.Filesystem, scratchDir string) *gitRemoteOps {
	return &gitRemoteOps{fs: fs, scratchDir: scratchDir}
}

// ListReferences implements RemoteOperations using an ls-remote style
// advertisement; no objects are transferred.
func (g *gitRemoteOps) ListReferences(ctx context.Context, remote string, auth Auth) (map[string]string, error) {
	rem := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{remote},
	})

	var opts gogit.ListOptions
	if a, ok := auth.(transport.AuthMethod); ok {
		opts.Auth = a
	}
	refs, err := rem.ListContext(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", remote, err)
	}

	out := make(map[string]string, len(refs))
	for _, ref := range refs {
		if ref.Type() == plumbing.HashReference {
			out[ref.Name().String()] = ref.Hash().String()
		}
	}
	for _, ref := range refs {
		if ref.Type() != plumbing.SymbolicReference {
			continue
		}
		if rev, ok := out[ref.Target().String()]; ok {
			out[ref.Name().String()] = rev
		}
	}
	return out, nil
}

// FetchTree implements RemoteOperations. The clone is bare and kept in
// scratch space; only the requested tree is written to req.Dst.
func (g *gitRemoteOps) FetchTree(ctx context.Context, req FetchRequest) (*FetchStats, error) {
	scratch, cleanup, err := g.newScratch(req.Revision)
	if err != nil {
		return nil, fmt.Errorf("creating fetch scratch space: %w", err)
	}
	defer cleanup()

	storer := filesystem.NewStorage(scratch, gitcache.NewObjectLRUDefault())
	opts := &gogit.CloneOptions{URL: req.Remote}
	if a, ok := req.Auth.(transport.AuthMethod); ok {
		opts.Auth = a
	}
	repo, err := gogit.CloneContext(ctx, storer, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("cloning %s: %w", req.Remote, err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(req.Revision))
	if err != nil {
		return nil, fmt.Errorf("revision %s not found in %s: %w", req.Revision, req.Remote, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", req.Revision, err)
	}

	stats := &FetchStats{}
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !underSubpaths(f.Name, req.Subpaths) {
			return nil
		}
		return materializeFile(req.Dst, f, req.Seeded, stats)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// newScratch creates a fresh scratch directory and returns a filesystem
// rooted there plus a cleanup function.
func (g *gitRemoteOps) newScratch(revision string) (billy.Filesystem, func(), error) {
	short := revision
	if len(short) > 12 {
		short = short[:12]
	}
	dir := g.fs.Join(g.scratchDir, fmt.Sprintf("fetch-%s-%d", short, time.Now().UnixNano()))
	if err := g.fs.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, err
	}
	scratch, err := g.fs.Chroot(dir)
	if err != nil {
		return nil, nil, err
	}
	return scratch, func() { _ = util.RemoveAll(g.fs, dir) }, nil
}

// materializeFile writes one tree entry into dst, reusing a seeded copy when
// its content already matches.
func materializeFile(dst billy.Filesystem, f *object.File, seeded bool, stats *FetchStats) error {
	if f.Mode == filemode.Symlink {
		target, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading symlink %s: %w", f.Name, err)
		}
		if seeded {
			if existing, err := dst.Readlink(f.Name); err == nil && existing == target {
				stats.Reused++
				return nil
			}
		}
		if err := dst.MkdirAll(path.Dir(f.Name), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Name, err)
		}
		_ = dst.Remove(f.Name)
		if err := dst.Symlink(target, f.Name); err != nil {
			return fmt.Errorf("writing symlink %s: %w", f.Name, err)
		}
		stats.Files++
		return nil
	}

	if seeded && blobMatches(dst, f) {
		stats.Reused++
		return nil
	}

	mode, err := f.Mode.ToOSFileMode()
	if err != nil {
		return fmt.Errorf("file mode of %s: %w", f.Name, err)
	}
	r, err := f.Blob.Reader()
	if err != nil {
		return fmt.Errorf("reading blob for %s: %w", f.Name, err)
	}
	if err := dst.MkdirAll(path.Dir(f.Name), 0o755); err != nil {
		r.Close()
		return fmt.Errorf("creating directory for %s: %w", f.Name, err)
	}
	w, err := dst.OpenFile(f.Name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		r.Close()
		return fmt.Errorf("writing %s: %w", f.Name, err)
	}
	n, err := io.Copy(w, r)
	r.Close()
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", f.Name, err)
	}
	stats.Files++
	stats.Bytes += n
	return nil
}

// blobMatches reports whether the file already in dst has the same git blob
// hash as f.
func blobMatches(dst billy.Filesystem, f *object.File) bool {
	fi, err := dst.Lstat(f.Name)
	if err != nil || fi.Mode()&os.ModeSymlink != 0 || fi.Size() != f.Size {
		return false
	}
	data, err := util.ReadFile(dst, f.Name)
	if err != nil {
		return false
	}
	return plumbing.ComputeHash(plumbing.BlobObject, data) == f.Hash
}

// underSubpaths reports whether name falls under any of the cleaned subpath
// prefixes. An empty list matches everything.
func underSubpaths(name string, subpaths []string) bool {
	if len(subpaths) == 0 {
		return true
	}
	for _, p := range subpaths {
		p = path.Clean(p)
		if p == "." {
			return true
		}
		if name == p || strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}
