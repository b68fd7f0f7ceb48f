// Package testutil provides helpers for building local fixture repositories
// and serving them over go-git's in-process transport, so sync tests run
// without a git binary or a network.
package testutil

import (
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	gitcache "github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// fixtureEpoch anchors commit timestamps so identical content always yields
// identical revision ids.
var fixtureEpoch = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// FixtureRepo is a local repository usable as a sync remote.
type FixtureRepo struct {
	repo    *gogit.Repository
	wt      billy.Filesystem
	commits int

	// Remote is the address to hand to a syncer: the repository's git
	// directory, which the file transport serves directly.
	Remote string

	// Head is the current head revision id.
	Head string
}

// NewFixtureRepo creates a repository at dir on fs with an initial commit of
// files (name → content). Commits use a fixed author and deterministic
// timestamps.
func NewFixtureRepo(fs billy.Filesystem, dir string, files map[string]string) (*FixtureRepo, error) {
	gitDir := fs.Join(dir, ".git")
	if err := fs.MkdirAll(gitDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", gitDir, err)
	}
	dotgit, err := fs.Chroot(gitDir)
	if err != nil {
		return nil, err
	}
	wt, err := fs.Chroot(dir)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.Init(filesystem.NewStorage(dotgit, gitcache.NewObjectLRUDefault()), wt)
	if err != nil {
		return nil, fmt.Errorf("initializing fixture repository: %w", err)
	}

	// Init does not persist a config file in this layout, but the file
	// transport's loader requires one to recognize the git directory.
	cfg, err := repo.Config()
	if err != nil {
		return nil, err
	}
	if err := repo.Storer.SetConfig(cfg); err != nil {
		return nil, fmt.Errorf("writing fixture repository config: %w", err)
	}

	r := &FixtureRepo{repo: repo, wt: wt, Remote: gitDir}
	if _, err := r.Commit(files); err != nil {
		return nil, err
	}
	return r, nil
}

// Filesystem returns the fixture worktree, for content the plain files map
// cannot express, such as symlinks. Call Commit afterwards to record it.
func (r *FixtureRepo) Filesystem() billy.Filesystem {
	return r.wt
}

// Commit writes files into the worktree, applies the listed removals, stages
// everything, and commits. It returns the new head revision, which is also
// recorded in r.Head.
func (r *FixtureRepo) Commit(files map[string]string, remove ...string) (string, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if dir := path.Dir(name); dir != "." {
			if err := r.wt.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("creating %s: %w", dir, err)
			}
		}
		if err := util.WriteFile(r.wt, name, []byte(files[name]), 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
	}
	for _, name := range remove {
		if err := r.wt.Remove(name); err != nil {
			return "", fmt.Errorf("removing %s: %w", name, err)
		}
	}
	if err := w.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("staging changes: %w", err)
	}

	r.commits++
	sig := &object.Signature{
		Name:  "fixture",
		Email: "fixture@example.com",
		When:  fixtureEpoch.Add(time.Duration(r.commits) * time.Minute),
	}
	hash, err := w.Commit(fmt.Sprintf("fixture commit %d", r.commits), &gogit.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}

	r.Head = hash.String()
	return r.Head, nil
}
