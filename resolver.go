package ginsync

import (
	"context"
	"fmt"
)

// headReference names the symbolic reference a git remote advertises for its
// default branch tip.
const headReference = "HEAD"

// Resolve determines the current head revision of a remote dataset
// repository without fetching any data. Failures are reported as ErrResolve.
func (s *Syncer) Resolve(ctx context.Context, remote string) (string, error) {
	if s.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.resolveTimeout)
		defer cancel()
	}

	refs, err := s.remote.ListReferences(ctx, remote, s.auth)
	if err != nil {
		return "", fmt.Errorf("%w: listing references for %s: %w", ErrResolve, remote, err)
	}
	rev, err := selectHead(refs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrResolve, remote, err)
	}
	return rev, nil
}

// selectHead picks the head revision out of an advertised reference listing.
// It never guesses a branch: a listing without a resolved HEAD is an error.
func selectHead(refs map[string]string) (string, error) {
	if len(refs) == 0 {
		return "", ErrNoReferences
	}
	rev, ok := refs[headReference]
	if !ok || rev == "" {
		return "", ErrHeadNotFound
	}
	return rev, nil
}
