package ginsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"

	"github.com/Saksham20/ginsync/cache"
)

// pipeline runs the fetch-if-needed lifecycle for a single source.
type pipeline struct {
	syncer *Syncer
	src    Source
	log    *zap.Logger
	state  State
}

func (s *Syncer) newPipeline(src Source) *pipeline {
	return &pipeline{
		syncer: s,
		src:    src,
		log:    s.logger.With(zap.String("source", src.Name)),
		state:  StateIdle,
	}
}

// advance moves the pipeline to next, enforcing the transition table.
func (p *pipeline) advance(next State) {
	if !validTransition(p.state, next) {
		p.log.DPanic("invalid pipeline transition",
			zap.Stringer("from", p.state),
			zap.Stringer("to", next))
	}
	p.log.Debug("pipeline state",
		zap.Stringer("from", p.state),
		zap.Stringer("to", next))
	p.state = next
}

// fail moves the pipeline to Fatal, recording the state it failed in.
func (p *pipeline) fail(res Result, err error) Result {
	at := p.state
	p.advance(StateFatal)
	res.State = StateFatal
	res.Outcome = OutcomeFailed
	res.Err = &PipelineError{Source: p.src.Name, State: at, Err: err}
	p.log.Error("pipeline failed", zap.Stringer("state", at), zap.Error(err))
	return res
}

func (p *pipeline) run(ctx context.Context) Result {
	res := Result{Name: p.src.Name}

	p.advance(StateResolving)
	started := time.Now()
	rev, err := p.syncer.Resolve(ctx, p.src.Remote)
	res.DurationResolve = time.Since(started)
	if err != nil {
		return p.fail(res, err)
	}
	res.Revision = rev
	p.log.Info("resolved head revision",
		zap.String("revision", rev),
		zap.Duration("took", res.DurationResolve))

	key := BuildKey(p.syncer.saltFor(p.src), p.syncer.scope, p.src.Name, rev)
	res.Key = key.Value
	p.advance(StateKeyBuilt)

	if err := ctx.Err(); err != nil {
		return p.fail(res, err)
	}

	dst, err := p.syncer.cleanWorkDir(p.src.LocalPath)
	if err != nil {
		return p.fail(res, fmt.Errorf("%w: preparing %s: %w", ErrFetch, p.src.LocalPath, err))
	}

	hit, err := p.restore(ctx, key, dst)
	if err != nil {
		return p.fail(res, err)
	}
	res.Hit = hit
	p.advance(StateCacheChecked)

	if hit == cache.HitExact {
		p.advance(StateSkipped)
		p.log.Info("cache hit, fetch skipped", zap.String("key", key.Value))
		p.advance(StateDone)
		res.State = p.state
		res.Outcome = OutcomeSkipped
		return res
	}

	p.advance(StateFetching)
	started = time.Now()
	stats, err := p.fetch(ctx, rev, dst, hit == cache.HitPartial)
	res.DurationFetch = time.Since(started)
	if err != nil {
		return p.fail(res, fmt.Errorf("%w: %s: %w", ErrFetch, p.src.Remote, err))
	}
	p.log.Info("fetched dataset",
		zap.String("revision", rev),
		zap.Int("files", stats.Files),
		zap.Int("reused", stats.Reused),
		zap.Int64("bytes", stats.Bytes),
		zap.Duration("took", res.DurationFetch))

	if err := p.syncer.store.Save(ctx, key.Value, dst); err != nil {
		p.advance(StateStoreFailed)
		p.log.Warn("cache save failed, tree kept locally",
			zap.String("key", key.Value),
			zap.Error(err))
	} else {
		p.advance(StateStored)
		res.Saved = true
	}

	p.advance(StateDone)
	res.State = p.state
	res.Outcome = OutcomeFetched
	return res
}

// restore attempts a cache restore into dst. Store failures other than
// cancellation degrade to a miss: the directory is recleaned and the
// pipeline proceeds with a full fetch.
func (p *pipeline) restore(ctx context.Context, key Key, dst billy.Filesystem) (cache.HitKind, error) {
	rr, err := p.syncer.store.Restore(ctx, key.Value, key.RestoreKeys, dst)
	if err == nil {
		switch rr.Kind {
		case cache.HitExact:
			p.log.Debug("exact cache hit", zap.String("key", rr.Key))
		case cache.HitPartial:
			p.log.Info("partial cache hit, fetching on top of seed",
				zap.String("matched", rr.Key))
		}
		return rr.Kind, nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cache.HitNone, err
	}

	p.log.Warn("cache restore failed, treating as miss",
		zap.String("key", key.Value),
		zap.Error(err))
	if _, err := p.syncer.cleanWorkDir(p.src.LocalPath); err != nil {
		return cache.HitNone, fmt.Errorf("%w: preparing %s: %w", ErrFetch, p.src.LocalPath, err)
	}
	return cache.HitNone, nil
}

// fetch retrieves the tree at rev into dst, bounded by the fetch timeout.
func (p *pipeline) fetch(ctx context.Context, rev string, dst billy.Filesystem, seeded bool) (*FetchStats, error) {
	if p.syncer.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.syncer.fetchTimeout)
		defer cancel()
	}
	return p.syncer.remote.FetchTree(ctx, FetchRequest{
		Remote:   p.src.Remote,
		Revision: rev,
		Subpaths: p.src.Subpaths,
		Dst:      dst,
		Auth:     p.syncer.auth,
		Seeded:   seeded,
	})
}
