package reconciler

import (
	"context"
	"time"

	"github.com/weiawesome/plantpal/internal/config"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
)

// CountCache is the part of the follow store the reconciler rewrites.
type CountCache interface {
	GetTopHotKeys(ctx context.Context, n int64) ([]string, error)
	SetFollowersCount(ctx context.Context, userID string, count int64) error
	ResetHotKeyScores(ctx context.Context) error
}

// CountSource supplies authoritative follower counts.
type CountSource interface {
	GetFollowersCount(ctx context.Context, userID string) (int64, error)
}

// Reconciler periodically overwrites the cached follower counts of the most
// read users with the database value, repairing drift from lost events.
type Reconciler struct {
	cache  CountCache
	source CountSource
	cfg    config.ReconcilerConfig
	quit   chan struct{}
	doneCh chan struct{}
}

func New(cache CountCache, source CountSource, cfg config.ReconcilerConfig) *Reconciler {
	return &Reconciler{
		cache:  cache,
		source: source,
		cfg:    cfg,
		quit:   make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the reconciler in a background goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the reconciler to stop and returns immediately.
// Wait on Done for it to exit.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// Done is closed once the reconciler has stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile runs one pass and returns how many counts were rewritten.
func (r *Reconciler) Reconcile(ctx context.Context) int {
	l := pkglog.L()

	topN := int64(r.cfg.TopN)
	if topN <= 0 {
		topN = 100
	}

	userIDs, err := r.cache.GetTopHotKeys(ctx, topN)
	if err != nil {
		l.Error().Err(err).Msg("reconciler: failed to get top hot keys")
		return 0
	}
	if len(userIDs) == 0 {
		l.Debug().Msg("reconciler: no hot keys to reconcile")
		return 0
	}

	updated := 0
	for _, userID := range userIDs {
		count, err := r.source.GetFollowersCount(ctx, userID)
		if err != nil {
			l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("reconciler: failed to get followers count from db")
			continue
		}
		if err := r.cache.SetFollowersCount(ctx, userID, count); err != nil {
			l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("reconciler: failed to set followers count in redis")
			continue
		}
		updated++
	}

	if err := r.cache.ResetHotKeyScores(ctx); err != nil {
		l.Error().Err(err).Msg("reconciler: failed to reset hot key scores")
	}

	l.Info().Int("count", updated).Msg("reconciler: hot-key reconciliation complete")
	return updated
}
