package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/tokenstore"
)

// ExpiredTokenSweeper periodically removes refresh records past their expiry.
// An interval of zero or less disables it.
type ExpiredTokenSweeper struct {
	store    tokenstore.Store
	interval time.Duration
	now      func() time.Time
	log      logging.Logger
}

func NewExpiredTokenSweeper(store tokenstore.Store, interval time.Duration, opts ...Option) *ExpiredTokenSweeper {
	o := newOptions(opts)
	return &ExpiredTokenSweeper{
		store:    store,
		interval: interval,
		now:      o.now,
		log:      o.log.With("module", "token_sweeper"),
	}
}

func (s *ExpiredTokenSweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired tokens: %w", err)
	}
	return n, nil
}

// Run sweeps on every tick until ctx is done. Failed sweeps are logged and
// retried on the next tick.
func (s *ExpiredTokenSweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.Info(ctx, "sweeper disabled")
		return nil
	}

	s.log.Info(ctx, "sweeper started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "sweeper stopped")
			return nil
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Error(ctx, "sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info(ctx, "expired refresh tokens removed", "count", n)
			}
		}
	}
}
