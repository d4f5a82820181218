package services

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"sitemonitor/store"
)

// Sweeper deletes terminal report rows older than the retention period
// and removes their artifact files. Running jobs are never touched, so
// a sweep can run while reports generate.
type Sweeper struct {
	log       *zap.Logger
	store     store.Store
	retention time.Duration
}

// NewSweeper builds a sweeper with the given retention period.
func NewSweeper(log *zap.Logger, st store.Store, retention time.Duration) *Sweeper {
	return &Sweeper{log: log, store: st, retention: retention}
}

// Run sweeps immediately, then on a ticker at half the retention period
// (at least every minute) until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.retention / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if removed, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
			s.log.Error("report sweep failed", zap.Error(err))
		} else if removed > 0 {
			s.log.Info("swept expired reports", zap.Int("removed", removed))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sweep purges terminal reports created before now minus the retention
// period and unlinks their artifacts. It returns how many rows were
// removed.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.retention)
	removed, paths, err := s.store.PurgeReportsBefore(ctx, cutoff)
	if err != nil {
		return removed, err
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("could not remove report artifact",
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
	return removed, nil
}
