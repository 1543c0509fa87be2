package lock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/showtime-booking/internal/logger"
)

// Sweeper reclaims expired holds in the background at a fixed interval.
// It is logically just another caller of the lock manager: every
// reclaim competes for the same per-key mutex as customer traffic, so
// correctness never depends on when, or whether, a sweep runs — only
// physical cleanup and the freshness of bulk seat maps do.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(m *Manager, interval time.Duration) *Sweeper {
	return &Sweeper{
		manager:  m,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
// Run it on its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("expiry sweeper stopped: context cancelled")
			return
		case <-s.stopCh:
			logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep performs one pass.  Sweeping is best-effort cleanup, so errors
// are logged and the loop keeps running.
func (s *Sweeper) sweep(ctx context.Context) {
	reclaimed, err := s.manager.SweepExpired(ctx)
	if err != nil {
		logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if reclaimed > 0 {
		logger.Info("expired holds reclaimed", zap.Int("count", reclaimed))
	}
}
