package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/kapu/creator-directory-go/internal/domain"
	"go.uber.org/zap"
)

// Refresher is the part of the pipeline the scheduler drives.
type Refresher interface {
	RefreshStaleProfiles(ctx context.Context, limit int) (*domain.RefreshResult, error)
}

// Scheduler periodically refreshes due profiles in the background.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	limit     int
	logger    *zap.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	runMu     sync.Mutex
}

func NewScheduler(refresher Refresher, interval time.Duration, limit int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		limit:     limit,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.ticker = time.NewTicker(s.interval)

	s.logger.Info("Refresh scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("limit", s.limit))

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.RunOnce(ctx)
			case <-s.stopCh:
				s.logger.Info("Refresh scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Refresh scheduler context cancelled")
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunOnce refreshes one batch. Ticks that arrive while a batch is still
// running are dropped.
func (s *Scheduler) RunOnce(ctx context.Context) *domain.RefreshResult {
	if !s.runMu.TryLock() {
		s.logger.Warn("Refresh batch still running, skipping tick")
		return nil
	}
	defer s.runMu.Unlock()

	result, err := s.refresher.RefreshStaleProfiles(ctx, s.limit)
	if err != nil {
		s.logger.Error("Refresh batch failed", zap.Error(err))
	}
	if result != nil {
		s.logger.Info("Refresh batch completed",
			zap.Int("processed", len(result.Results)),
			zap.Int("refreshed", result.Refreshed))
	}
	return result
}
