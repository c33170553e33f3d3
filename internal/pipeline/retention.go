package pipeline

import (
	"context"
	"time"

	"github.com/granitehq/granite/internal/artifact"
	"github.com/granitehq/granite/internal/jobstore"
	"github.com/granitehq/granite/internal/logger"
)

// Sweeper evicts terminal jobs older than a configured age, together
// with their artifacts, to bound store growth. Queued and running jobs
// are never touched, so the job lifecycle invariants are unaffected.
type Sweeper struct {
	store     jobstore.Store
	artifacts *artifact.Store
	logger    *logger.Logger
	maxAge    time.Duration
	interval  time.Duration
}

// NewSweeper creates a retention sweeper.
func NewSweeper(store jobstore.Store, artifacts *artifact.Store, log *logger.Logger, maxAge, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		store:     store,
		artifacts: artifacts,
		logger:    log,
		maxAge:    maxAge,
		interval:  interval,
	}
}

// Run sweeps on an interval until ctx is cancelled. Call in a goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	if s.maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.maxAge)
	removed, err := s.store.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Retention sweep failed")
		return
	}
	if len(removed) == 0 {
		return
	}

	for _, jobID := range removed {
		if err := s.artifacts.Delete(ctx, jobID); err != nil {
			s.logger.WithField(logger.FieldJobID, jobID).WithError(err).
				Warn("Failed to delete expired artifact")
		}
	}

	s.logger.WithField(logger.FieldCount, len(removed)).Info("Evicted expired jobs")
}
