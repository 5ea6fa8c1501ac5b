package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"etsy_importer/internal/domain"
)

// Syncer defines the interface for sync operations.
type Syncer interface {
	Sync(ctx context.Context, creds domain.Credentials) (*domain.SyncResult, error)
}

// Scheduler runs an import on start, on every tick of the interval and on
// manual triggers. Triggers arriving while one is pending are coalesced.
type Scheduler struct {
	syncer   Syncer
	creds    domain.Credentials
	interval time.Duration
	trigger  chan struct{}
	logger   *slog.Logger
}

func NewScheduler(syncer Syncer, creds domain.Credentials, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		creds:    creds,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger.With("component", "scheduler", "store_id", creds.StoreID),
	}
}

// Trigger requests a run outside the schedule. It reports false when a
// request is already pending.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runSync(ctx, "startup")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runSync(ctx, "schedule")
		case <-s.trigger:
			s.runSync(ctx, "manual")
		}
	}
}

// RunOnce performs a single run and returns its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (*domain.SyncResult, error) {
	return s.syncer.Sync(ctx, s.creds)
}

func (s *Scheduler) runSync(ctx context.Context, reason string) {
	result, err := s.syncer.Sync(ctx, s.creds)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		s.logger.Warn("sync skipped, run in progress", "reason", reason)
		return
	case err != nil:
		s.logger.Error("sync failed", "reason", reason, "error", err)
		return
	}

	for _, f := range result.Failures {
		s.logger.Warn("listing not imported",
			"run_id", result.RunID,
			"listing_id", f.ListingID,
			"stage", f.Stage,
			"error", f.Cause,
		)
	}
}
