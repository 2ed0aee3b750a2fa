package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/harbourlane/foyer/internal/store"
)

// HousekeepingService periodically cleans up expired database records so
// sessions, verification tokens and email change requests don't pile up.
// Expired bans are lifted on the same cadence.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of expired records.
// Each step is independent - failures in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()
	s.Logger.Info("starting housekeeping cleanup")

	var completed int

	if err := s.Store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	} else {
		completed++
	}

	if err := s.Store.Verifications().DeleteExpiredVerifications(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired verifications", "error", err)
	} else {
		completed++
	}

	if err := s.Store.EmailChangeRequests().DeleteExpiredRequests(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired email change requests", "error", err)
	} else {
		completed++
	}

	if err := s.Store.Users().LiftExpiredBans(ctx, now); err != nil {
		s.Logger.Error("failed to lift expired bans", "error", err)
	} else {
		completed++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", completed)
}
