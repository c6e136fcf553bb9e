package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kommerce/tradegate/internal/auth/store"
)

// HousekeepingService periodically deletes unverified account requests that
// were never confirmed, so abandoned signups do not accumulate.
type HousekeepingService struct {
	Store      store.Store
	Logger     *slog.Logger
	Interval   time.Duration
	RequestTTL time.Duration // how long an unverified request may live

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service. A non-positive
// interval defaults to 1 hour, a non-positive request TTL to 24 hours.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, requestTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if requestTTL <= 0 {
		requestTTL = 24 * time.Hour
	}

	return &HousekeepingService{
		Store:      store,
		Logger:     logger,
		Interval:   interval,
		RequestTTL: requestTTL,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut it
// down gracefully.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down and waits for any in-progress cleanup.
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

func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	cutoff := time.Now().Add(-s.RequestTTL)

	if err := s.Store.AccountRequests().DeleteStaleUnverified(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete stale account requests", "error", err)
		return
	}
	s.Logger.Debug("deleted stale account requests", "cutoff", cutoff)
}
