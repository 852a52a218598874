package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// HousekeepingService periodically cleans up expired database records and
// retries pending profile deliveries.
type HousekeepingService struct {
	Store         store.Store
	PasswordReset *PasswordResetService
	ProfileSync   *ProfileSyncService
	Logger        *slog.Logger
	Interval      time.Duration
	Clock         Clock

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 minute.
func NewHousekeepingService(
	store store.Store,
	reset *PasswordResetService,
	profiles *ProfileSyncService,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Store:         store,
		PasswordReset: reset,
		ProfileSync:   profiles,
		Logger:        logger,
		Interval:      interval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
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

	// Run immediately on startup
	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one pass. Each step is independent; a failure in one
// doesn't stop the others. It returns the number of steps that succeeded.
func (s *HousekeepingService) RunOnce(ctx context.Context) int {
	ctx = slogx.WithContext(ctx, s.Logger)
	s.Logger.Debug("starting housekeeping")
	ok := 0

	if n, err := s.PasswordReset.CleanupExpiredTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired reset tokens", "error", err)
	} else {
		s.Logger.Debug("deleted expired reset tokens", "count", n)
		ok++
	}

	if n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, s.Clock.now()); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else {
		s.Logger.Debug("deleted expired refresh tokens", "count", n)
		ok++
	}

	if n, err := s.ProfileSync.ProcessPending(ctx); err != nil {
		s.Logger.Error("failed to process pending profiles", "error", err)
	} else {
		if n > 0 {
			s.Logger.Info("pending profiles confirmed", "count", n)
		}
		ok++
	}

	s.Logger.Debug("housekeeping completed", "successful_steps", ok)
	return ok
}
