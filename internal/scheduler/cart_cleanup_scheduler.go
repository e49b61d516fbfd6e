package scheduler

import (
	"context"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const purgeTimeout = 2 * time.Minute

// GuestCartPurger deletes guest carts untouched for longer than olderThan.
type GuestCartPurger interface {
	PurgeStaleGuestCarts(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CartCleanupScheduler periodically removes abandoned guest carts.
type CartCleanupScheduler struct {
	cron      *cron.Cron
	carts     GuestCartPurger
	spec      string
	retention time.Duration
}

func NewCartCleanupScheduler(carts GuestCartPurger, spec string, retention time.Duration) *CartCleanupScheduler {
	return &CartCleanupScheduler{
		// Skip a run while the previous one is still going.
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		carts:     carts,
		spec:      spec,
		retention: retention,
	}
}

func (s *CartCleanupScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		logger.Error("Failed to add cron job for guest cart cleanup", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Guest cart cleanup scheduler started", map[string]interface{}{
		"spec":      s.spec,
		"retention": s.retention.String(),
	})
	return nil
}

// RunOnce performs a single purge pass.
func (s *CartCleanupScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	deleted, err := s.carts.PurgeStaleGuestCarts(ctx, s.retention)
	if err != nil {
		logger.Error("Failed to purge stale guest carts", err)
		return
	}
	logger.Info("Stale guest carts purged", map[string]interface{}{
		"deleted": deleted,
	})
}

// Stop waits for a running purge to finish.
func (s *CartCleanupScheduler) Stop() {
	logger.Info("Stopping guest cart cleanup scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Guest cart cleanup scheduler stopped", nil)
}
