// Package background holds the dev server's periodic maintenance tasks.
package background

import (
	"context"
	"log/slog"
	"time"
)

// Purger is anything that can drop its expired entries.
type Purger interface {
	PurgeExpired() (sessions, codes int)
}

// CleanupManager periodically purges expired sessions and verification
// codes from the store.
type CleanupManager struct {
	store    Purger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(store Purger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup()

	for {
		select {
		case <-ticker.C:
			cm.runCleanup()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup() {
	sessions, codes := cm.store.PurgeExpired()
	if sessions > 0 || codes > 0 {
		cm.logger.Info("expired entry cleanup completed",
			slog.Int("sessions", sessions),
			slog.Int("codes", codes))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
