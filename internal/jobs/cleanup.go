// Package jobs contains the background loops of the server.
package jobs

import (
	"context"
	"time"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// sweeper is the slice of the cleanup service the loop drives.
type sweeper interface {
	SweepExpiredRooms(ctx context.Context, now time.Time) (int, []string, error)
	SweepExpiredSecrets(ctx context.Context, now time.Time) (int, []string, error)
}

// CleanupSweeper periodically removes expired rooms and secrets and purges
// their vault objects best-effort. A vault purge failure is logged and left
// for manual reconciliation; the database rows are already gone.
type CleanupSweeper struct {
	cleanup  sweeper
	vault    model.Vault
	interval time.Duration
	stopChan chan struct{}
	logger   *logger.Logger
}

// NewCleanupSweeper creates the sweeper. intervalMinutes defaults to 60 when
// not positive.
func NewCleanupSweeper(cleanup sweeper, vault model.Vault, intervalMinutes int, logger *logger.Logger) *CleanupSweeper {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	return &CleanupSweeper{
		cleanup:  cleanup,
		vault:    vault,
		interval: time.Duration(intervalMinutes) * time.Minute,
		stopChan: make(chan struct{}),
		logger:   logger,
	}
}

// Start begins the sweep loop. It runs one sweep immediately, then repeats
// on the configured interval until ctx is cancelled or Stop is called.
func (s *CleanupSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("cleanup sweeper started", "interval", s.interval)

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			s.logger.Info("cleanup sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("cleanup sweeper context cancelled")
			return
		}
	}
}

// Stop signals the loop to exit.
func (s *CleanupSweeper) Stop() {
	close(s.stopChan)
}

func (s *CleanupSweeper) runSweep(ctx context.Context) {
	now := time.Now()

	rooms, roomVaultIDs, err := s.cleanup.SweepExpiredRooms(ctx, now)
	if err != nil {
		s.logger.Error("failed to sweep expired rooms", "error", err)
	} else if rooms > 0 {
		s.logger.Info("swept expired rooms", "count", rooms)
	}
	s.purgeVaultObjects(ctx, roomVaultIDs)

	secrets, secretVaultIDs, err := s.cleanup.SweepExpiredSecrets(ctx, now)
	if err != nil {
		s.logger.Error("failed to sweep expired secrets", "error", err)
	} else if secrets > 0 {
		s.logger.Info("swept expired secrets", "count", secrets)
	}
	s.purgeVaultObjects(ctx, secretVaultIDs)
}

func (s *CleanupSweeper) purgeVaultObjects(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.vault.DeleteObject(ctx, id); err != nil {
			s.logger.Error("failed to purge vault object", "vault_object_id", id, "error", err)
		}
	}
}
