package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// roomPurger is the slice of the room service the sweeps need.
type roomPurger interface {
	HardDelete(ctx context.Context, roomID uuid.UUID) error
}

// Cleanup implements the periodic sweeps: physically removing expired rooms
// and per-secret expiries. Both sweeps are idempotent; a room or secret that
// fails mid-sweep is picked up again on the next run.
type Cleanup struct {
	roomStore   model.RoomStore
	secretStore model.SecretStore
	rooms       roomPurger
	logger      *logger.Logger
}

func NewCleanup(roomStore model.RoomStore, secretStore model.SecretStore, rooms roomPurger, logger *logger.Logger) *Cleanup {
	return &Cleanup{
		roomStore:   roomStore,
		secretStore: secretStore,
		rooms:       rooms,
		logger:      logger,
	}
}

// SweepExpiredRooms hard-deletes every room whose expiry passed, shredded or
// not, and returns how many rooms were removed plus the vault pointers of
// the secrets that were still live. Pointers of already soft-deleted secrets
// were handed out when they were shredded.
func (s *Cleanup) SweepExpiredRooms(ctx context.Context, now time.Time) (int, []string, error) {
	rooms, err := s.roomStore.ListExpired(ctx, now)
	if err != nil {
		return 0, nil, err
	}

	var (
		removed        int
		vaultObjectIDs []string
	)
	for _, room := range rooms {
		secrets, err := s.secretStore.ListActiveFull(ctx, room.ID)
		if err != nil {
			s.logger.Error("failed to list secrets of expired room", "room_id", room.ID, "error", err)
			continue
		}

		if err := s.rooms.HardDelete(ctx, room.ID); err != nil {
			s.logger.Error("failed to hard delete expired room", "room_id", room.ID, "error", err)
			continue
		}

		for _, secret := range secrets {
			vaultObjectIDs = append(vaultObjectIDs, secret.VaultObjectID)
		}
		removed++
	}

	return removed, vaultObjectIDs, nil
}

// SweepExpiredSecrets physically removes live secrets whose own expiry
// passed and returns their vault pointers for purging.
func (s *Cleanup) SweepExpiredSecrets(ctx context.Context, now time.Time) (int, []string, error) {
	secrets, err := s.secretStore.ListExpired(ctx, now)
	if err != nil {
		return 0, nil, err
	}

	var (
		removed        int
		vaultObjectIDs []string
	)
	for _, secret := range secrets {
		if err := s.secretStore.Delete(ctx, secret.ID); err != nil {
			s.logger.Error("failed to delete expired secret", "secret_id", secret.ID, "error", err)
			continue
		}
		vaultObjectIDs = append(vaultObjectIDs, secret.VaultObjectID)
		removed++
	}

	return removed, vaultObjectIDs, nil
}
