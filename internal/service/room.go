package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// maxInviteCodeAttempts bounds how many fresh codes Create tries before
// giving up on an improbable run of collisions.
const maxInviteCodeAttempts = 5

// Room implements the room lifecycle: creation with invite allocation,
// lookup, shred and the hard-delete cascade.
type Room struct {
	roomStore       model.RoomStore
	membershipStore model.MembershipStore
	secretStore     model.SecretStore
	auditStore      model.AuditStore
	tx              TxRunner
	ttl             time.Duration
	newCode         func() (string, error)
	logger          *logger.Logger
}

// NewRoom builds the room service. ttl is the default room lifetime; zero
// means rooms never expire on their own.
func NewRoom(
	roomStore model.RoomStore,
	membershipStore model.MembershipStore,
	secretStore model.SecretStore,
	auditStore model.AuditStore,
	tx TxRunner,
	ttl time.Duration,
	logger *logger.Logger,
) *Room {
	return &Room{
		roomStore:       roomStore,
		membershipStore: membershipStore,
		secretStore:     secretStore,
		auditStore:      auditStore,
		tx:              tx,
		ttl:             ttl,
		newCode:         newInviteCode,
		logger:          logger,
	}
}

// Create allocates an invite code and creates the room, its owner membership
// and the ROOM_CREATED audit entry in one transaction. On an invite-code
// collision the whole transaction is retried with a fresh code.
func (s *Room) Create(ctx context.Context, name string, createdBy uuid.UUID, orgRef string) (model.Room, error) {
	if strings.TrimSpace(name) == "" {
		return model.Room{}, fmt.Errorf("room name is required")
	}

	var expiresAt *time.Time
	if s.ttl > 0 {
		t := time.Now().Add(s.ttl)
		expiresAt = &t
	}

	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return model.Room{}, fmt.Errorf("failed to generate invite code: %w", err)
		}

		var room model.Room
		err = s.tx.WithTx(ctx, func(ctx context.Context) error {
			saved, err := s.roomStore.Create(ctx, model.Room{
				ID:         uuid.New(),
				Name:       name,
				InviteCode: code,
				OrgRef:     orgRef,
				Status:     model.RoomStatusActive,
				ExpiresAt:  expiresAt,
				CreatedBy:  createdBy,
			})
			if err != nil {
				return err
			}

			_, err = s.membershipStore.Create(ctx, model.Membership{
				ID:     uuid.New(),
				UserID: createdBy,
				RoomID: saved.ID,
				Role:   model.RoleOwner,
			})
			if err != nil {
				return fmt.Errorf("failed to create owner membership: %w", err)
			}

			_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
				ID:       uuid.New(),
				RoomID:   saved.ID,
				UserID:   createdBy,
				Action:   model.AuditRoomCreated,
				Metadata: &model.AuditMetadata{RoomName: saved.Name},
			})
			if err != nil {
				return fmt.Errorf("failed to append audit entry: %w", err)
			}

			room = saved
			return nil
		})
		if err != nil {
			if errors.Is(err, model.ErrDuplicateKey) {
				s.logger.Warn("invite code collision, retrying", "attempt", attempt+1)
				continue
			}
			return model.Room{}, fmt.Errorf("failed to create room: %w", err)
		}

		return room, nil
	}

	return model.Room{}, fmt.Errorf("failed to allocate invite code after %d attempts: %w", maxInviteCodeAttempts, model.ErrDuplicateKey)
}

func (s *Room) GetActive(ctx context.Context, id uuid.UUID) (model.Room, error) {
	return s.roomStore.GetActive(ctx, id)
}

// GetByInviteCode resolves an active room by code. Codes are matched
// case-insensitively against the stored uppercase form.
func (s *Room) GetByInviteCode(ctx context.Context, code string) (model.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != inviteCodeLength {
		return model.Room{}, fmt.Errorf("invite code must be %d characters: %w", inviteCodeLength, model.ErrNotFound)
	}
	return s.roomStore.GetByInviteCode(ctx, code)
}

func (s *Room) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.RoomSummary, error) {
	return s.roomStore.ListByUser(ctx, userID)
}

// UpdateSettings renames the room and/or moves its expiry. Nil arguments
// leave the corresponding setting untouched.
func (s *Room) UpdateSettings(ctx context.Context, roomID, actingUser uuid.UUID, name *string, expiresAt *time.Time) (model.Room, error) {
	var updated model.Room
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		room, err := s.roomStore.GetActive(ctx, roomID)
		if err != nil {
			return err
		}

		newName := room.Name
		if name != nil {
			if strings.TrimSpace(*name) == "" {
				return fmt.Errorf("room name is required")
			}
			newName = *name
		}
		newExpiry := room.ExpiresAt
		if expiresAt != nil {
			newExpiry = expiresAt
		}

		updated, err = s.roomStore.UpdateSettings(ctx, roomID, newName, newExpiry)
		if err != nil {
			return err
		}

		_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
			ID:       uuid.New(),
			RoomID:   roomID,
			UserID:   actingUser,
			Action:   model.AuditRoomSettingsUpdated,
			Metadata: &model.AuditMetadata{RoomName: newName},
		})
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Room{}, err
	}
	return updated, nil
}

// Shred soft-deletes the room and every live secret in it, appends the
// ROOM_SHREDDED entry and returns the vault pointers of the shredded secrets
// so the caller can purge the ciphertexts best-effort. A second shred of the
// same room returns ErrNotFound.
func (s *Room) Shred(ctx context.Context, roomID, actingUser uuid.UUID) ([]string, error) {
	var vaultObjectIDs []string
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.roomStore.GetActive(ctx, roomID); err != nil {
			return err
		}

		secrets, err := s.secretStore.ListActiveFull(ctx, roomID)
		if err != nil {
			return err
		}

		if _, err := s.secretStore.SoftDeleteAllForRoom(ctx, roomID); err != nil {
			return err
		}
		if err := s.roomStore.MarkDeleted(ctx, roomID); err != nil {
			return err
		}

		_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
			ID:       uuid.New(),
			RoomID:   roomID,
			UserID:   actingUser,
			Action:   model.AuditRoomShredded,
			Metadata: &model.AuditMetadata{SecretCount: len(secrets)},
		})
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		for _, secret := range secrets {
			vaultObjectIDs = append(vaultObjectIDs, secret.VaultObjectID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vaultObjectIDs, nil
}

// HardDelete removes every row belonging to the room in dependency order:
// memberships, secrets, audit trail, then the room itself. Idempotent; rerun
// after a partial failure finishes the job.
func (s *Room) HardDelete(ctx context.Context, roomID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.membershipStore.DeleteAllForRoom(ctx, roomID); err != nil {
			return err
		}
		if err := s.secretStore.DeleteAllForRoom(ctx, roomID); err != nil {
			return err
		}
		if err := s.auditStore.DeleteAllForRoom(ctx, roomID); err != nil {
			return err
		}
		return s.roomStore.Delete(ctx, roomID)
	})
}
