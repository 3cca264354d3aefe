package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// Membership manages who belongs to a room.
type Membership struct {
	membershipStore model.MembershipStore
	roomStore       model.RoomStore
	auditStore      model.AuditStore
	tx              TxRunner
	logger          *logger.Logger
}

func NewMembership(
	membershipStore model.MembershipStore,
	roomStore model.RoomStore,
	auditStore model.AuditStore,
	tx TxRunner,
	logger *logger.Logger,
) *Membership {
	return &Membership{
		membershipStore: membershipStore,
		roomStore:       roomStore,
		auditStore:      auditStore,
		tx:              tx,
		logger:          logger,
	}
}

// AddMember adds the user to an active room and records MEMBER_JOINED.
// Returns ErrDuplicateMembership when the user is already in the room and
// ErrNotFound when the room is absent or shredded.
func (s *Membership) AddMember(ctx context.Context, userID, roomID uuid.UUID, role model.Role) (model.Membership, error) {
	var membership model.Membership
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.roomStore.GetActive(ctx, roomID); err != nil {
			return err
		}

		saved, err := s.membershipStore.Create(ctx, model.Membership{
			ID:     uuid.New(),
			UserID: userID,
			RoomID: roomID,
			Role:   role,
		})
		if err != nil {
			return err
		}

		_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
			ID:     uuid.New(),
			RoomID: roomID,
			UserID: userID,
			Action: model.AuditMemberJoined,
		})
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		membership = saved
		return nil
	})
	if err != nil {
		return model.Membership{}, err
	}
	return membership, nil
}

// RemoveMember deletes the membership and records MEMBER_REMOVED. The entry
// references the removed member's room and user, captured before the row is
// deleted.
func (s *Membership) RemoveMember(ctx context.Context, membershipID, actingUser uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		membership, err := s.membershipStore.GetByID(ctx, membershipID)
		if err != nil {
			return err
		}

		if err := s.membershipStore.Delete(ctx, membership.ID); err != nil {
			return err
		}

		_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
			ID:     uuid.New(),
			RoomID: membership.RoomID,
			UserID: membership.UserID,
			Action: model.AuditMemberRemoved,
		})
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		s.logger.Info("member removed",
			"membership_id", membership.ID,
			"room_id", membership.RoomID,
			"user_id", membership.UserID,
			"acting_user", actingUser,
		)
		return nil
	})
}

func (s *Membership) GetByID(ctx context.Context, membershipID uuid.UUID) (model.Membership, error) {
	return s.membershipStore.GetByID(ctx, membershipID)
}

// GetRole returns the user's role in the room, or ErrNotFound when the user
// is not a member.
func (s *Membership) GetRole(ctx context.Context, userID, roomID uuid.UUID) (model.Role, error) {
	membership, err := s.membershipStore.GetByUserAndRoom(ctx, userID, roomID)
	if err != nil {
		return "", err
	}
	return membership.Role, nil
}

func (s *Membership) ListMembers(ctx context.Context, roomID uuid.UUID) ([]model.Member, error) {
	return s.membershipStore.ListMembers(ctx, roomID)
}
