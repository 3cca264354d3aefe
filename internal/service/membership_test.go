package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/envpass/envpass-server/internal/model"
	"github.com/envpass/envpass-server/internal/testutil"
)

func newMembershipService(membershipStore *MockMembershipStore, roomStore *MockRoomStore, auditStore *MockAuditStore) *Membership {
	return NewMembership(membershipStore, roomStore, auditStore, fakeTx{}, testutil.MakeNoopLogger())
}

func TestMembershipService_AddMember(t *testing.T) {
	userID := uuid.New()
	roomID := uuid.New()

	t.Run("adds member with audit entry", func(t *testing.T) {
		membershipStore := &MockMembershipStore{}
		roomStore := &MockRoomStore{}
		auditStore := &MockAuditStore{}
		svc := newMembershipService(membershipStore, roomStore, auditStore)

		roomStore.On("GetActive", mock.Anything, roomID).Return(model.Room{ID: roomID}, nil)
		membershipStore.On("Create", mock.Anything, mock.MatchedBy(func(m model.Membership) bool {
			return m.UserID == userID && m.RoomID == roomID && m.Role == model.RoleMember
		})).Return(model.Membership{ID: uuid.New(), UserID: userID, RoomID: roomID, Role: model.RoleMember}, nil)
		auditStore.On("Append", mock.Anything, mock.MatchedBy(func(entry model.AuditLogEntry) bool {
			return entry.Action == model.AuditMemberJoined && entry.UserID == userID
		})).Return(model.AuditLogEntry{}, nil)

		membership, err := svc.AddMember(context.Background(), userID, roomID, model.RoleMember)
		require.NoError(t, err)
		assert.Equal(t, model.RoleMember, membership.Role)

		membershipStore.AssertExpectations(t)
		auditStore.AssertExpectations(t)
	})

	t.Run("rejoin surfaces duplicate membership", func(t *testing.T) {
		membershipStore := &MockMembershipStore{}
		roomStore := &MockRoomStore{}
		svc := newMembershipService(membershipStore, roomStore, &MockAuditStore{})

		roomStore.On("GetActive", mock.Anything, roomID).Return(model.Room{ID: roomID}, nil)
		membershipStore.On("Create", mock.Anything, mock.Anything).Return(model.Membership{}, model.ErrDuplicateMembership)

		_, err := svc.AddMember(context.Background(), userID, roomID, model.RoleMember)
		assert.ErrorIs(t, err, model.ErrDuplicateMembership)
	})

	t.Run("shredded room reports not found", func(t *testing.T) {
		roomStore := &MockRoomStore{}
		svc := newMembershipService(&MockMembershipStore{}, roomStore, &MockAuditStore{})

		roomStore.On("GetActive", mock.Anything, roomID).Return(model.Room{}, model.ErrNotFound)

		_, err := svc.AddMember(context.Background(), userID, roomID, model.RoleMember)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestMembershipService_RemoveMember(t *testing.T) {
	membershipID := uuid.New()
	roomID := uuid.New()
	actingUser := uuid.New()

	t.Run("removes membership with audit entry", func(t *testing.T) {
		membershipStore := &MockMembershipStore{}
		auditStore := &MockAuditStore{}
		svc := newMembershipService(membershipStore, &MockRoomStore{}, auditStore)

		// The entry must reference the removed member, not whoever removed
		// them, even though the row is gone by the time it is written.
		removedUser := uuid.New()
		membershipStore.On("GetByID", mock.Anything, membershipID).Return(model.Membership{ID: membershipID, RoomID: roomID, UserID: removedUser}, nil)
		membershipStore.On("Delete", mock.Anything, membershipID).Return(nil)
		auditStore.On("Append", mock.Anything, mock.MatchedBy(func(entry model.AuditLogEntry) bool {
			return entry.Action == model.AuditMemberRemoved &&
				entry.RoomID == roomID && entry.UserID == removedUser
		})).Return(model.AuditLogEntry{}, nil)

		err := svc.RemoveMember(context.Background(), membershipID, actingUser)
		require.NoError(t, err)
		auditStore.AssertExpectations(t)
	})

	t.Run("unknown membership reports not found", func(t *testing.T) {
		membershipStore := &MockMembershipStore{}
		svc := newMembershipService(membershipStore, &MockRoomStore{}, &MockAuditStore{})

		membershipStore.On("GetByID", mock.Anything, membershipID).Return(model.Membership{}, model.ErrNotFound)

		err := svc.RemoveMember(context.Background(), membershipID, actingUser)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestMembershipService_GetRole(t *testing.T) {
	userID := uuid.New()
	roomID := uuid.New()

	t.Run("returns member role", func(t *testing.T) {
		membershipStore := &MockMembershipStore{}
		svc := newMembershipService(membershipStore, &MockRoomStore{}, &MockAuditStore{})

		membershipStore.On("GetByUserAndRoom", mock.Anything, userID, roomID).Return(model.Membership{Role: model.RoleOwner}, nil)

		role, err := svc.GetRole(context.Background(), userID, roomID)
		require.NoError(t, err)
		assert.Equal(t, model.RoleOwner, role)
	})

	t.Run("non-member reports not found", func(t *testing.T) {
		membershipStore := &MockMembershipStore{}
		svc := newMembershipService(membershipStore, &MockRoomStore{}, &MockAuditStore{})

		membershipStore.On("GetByUserAndRoom", mock.Anything, userID, roomID).Return(model.Membership{}, model.ErrNotFound)

		_, err := svc.GetRole(context.Background(), userID, roomID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
