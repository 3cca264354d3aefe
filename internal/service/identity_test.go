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

func TestIdentityService_GetOrCreate(t *testing.T) {
	t.Run("upserts user keyed by external id", func(t *testing.T) {
		userStore := &MockUserStore{}
		svc := NewIdentity(userStore, testutil.MakeNoopLogger())

		userStore.On("Upsert", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			return u.ExternalID == "idp|123" && u.Email == "dev@example.com" && u.DisplayName == "Dev"
		})).Return(model.User{ID: uuid.New(), ExternalID: "idp|123", Email: "dev@example.com"}, nil)

		user, err := svc.GetOrCreate(context.Background(), model.IdentityClaims{
			ExternalID:  "idp|123",
			Email:       "dev@example.com",
			DisplayName: "Dev",
		})
		require.NoError(t, err)
		assert.Equal(t, "idp|123", user.ExternalID)
		userStore.AssertExpectations(t)
	})

	t.Run("rejects claims without external id", func(t *testing.T) {
		svc := NewIdentity(&MockUserStore{}, testutil.MakeNoopLogger())

		_, err := svc.GetOrCreate(context.Background(), model.IdentityClaims{Email: "dev@example.com"})
		assert.Error(t, err)
	})

	t.Run("rejects claims without email", func(t *testing.T) {
		svc := NewIdentity(&MockUserStore{}, testutil.MakeNoopLogger())

		_, err := svc.GetOrCreate(context.Background(), model.IdentityClaims{ExternalID: "idp|123"})
		assert.Error(t, err)
	})
}

func TestIdentityService_GetByExternalID(t *testing.T) {
	userStore := &MockUserStore{}
	svc := NewIdentity(userStore, testutil.MakeNoopLogger())

	userStore.On("GetByExternalID", mock.Anything, "idp|123").
		Return(model.User{ExternalID: "idp|123"}, nil)

	user, err := svc.GetByExternalID(context.Background(), "idp|123")
	require.NoError(t, err)
	assert.Equal(t, "idp|123", user.ExternalID)
}

func TestAuditService_Append(t *testing.T) {
	t.Run("rejects unknown action", func(t *testing.T) {
		svc := NewAudit(&MockAuditStore{}, testutil.MakeNoopLogger())

		_, err := svc.Append(context.Background(), model.AuditLogEntry{Action: "BOGUS"})
		assert.Error(t, err)
	})

	t.Run("assigns id when missing", func(t *testing.T) {
		auditStore := &MockAuditStore{}
		svc := NewAudit(auditStore, testutil.MakeNoopLogger())

		auditStore.On("Append", mock.Anything, mock.MatchedBy(func(entry model.AuditLogEntry) bool {
			return entry.ID != uuid.Nil && entry.Action == model.AuditSecretRead
		})).Return(model.AuditLogEntry{}, nil)

		_, err := svc.Append(context.Background(), model.AuditLogEntry{Action: model.AuditSecretRead})
		require.NoError(t, err)
		auditStore.AssertExpectations(t)
	})

	t.Run("negative limit rejected on list", func(t *testing.T) {
		svc := NewAudit(&MockAuditStore{}, testutil.MakeNoopLogger())

		_, err := svc.List(context.Background(), uuid.New(), -1)
		assert.Error(t, err)
	})
}
