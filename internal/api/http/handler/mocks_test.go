package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/envpass/envpass-server/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubContextManager returns a fixed user ID, simulating an authenticated
// request without running the middleware.
type stubContextManager struct {
	userID uuid.UUID
}

func (s stubContextManager) SetUserIDToContext(ctx context.Context, _ uuid.UUID) context.Context {
	return ctx
}

func (s stubContextManager) GetUserIDFromContext(_ context.Context) (uuid.UUID, bool) {
	if s.userID == uuid.Nil {
		return uuid.Nil, false
	}
	return s.userID, true
}

// MockRoomService mocks the RoomService interface
type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) Create(ctx context.Context, name string, createdBy uuid.UUID, orgRef string) (model.Room, error) {
	args := m.Called(ctx, name, createdBy, orgRef)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *MockRoomService) GetActive(ctx context.Context, id uuid.UUID) (model.Room, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *MockRoomService) GetByInviteCode(ctx context.Context, code string) (model.Room, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *MockRoomService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.RoomSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.RoomSummary), args.Error(1)
}

func (m *MockRoomService) UpdateSettings(ctx context.Context, roomID, actingUser uuid.UUID, name *string, expiresAt *time.Time) (model.Room, error) {
	args := m.Called(ctx, roomID, actingUser, name, expiresAt)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *MockRoomService) Shred(ctx context.Context, roomID, actingUser uuid.UUID) ([]string, error) {
	args := m.Called(ctx, roomID, actingUser)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRoomService) HardDelete(ctx context.Context, roomID uuid.UUID) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockMembershipService mocks the MembershipService interface
type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) AddMember(ctx context.Context, userID, roomID uuid.UUID, role model.Role) (model.Membership, error) {
	args := m.Called(ctx, userID, roomID, role)
	return args.Get(0).(model.Membership), args.Error(1)
}

func (m *MockMembershipService) RemoveMember(ctx context.Context, membershipID, actingUser uuid.UUID) error {
	args := m.Called(ctx, membershipID, actingUser)
	return args.Error(0)
}

func (m *MockMembershipService) GetByID(ctx context.Context, membershipID uuid.UUID) (model.Membership, error) {
	args := m.Called(ctx, membershipID)
	return args.Get(0).(model.Membership), args.Error(1)
}

func (m *MockMembershipService) GetRole(ctx context.Context, userID, roomID uuid.UUID) (model.Role, error) {
	args := m.Called(ctx, userID, roomID)
	return args.Get(0).(model.Role), args.Error(1)
}

func (m *MockMembershipService) ListMembers(ctx context.Context, roomID uuid.UUID) ([]model.Member, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]model.Member), args.Error(1)
}

// MockSecretService mocks the SecretService interface
type MockSecretService struct {
	mock.Mock
}

func (m *MockSecretService) Create(ctx context.Context, params model.CreateSecretParams) (model.Secret, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.Secret), args.Error(1)
}

func (m *MockSecretService) ListActive(ctx context.Context, roomID uuid.UUID) ([]model.SecretMetadata, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]model.SecretMetadata), args.Error(1)
}

func (m *MockSecretService) RevealReference(ctx context.Context, id uuid.UUID) (model.Secret, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Secret), args.Error(1)
}

func (m *MockSecretService) RecordRead(ctx context.Context, secret model.Secret, actingUser uuid.UUID) error {
	args := m.Called(ctx, secret, actingUser)
	return args.Error(0)
}

func (m *MockSecretService) Update(ctx context.Context, id uuid.UUID, params model.UpdateSecretParams, actingUser uuid.UUID) (model.Secret, string, error) {
	args := m.Called(ctx, id, params, actingUser)
	return args.Get(0).(model.Secret), args.String(1), args.Error(2)
}

func (m *MockSecretService) SoftDelete(ctx context.Context, id, actingUser uuid.UUID) (string, error) {
	args := m.Called(ctx, id, actingUser)
	return args.String(0), args.Error(1)
}

func (m *MockSecretService) ExportActive(ctx context.Context, roomID, actingUser uuid.UUID) ([]model.Secret, error) {
	args := m.Called(ctx, roomID, actingUser)
	return args.Get(0).([]model.Secret), args.Error(1)
}

// MockVault mocks the model.Vault interface
type MockVault struct {
	mock.Mock
}

func (m *MockVault) CreateObject(ctx context.Context, passphrase, value string) (string, error) {
	args := m.Called(ctx, passphrase, value)
	return args.String(0), args.Error(1)
}

func (m *MockVault) ReadObject(ctx context.Context, passphrase, id string) (string, error) {
	args := m.Called(ctx, passphrase, id)
	return args.String(0), args.Error(1)
}

func (m *MockVault) DeleteObject(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
