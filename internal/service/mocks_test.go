package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/envpass/envpass-server/internal/model"
)

// fakeTx runs the transactional function directly, without a database.
type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockRoomStore mocks the RoomStore interface
type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) Create(ctx context.Context, room model.Room) (model.Room, error) {
	args := m.Called(ctx, room)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *MockRoomStore) GetActive(ctx context.Context, id uuid.UUID) (model.Room, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *MockRoomStore) GetByInviteCode(ctx context.Context, code string) (model.Room, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *MockRoomStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.RoomSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.RoomSummary), args.Error(1)
}

func (m *MockRoomStore) UpdateSettings(ctx context.Context, id uuid.UUID, name string, expiresAt *time.Time) (model.Room, error) {
	args := m.Called(ctx, id, name, expiresAt)
	return args.Get(0).(model.Room), args.Error(1)
}

func (m *MockRoomStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRoomStore) ListExpired(ctx context.Context, now time.Time) ([]model.Room, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]model.Room), args.Error(1)
}

func (m *MockRoomStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMembershipStore mocks the MembershipStore interface
type MockMembershipStore struct {
	mock.Mock
}

func (m *MockMembershipStore) Create(ctx context.Context, membership model.Membership) (model.Membership, error) {
	args := m.Called(ctx, membership)
	return args.Get(0).(model.Membership), args.Error(1)
}

func (m *MockMembershipStore) GetByID(ctx context.Context, id uuid.UUID) (model.Membership, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Membership), args.Error(1)
}

func (m *MockMembershipStore) GetByUserAndRoom(ctx context.Context, userID, roomID uuid.UUID) (model.Membership, error) {
	args := m.Called(ctx, userID, roomID)
	return args.Get(0).(model.Membership), args.Error(1)
}

func (m *MockMembershipStore) ListMembers(ctx context.Context, roomID uuid.UUID) ([]model.Member, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]model.Member), args.Error(1)
}

func (m *MockMembershipStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMembershipStore) DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockSecretStore mocks the SecretStore interface
type MockSecretStore struct {
	mock.Mock
}

func (m *MockSecretStore) Create(ctx context.Context, secret model.Secret) (model.Secret, error) {
	args := m.Called(ctx, secret)
	return args.Get(0).(model.Secret), args.Error(1)
}

func (m *MockSecretStore) GetActiveByID(ctx context.Context, id uuid.UUID) (model.Secret, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Secret), args.Error(1)
}

func (m *MockSecretStore) ListActive(ctx context.Context, roomID uuid.UUID) ([]model.SecretMetadata, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]model.SecretMetadata), args.Error(1)
}

func (m *MockSecretStore) ListActiveFull(ctx context.Context, roomID uuid.UUID) ([]model.Secret, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]model.Secret), args.Error(1)
}

func (m *MockSecretStore) Update(ctx context.Context, secret model.Secret) (model.Secret, error) {
	args := m.Called(ctx, secret)
	return args.Get(0).(model.Secret), args.Error(1)
}

func (m *MockSecretStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSecretStore) SoftDeleteAllForRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *MockSecretStore) ListExpired(ctx context.Context, now time.Time) ([]model.Secret, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]model.Secret), args.Error(1)
}

func (m *MockSecretStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSecretStore) DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockAuditStore mocks the AuditStore interface
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Append(ctx context.Context, entry model.AuditLogEntry) (model.AuditLogEntry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(model.AuditLogEntry), args.Error(1)
}

func (m *MockAuditStore) ListByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]model.AuditEntryView, error) {
	args := m.Called(ctx, roomID, limit)
	return args.Get(0).([]model.AuditEntryView), args.Error(1)
}

func (m *MockAuditStore) DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Upsert(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByExternalID(ctx context.Context, externalID string) (model.User, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}
