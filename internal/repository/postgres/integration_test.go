//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/envpass/envpass-server/internal/model"
	repo "github.com/envpass/envpass-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "envpass_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/envpass_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func createUser(t *testing.T, ur *repo.UserRepository, externalID, email string) model.User {
	t.Helper()
	u, err := ur.Upsert(context.Background(), model.User{
		ID:         uuid.New(),
		ExternalID: externalID,
		Email:      email,
	})
	require.NoError(t, err)
	return u
}

func createRoom(t *testing.T, rr *repo.RoomRepository, code string, createdBy uuid.UUID) model.Room {
	t.Helper()
	room, err := rr.Create(context.Background(), model.Room{
		ID:         uuid.New(),
		Name:       "room-" + code,
		InviteCode: code,
		Status:     model.RoomStatusActive,
		CreatedBy:  createdBy,
	})
	require.NoError(t, err)
	return room
}

func TestUserRepository_UpsertIdempotence(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)

	first, err := ur.Upsert(ctx, model.User{
		ID:          uuid.New(),
		ExternalID:  "ext-upsert",
		Email:       "upsert@example.com",
		DisplayName: "Before",
	})
	require.NoError(t, err)

	// A second login for the same identity keeps the row and refreshes
	// the profile.
	second, err := ur.Upsert(ctx, model.User{
		ID:          uuid.New(),
		ExternalID:  "ext-upsert",
		Email:       "upsert@example.com",
		DisplayName: "After",
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "After", second.DisplayName)

	byExternal, err := ur.GetByExternalID(ctx, "ext-upsert")
	require.NoError(t, err)
	require.Equal(t, first.ID, byExternal.ID)

	byID, err := ur.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "upsert@example.com", byID.Email)

	_, err = ur.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestRoomRepository_InviteCodeLifecycle(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRoomRepository(conn)

	owner := createUser(t, ur, "ext-invite", "invite@example.com")
	room := createRoom(t, rr, "CODE23", owner.ID)

	// The code is taken while the room is active.
	_, err = rr.Create(ctx, model.Room{
		ID:         uuid.New(),
		Name:       "clash",
		InviteCode: "CODE23",
		Status:     model.RoomStatusActive,
		CreatedBy:  owner.ID,
	})
	require.ErrorIs(t, err, model.ErrDuplicateKey)

	byCode, err := rr.GetByInviteCode(ctx, "CODE23")
	require.NoError(t, err)
	require.Equal(t, room.ID, byCode.ID)

	// Shredding frees the code for reuse.
	require.NoError(t, rr.MarkDeleted(ctx, room.ID))

	_, err = rr.GetByInviteCode(ctx, "CODE23")
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = rr.GetActive(ctx, room.ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	reused, err := rr.Create(ctx, model.Room{
		ID:         uuid.New(),
		Name:       "successor",
		InviteCode: "CODE23",
		Status:     model.RoomStatusActive,
		CreatedBy:  owner.ID,
	})
	require.NoError(t, err)
	require.NotEqual(t, room.ID, reused.ID)

	// A second MarkDeleted finds nothing active.
	require.ErrorIs(t, rr.MarkDeleted(ctx, room.ID), model.ErrNotFound)
}

func TestRoomRepository_ListByUserAndExpiry(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRoomRepository(conn)
	mr := repo.NewMembershipRepository(conn)

	owner := createUser(t, ur, "ext-list", "list@example.com")
	active := createRoom(t, rr, "LIST22", owner.ID)

	past := time.Now().Add(-time.Hour)
	expired, err := rr.Create(ctx, model.Room{
		ID:         uuid.New(),
		Name:       "stale",
		InviteCode: "LIST33",
		Status:     model.RoomStatusActive,
		ExpiresAt:  &past,
		CreatedBy:  owner.ID,
	})
	require.NoError(t, err)

	for _, roomID := range []uuid.UUID{active.ID, expired.ID} {
		_, err = mr.Create(ctx, model.Membership{
			ID:     uuid.New(),
			UserID: owner.ID,
			RoomID: roomID,
			Role:   model.RoleOwner,
		})
		require.NoError(t, err)
	}

	// Expired rooms drop out of the listing before the sweep touches them.
	summaries, err := rr.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, active.ID, summaries[0].ID)
	require.Equal(t, model.RoleOwner, summaries[0].Role)
	require.Equal(t, 1, summaries[0].MemberCount)

	stale, err := rr.ListExpired(ctx, time.Now())
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(stale))
	for _, r := range stale {
		ids = append(ids, r.ID)
	}
	require.Contains(t, ids, expired.ID)
	require.NotContains(t, ids, active.ID)
}

func TestMembershipRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRoomRepository(conn)
	mr := repo.NewMembershipRepository(conn)

	owner := createUser(t, ur, "ext-m1", "m1@example.com")
	member := createUser(t, ur, "ext-m2", "m2@example.com")
	room := createRoom(t, rr, "MEMB22", owner.ID)

	_, err = mr.Create(ctx, model.Membership{ID: uuid.New(), UserID: owner.ID, RoomID: room.ID, Role: model.RoleOwner})
	require.NoError(t, err)
	saved, err := mr.Create(ctx, model.Membership{ID: uuid.New(), UserID: member.ID, RoomID: room.ID, Role: model.RoleMember})
	require.NoError(t, err)

	_, err = mr.Create(ctx, model.Membership{ID: uuid.New(), UserID: member.ID, RoomID: room.ID, Role: model.RoleMember})
	require.ErrorIs(t, err, model.ErrDuplicateMembership)

	got, err := mr.GetByUserAndRoom(ctx, member.ID, room.ID)
	require.NoError(t, err)
	require.Equal(t, saved.ID, got.ID)
	require.Equal(t, model.RoleMember, got.Role)

	members, err := mr.ListMembers(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, owner.ID, members[0].User.ID)
	require.False(t, members[0].JoinedAt.IsZero())

	require.NoError(t, mr.Delete(ctx, saved.ID))
	require.ErrorIs(t, mr.Delete(ctx, saved.ID), model.ErrNotFound)
}

func TestSecretRepository_KeyUniquenessAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRoomRepository(conn)
	sr := repo.NewSecretRepository(conn)

	owner := createUser(t, ur, "ext-s1", "s1@example.com")
	room := createRoom(t, rr, "SECR22", owner.ID)

	secret, err := sr.Create(ctx, model.Secret{
		ID:            uuid.New(),
		RoomID:        room.ID,
		KeyName:       "API_KEY",
		VaultObjectID: "vlt_1",
		Tags:          []string{"prod"},
		CreatedBy:     owner.ID,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"prod"}, secret.Tags)

	_, err = sr.Create(ctx, model.Secret{
		ID:            uuid.New(),
		RoomID:        room.ID,
		KeyName:       "API_KEY",
		VaultObjectID: "vlt_2",
		CreatedBy:     owner.ID,
	})
	require.ErrorIs(t, err, model.ErrDuplicateKey)

	// Soft delete frees the key name for a replacement.
	require.NoError(t, sr.SoftDelete(ctx, secret.ID))
	require.ErrorIs(t, sr.SoftDelete(ctx, secret.ID), model.ErrNotFound)

	_, err = sr.GetActiveByID(ctx, secret.ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	replacement, err := sr.Create(ctx, model.Secret{
		ID:            uuid.New(),
		RoomID:        room.ID,
		KeyName:       "API_KEY",
		VaultObjectID: "vlt_3",
		CreatedBy:     owner.ID,
	})
	require.NoError(t, err)

	listed, err := sr.ListActive(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, replacement.ID, listed[0].ID)
}

func TestSecretRepository_UpdateAndExpiry(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRoomRepository(conn)
	sr := repo.NewSecretRepository(conn)

	owner := createUser(t, ur, "ext-s2", "s2@example.com")
	room := createRoom(t, rr, "UPDT22", owner.ID)

	secret, err := sr.Create(ctx, model.Secret{
		ID:            uuid.New(),
		RoomID:        room.ID,
		KeyName:       "DB_URL",
		VaultObjectID: "vlt_a",
		CreatedBy:     owner.ID,
	})
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	secret.KeyName = "DATABASE_URL"
	secret.VaultObjectID = "vlt_b"
	secret.ExpiresAt = &past
	updated, err := sr.Update(ctx, secret)
	require.NoError(t, err)
	require.Equal(t, "DATABASE_URL", updated.KeyName)
	require.Equal(t, "vlt_b", updated.VaultObjectID)

	stale, err := sr.ListExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, updated.ID, stale[0].ID)

	missing := secret
	missing.ID = uuid.New()
	_, err = sr.Update(ctx, missing)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAuditRepository_OrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRoomRepository(conn)
	ar := repo.NewAuditRepository(conn)

	owner := createUser(t, ur, "ext-a1", "a1@example.com")
	room := createRoom(t, rr, "AUDT22", owner.ID)

	actions := []model.AuditAction{model.AuditRoomCreated, model.AuditSecretCreated, model.AuditSecretRead}
	for _, action := range actions {
		_, err = ar.Append(ctx, model.AuditLogEntry{
			ID:       uuid.New(),
			RoomID:   room.ID,
			UserID:   owner.ID,
			Action:   action,
			Metadata: &model.AuditMetadata{KeyName: "API_KEY"},
		})
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	entries, err := ar.ListByRoom(ctx, room.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, model.AuditSecretRead, entries[0].Action)
	require.Equal(t, model.AuditRoomCreated, entries[2].Action)
	require.NotNil(t, entries[0].Actor)
	require.Equal(t, "a1@example.com", entries[0].Actor.Email)
	require.NotNil(t, entries[0].Metadata)
	require.Equal(t, "API_KEY", entries[0].Metadata.KeyName)

	limited, err := ar.ListByRoom(ctx, room.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, model.AuditSecretRead, limited[0].Action)
}

func TestConnection_WithTxRollback(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRoomRepository(conn)

	owner := createUser(t, ur, "ext-tx", "tx@example.com")

	roomID := uuid.New()
	wantErr := fmt.Errorf("boom")
	err = conn.WithTx(ctx, func(ctx context.Context) error {
		_, err := rr.Create(ctx, model.Room{
			ID:         roomID,
			Name:       "doomed",
			InviteCode: "ROLL22",
			Status:     model.RoomStatusActive,
			CreatedBy:  owner.ID,
		})
		require.NoError(t, err)

		// The row is visible inside the transaction.
		_, err = rr.GetActive(ctx, roomID)
		require.NoError(t, err)

		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	_, err = rr.GetActive(ctx, roomID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestHardDeleteCascade(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ur := repo.NewUserRepository(conn)
	rr := repo.NewRoomRepository(conn)
	mr := repo.NewMembershipRepository(conn)
	sr := repo.NewSecretRepository(conn)
	ar := repo.NewAuditRepository(conn)

	owner := createUser(t, ur, "ext-hd", "hd@example.com")
	room := createRoom(t, rr, "HARD22", owner.ID)

	membership, err := mr.Create(ctx, model.Membership{ID: uuid.New(), UserID: owner.ID, RoomID: room.ID, Role: model.RoleOwner})
	require.NoError(t, err)
	_, err = sr.Create(ctx, model.Secret{ID: uuid.New(), RoomID: room.ID, KeyName: "K", VaultObjectID: "vlt_x", CreatedBy: owner.ID})
	require.NoError(t, err)
	_, err = ar.Append(ctx, model.AuditLogEntry{ID: uuid.New(), RoomID: room.ID, UserID: owner.ID, Action: model.AuditRoomCreated})
	require.NoError(t, err)

	err = conn.WithTx(ctx, func(ctx context.Context) error {
		if err := mr.DeleteAllForRoom(ctx, room.ID); err != nil {
			return err
		}
		if err := sr.DeleteAllForRoom(ctx, room.ID); err != nil {
			return err
		}
		if err := ar.DeleteAllForRoom(ctx, room.ID); err != nil {
			return err
		}
		return rr.Delete(ctx, room.ID)
	})
	require.NoError(t, err)

	_, err = rr.GetActive(ctx, room.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = mr.GetByID(ctx, membership.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	secrets, err := sr.ListActiveFull(ctx, room.ID)
	require.NoError(t, err)
	require.Empty(t, secrets)
	entries, err := ar.ListByRoom(ctx, room.ID, 0)
	require.NoError(t, err)
	require.Empty(t, entries)

	// The cascade is idempotent.
	require.NoError(t, rr.Delete(ctx, room.ID))
}
