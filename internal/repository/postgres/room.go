package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/envpass/envpass-server/internal/model"
)

var _ model.RoomStore = (*RoomRepository)(nil)

type RoomRepository struct {
	db *Connection
}

func NewRoomRepository(db *Connection) *RoomRepository {
	return &RoomRepository{
		db: db,
	}
}

const roomColumns = `id, name, invite_code, org_ref, status, expires_at, created_by, created_at, updated_at`

func scanRoom(row pgx.Row) (model.Room, error) {
	var room model.Room
	err := row.Scan(
		&room.ID, &room.Name, &room.InviteCode, &room.OrgRef, &room.Status,
		&room.ExpiresAt, &room.CreatedBy, &room.CreatedAt, &room.UpdatedAt,
	)
	return room, err
}

func (r *RoomRepository) Create(ctx context.Context, room model.Room) (model.Room, error) {
	query := `
		INSERT INTO rooms (id, name, invite_code, org_ref, status, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + roomColumns

	saved, err := scanRoom(r.db.db(ctx).QueryRow(ctx, query,
		room.ID, room.Name, room.InviteCode, room.OrgRef, string(room.Status),
		room.ExpiresAt, room.CreatedBy,
	))
	if err != nil {
		if uniqueViolation(err, "rooms_invite_code_active_key") {
			return model.Room{}, fmt.Errorf("invite code %q already in use: %w", room.InviteCode, model.ErrDuplicateKey)
		}
		return model.Room{}, fmt.Errorf("failed to create room: %w", err)
	}

	return saved, nil
}

func (r *RoomRepository) GetActive(ctx context.Context, id uuid.UUID) (model.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 AND status = 'ACTIVE'`

	room, err := scanRoom(r.db.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Room{}, model.ErrNotFound
		}
		return model.Room{}, fmt.Errorf("failed to get room by id: %w", err)
	}

	return room, nil
}

func (r *RoomRepository) GetByInviteCode(ctx context.Context, code string) (model.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE invite_code = $1 AND status = 'ACTIVE'`

	room, err := scanRoom(r.db.db(ctx).QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Room{}, model.ErrNotFound
		}
		return model.Room{}, fmt.Errorf("failed to get room by invite code: %w", err)
	}

	return room, nil
}

func (r *RoomRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.RoomSummary, error) {
	query := `
		SELECT r.id, r.name, r.invite_code, r.org_ref, r.status, r.expires_at, r.created_by, r.created_at, r.updated_at,
		       m.role,
		       (SELECT COUNT(*) FROM memberships mm WHERE mm.room_id = r.id) AS member_count,
		       (SELECT COUNT(*) FROM secrets s WHERE s.room_id = r.id AND s.deleted_at IS NULL) AS secret_count
		FROM memberships m
		JOIN rooms r ON r.id = m.room_id
		WHERE m.user_id = $1
		  AND r.status = 'ACTIVE'
		  AND (r.expires_at IS NULL OR r.expires_at > NOW())
		ORDER BY r.created_at DESC`

	rows, err := r.db.db(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms by user: %w", err)
	}
	defer rows.Close()

	var summaries []model.RoomSummary
	for rows.Next() {
		var s model.RoomSummary
		err := rows.Scan(
			&s.ID, &s.Name, &s.InviteCode, &s.OrgRef, &s.Status,
			&s.ExpiresAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
			&s.Role, &s.MemberCount, &s.SecretCount,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *RoomRepository) UpdateSettings(ctx context.Context, id uuid.UUID, name string, expiresAt *time.Time) (model.Room, error) {
	query := `
		UPDATE rooms SET name = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE'
		RETURNING ` + roomColumns

	room, err := scanRoom(r.db.db(ctx).QueryRow(ctx, query, id, name, expiresAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Room{}, model.ErrNotFound
		}
		return model.Room{}, fmt.Errorf("failed to update room settings: %w", err)
	}

	return room, nil
}

func (r *RoomRepository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE rooms SET status = 'DELETED', updated_at = NOW() WHERE id = $1 AND status = 'ACTIVE'`
	cmd, err := r.db.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark room deleted: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE expires_at IS NOT NULL AND expires_at < $1`

	rows, err := r.db.db(ctx).Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var room model.Room
		err := rows.Scan(
			&room.ID, &room.Name, &room.InviteCode, &room.OrgRef, &room.Status,
			&room.ExpiresAt, &room.CreatedBy, &room.CreatedAt, &room.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (r *RoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Deleting an absent row is a no-op so cascade retries stay idempotent.
	const query = `DELETE FROM rooms WHERE id = $1`
	if _, err := r.db.db(ctx).Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}
