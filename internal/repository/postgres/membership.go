package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/envpass/envpass-server/internal/model"
)

var _ model.MembershipStore = (*MembershipRepository)(nil)

type MembershipRepository struct {
	db *Connection
}

func NewMembershipRepository(db *Connection) *MembershipRepository {
	return &MembershipRepository{
		db: db,
	}
}

func (r *MembershipRepository) Create(ctx context.Context, membership model.Membership) (model.Membership, error) {
	query := `
		INSERT INTO memberships (id, user_id, room_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, room_id, role, created_at`

	var saved model.Membership
	err := r.db.db(ctx).QueryRow(ctx, query,
		membership.ID, membership.UserID, membership.RoomID, string(membership.Role),
	).Scan(
		&saved.ID, &saved.UserID, &saved.RoomID, &saved.Role, &saved.CreatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "memberships_user_room_key") {
			return model.Membership{}, fmt.Errorf("user already a member of this room: %w", model.ErrDuplicateMembership)
		}
		return model.Membership{}, fmt.Errorf("failed to create membership: %w", err)
	}

	return saved, nil
}

func (r *MembershipRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Membership, error) {
	query := `SELECT id, user_id, room_id, role, created_at FROM memberships WHERE id = $1`

	var membership model.Membership
	err := r.db.db(ctx).QueryRow(ctx, query, id).Scan(
		&membership.ID, &membership.UserID, &membership.RoomID, &membership.Role, &membership.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Membership{}, model.ErrNotFound
		}
		return model.Membership{}, fmt.Errorf("failed to get membership by id: %w", err)
	}

	return membership, nil
}

func (r *MembershipRepository) GetByUserAndRoom(ctx context.Context, userID, roomID uuid.UUID) (model.Membership, error) {
	query := `SELECT id, user_id, room_id, role, created_at FROM memberships WHERE user_id = $1 AND room_id = $2`

	var membership model.Membership
	err := r.db.db(ctx).QueryRow(ctx, query, userID, roomID).Scan(
		&membership.ID, &membership.UserID, &membership.RoomID, &membership.Role, &membership.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Membership{}, model.ErrNotFound
		}
		return model.Membership{}, fmt.Errorf("failed to get membership by user and room: %w", err)
	}

	return membership, nil
}

func (r *MembershipRepository) ListMembers(ctx context.Context, roomID uuid.UUID) ([]model.Member, error) {
	// Inner join drops memberships whose user cannot be resolved.
	query := `
		SELECT m.id, m.role, m.created_at,
		       u.id, u.external_id, u.email, u.display_name, u.avatar_url, u.created_at, u.updated_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.created_at ASC`

	rows, err := r.db.db(ctx).Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		err := rows.Scan(
			&m.MembershipID, &m.Role, &m.JoinedAt,
			&m.User.ID, &m.User.ExternalID, &m.User.Email, &m.User.DisplayName,
			&m.User.AvatarURL, &m.User.CreatedAt, &m.User.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

func (r *MembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM memberships WHERE id = $1`
	cmd, err := r.db.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *MembershipRepository) DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error {
	const query = `DELETE FROM memberships WHERE room_id = $1`
	if _, err := r.db.db(ctx).Exec(ctx, query, roomID); err != nil {
		return fmt.Errorf("failed to delete memberships for room: %w", err)
	}
	return nil
}
