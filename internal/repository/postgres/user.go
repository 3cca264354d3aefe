package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/envpass/envpass-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Upsert(ctx context.Context, user model.User) (model.User, error) {
	// ON CONFLICT keyed by external_id makes concurrent first logins resolve
	// to a single row; profile fields track whatever the provider last sent.
	query := `
		INSERT INTO users (id, external_id, email, display_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id) DO UPDATE
		SET email = EXCLUDED.email,
		    display_name = EXCLUDED.display_name,
		    avatar_url = EXCLUDED.avatar_url,
		    updated_at = NOW()
		RETURNING id, external_id, email, display_name, avatar_url, created_at, updated_at`

	var saved model.User
	err := r.db.db(ctx).QueryRow(ctx, query,
		user.ID, user.ExternalID, user.Email, user.DisplayName, user.AvatarURL,
	).Scan(
		&saved.ID, &saved.ExternalID, &saved.Email, &saved.DisplayName, &saved.AvatarURL,
		&saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "users_email_key") {
			return model.User{}, fmt.Errorf("email %q already registered to another identity: %w", user.Email, model.ErrDuplicateKey)
		}
		return model.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}

	return saved, nil
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (model.User, error) {
	query := `SELECT id, external_id, email, display_name, avatar_url, created_at, updated_at
			  FROM users WHERE external_id = $1`

	var user model.User
	err := r.db.db(ctx).QueryRow(ctx, query, externalID).Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.DisplayName, &user.AvatarURL,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by external id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT id, external_id, email, display_name, avatar_url, created_at, updated_at
			  FROM users WHERE id = $1`

	var user model.User
	err := r.db.db(ctx).QueryRow(ctx, query, id).Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.DisplayName, &user.AvatarURL,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}
