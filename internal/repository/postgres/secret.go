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

var _ model.SecretStore = (*SecretRepository)(nil)

type SecretRepository struct {
	db *Connection
}

func NewSecretRepository(db *Connection) *SecretRepository {
	return &SecretRepository{
		db: db,
	}
}

const secretColumns = `id, room_id, key_name, vault_object_id, description, tags, expires_at, created_by, created_at, updated_at, deleted_at`

func scanSecret(row pgx.Row) (model.Secret, error) {
	var s model.Secret
	err := row.Scan(
		&s.ID, &s.RoomID, &s.KeyName, &s.VaultObjectID, &s.Description, &s.Tags,
		&s.ExpiresAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	return s, err
}

func (r *SecretRepository) Create(ctx context.Context, secret model.Secret) (model.Secret, error) {
	query := `
		INSERT INTO secrets (id, room_id, key_name, vault_object_id, description, tags, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + secretColumns

	tags := secret.Tags
	if tags == nil {
		tags = []string{}
	}

	saved, err := scanSecret(r.db.db(ctx).QueryRow(ctx, query,
		secret.ID, secret.RoomID, secret.KeyName, secret.VaultObjectID,
		secret.Description, tags, secret.ExpiresAt, secret.CreatedBy,
	))
	if err != nil {
		if uniqueViolation(err, "secrets_room_key_active_key") {
			return model.Secret{}, fmt.Errorf("key %q already exists in this room: %w", secret.KeyName, model.ErrDuplicateKey)
		}
		return model.Secret{}, fmt.Errorf("failed to create secret: %w", err)
	}

	return saved, nil
}

func (r *SecretRepository) GetActiveByID(ctx context.Context, id uuid.UUID) (model.Secret, error) {
	query := `SELECT ` + secretColumns + ` FROM secrets WHERE id = $1 AND deleted_at IS NULL`

	secret, err := scanSecret(r.db.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Secret{}, model.ErrNotFound
		}
		return model.Secret{}, fmt.Errorf("failed to get secret by id: %w", err)
	}

	return secret, nil
}

func (r *SecretRepository) ListActive(ctx context.Context, roomID uuid.UUID) ([]model.SecretMetadata, error) {
	// The vault pointer is excluded from the projection on purpose.
	query := `
		SELECT id, key_name, description, tags, expires_at, created_by, created_at
		FROM secrets
		WHERE room_id = $1 AND deleted_at IS NULL
		ORDER BY key_name ASC`

	rows, err := r.db.db(ctx).Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	defer rows.Close()

	var secrets []model.SecretMetadata
	for rows.Next() {
		var s model.SecretMetadata
		err := rows.Scan(&s.ID, &s.KeyName, &s.Description, &s.Tags, &s.ExpiresAt, &s.CreatedBy, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return secrets, nil
}

func (r *SecretRepository) ListActiveFull(ctx context.Context, roomID uuid.UUID) ([]model.Secret, error) {
	query := `SELECT ` + secretColumns + ` FROM secrets WHERE room_id = $1 AND deleted_at IS NULL ORDER BY key_name ASC`

	rows, err := r.db.db(ctx).Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	defer rows.Close()

	return collectSecrets(rows)
}

func (r *SecretRepository) Update(ctx context.Context, secret model.Secret) (model.Secret, error) {
	query := `
		UPDATE secrets
		SET key_name = $2, vault_object_id = $3, description = $4, tags = $5, expires_at = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + secretColumns

	tags := secret.Tags
	if tags == nil {
		tags = []string{}
	}

	saved, err := scanSecret(r.db.db(ctx).QueryRow(ctx, query,
		secret.ID, secret.KeyName, secret.VaultObjectID, secret.Description, tags, secret.ExpiresAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Secret{}, model.ErrNotFound
		}
		if uniqueViolation(err, "secrets_room_key_active_key") {
			return model.Secret{}, fmt.Errorf("key %q already exists in this room: %w", secret.KeyName, model.ErrDuplicateKey)
		}
		return model.Secret{}, fmt.Errorf("failed to update secret: %w", err)
	}

	return saved, nil
}

func (r *SecretRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE secrets SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	cmd, err := r.db.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete secret: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *SecretRepository) SoftDeleteAllForRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	const query = `UPDATE secrets SET deleted_at = NOW(), updated_at = NOW() WHERE room_id = $1 AND deleted_at IS NULL`
	cmd, err := r.db.db(ctx).Exec(ctx, query, roomID)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete secrets for room: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

func (r *SecretRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Secret, error) {
	query := `SELECT ` + secretColumns + ` FROM secrets WHERE deleted_at IS NULL AND expires_at IS NOT NULL AND expires_at < $1`

	rows, err := r.db.db(ctx).Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired secrets: %w", err)
	}
	defer rows.Close()

	return collectSecrets(rows)
}

func (r *SecretRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM secrets WHERE id = $1`
	if _, err := r.db.db(ctx).Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}

func (r *SecretRepository) DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error {
	const query = `DELETE FROM secrets WHERE room_id = $1`
	if _, err := r.db.db(ctx).Exec(ctx, query, roomID); err != nil {
		return fmt.Errorf("failed to delete secrets for room: %w", err)
	}
	return nil
}

func collectSecrets(rows pgx.Rows) ([]model.Secret, error) {
	var secrets []model.Secret
	for rows.Next() {
		var s model.Secret
		err := rows.Scan(
			&s.ID, &s.RoomID, &s.KeyName, &s.VaultObjectID, &s.Description, &s.Tags,
			&s.ExpiresAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
		)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return secrets, nil
}
