package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/model"
)

var _ model.AuditStore = (*AuditRepository)(nil)

type AuditRepository struct {
	db *Connection
}

func NewAuditRepository(db *Connection) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

func (r *AuditRepository) Append(ctx context.Context, entry model.AuditLogEntry) (model.AuditLogEntry, error) {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return model.AuditLogEntry{}, fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, room_id, secret_id, user_id, action, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, room_id, secret_id, user_id, action, created_at`

	var saved model.AuditLogEntry
	err := r.db.db(ctx).QueryRow(ctx, query,
		entry.ID, entry.RoomID, entry.SecretID, entry.UserID, string(entry.Action), metadata,
	).Scan(
		&saved.ID, &saved.RoomID, &saved.SecretID, &saved.UserID, &saved.Action, &saved.CreatedAt,
	)
	if err != nil {
		return model.AuditLogEntry{}, fmt.Errorf("failed to append audit entry: %w", err)
	}

	saved.Metadata = entry.Metadata
	return saved, nil
}

func (r *AuditRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]model.AuditEntryView, error) {
	// LIMIT NULL means no limit; truncation happens after ordering.
	query := `
		SELECT a.id, a.room_id, a.secret_id, a.user_id, a.action, a.metadata, a.created_at,
		       u.email, u.display_name
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE a.room_id = $1
		ORDER BY a.created_at DESC
		LIMIT NULLIF($2, 0)`

	rows, err := r.db.db(ctx).Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntryView
	for rows.Next() {
		var (
			view        model.AuditEntryView
			metadata    []byte
			email       *string
			displayName *string
		)
		err := rows.Scan(
			&view.ID, &view.RoomID, &view.SecretID, &view.UserID, &view.Action, &metadata, &view.CreatedAt,
			&email, &displayName,
		)
		if err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			view.Metadata = &model.AuditMetadata{}
			if err := json.Unmarshal(metadata, view.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		if email != nil {
			view.Actor = &model.AuditActor{Email: *email}
			if displayName != nil {
				view.Actor.DisplayName = *displayName
			}
		}
		entries = append(entries, view)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *AuditRepository) DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error {
	const query = `DELETE FROM audit_logs WHERE room_id = $1`
	if _, err := r.db.db(ctx).Exec(ctx, query, roomID); err != nil {
		return fmt.Errorf("failed to delete audit entries for room: %w", err)
	}
	return nil
}
