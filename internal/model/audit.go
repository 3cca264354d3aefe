package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditAction is the closed set of auditable actions.
type AuditAction string

const (
	AuditSecretCreated       AuditAction = "SECRET_CREATED"
	AuditSecretRead          AuditAction = "SECRET_READ"
	AuditSecretUpdated       AuditAction = "SECRET_UPDATED"
	AuditSecretDeleted       AuditAction = "SECRET_DELETED"
	AuditSecretExported      AuditAction = "SECRET_EXPORTED"
	AuditMemberJoined        AuditAction = "MEMBER_JOINED"
	AuditMemberRemoved       AuditAction = "MEMBER_REMOVED"
	AuditRoomCreated         AuditAction = "ROOM_CREATED"
	AuditRoomSettingsUpdated AuditAction = "ROOM_SETTINGS_UPDATED"
	AuditRoomShredded        AuditAction = "ROOM_SHREDDED"
)

// Valid reports whether the action belongs to the closed enumeration.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditSecretCreated, AuditSecretRead, AuditSecretUpdated,
		AuditSecretDeleted, AuditSecretExported, AuditMemberJoined,
		AuditMemberRemoved, AuditRoomCreated, AuditRoomSettingsUpdated,
		AuditRoomShredded:
		return true
	}
	return false
}

// AuditMetadata is the per-action metadata shape. A closed struct rather than
// an untyped bag so the trail stays machine-readable.
type AuditMetadata struct {
	KeyName     string `json:"key_name,omitempty"`
	OldKeyName  string `json:"old_key_name,omitempty"`
	SecretCount int    `json:"secret_count,omitempty"`
	RoomName    string `json:"room_name,omitempty"`
}

// AuditStore defines persistence operations for the audit trail.
type AuditStore interface {
	// Append inserts an entry. Entries are immutable once written.
	Append(ctx context.Context, entry AuditLogEntry) (AuditLogEntry, error)
	// ListByRoom returns entries newest first, truncated to limit when
	// limit > 0, each joined with the acting user's projection. A missing user
	// resolves to a nil actor, not an error.
	ListByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]AuditEntryView, error)
	// DeleteAllForRoom removes every entry of the room. Used only by the room
	// hard-delete cascade.
	DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error
}

// AuditLogEntry records one mutating action.
type AuditLogEntry struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	SecretID  *uuid.UUID
	UserID    uuid.UUID
	Action    AuditAction
	Metadata  *AuditMetadata
	CreatedAt time.Time
}

// AuditActor is the display projection of the acting user.
type AuditActor struct {
	Email       string
	DisplayName string
}

// AuditEntryView is an entry joined with its actor for display.
type AuditEntryView struct {
	AuditLogEntry
	Actor *AuditActor
}
