package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SecretStore defines persistence operations for secrets. The store holds
// metadata and an opaque vault pointer only, never plaintext.
type SecretStore interface {
	// Create inserts the secret. Returns ErrDuplicateKey when an active secret
	// with the same key name exists in the room.
	Create(ctx context.Context, secret Secret) (Secret, error)
	// GetActiveByID returns the secret, treating soft-deleted rows as absent.
	GetActiveByID(ctx context.Context, id uuid.UUID) (Secret, error)
	// ListActive returns metadata for the room's live secrets. The vault
	// pointer is deliberately excluded from this projection.
	ListActive(ctx context.Context, roomID uuid.UUID) ([]SecretMetadata, error)
	// ListActiveFull returns the room's live secrets including vault pointers.
	// Used by shred and export, which need the pointers.
	ListActiveFull(ctx context.Context, roomID uuid.UUID) ([]Secret, error)
	// Update rewrites the mutable fields of an active secret. Returns
	// ErrDuplicateKey when a rename collides with another active secret and
	// ErrNotFound when the secret is absent or soft-deleted.
	Update(ctx context.Context, secret Secret) (Secret, error)
	// SoftDelete marks the secret deleted. ErrNotFound when already deleted.
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// SoftDeleteAllForRoom marks all live secrets of the room deleted and
	// returns how many were affected.
	SoftDeleteAllForRoom(ctx context.Context, roomID uuid.UUID) (int, error)
	// ListExpired returns live secrets whose own expiry is before now.
	ListExpired(ctx context.Context, now time.Time) ([]Secret, error)
	// Delete removes the secret row. Deleting an absent row is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteAllForRoom removes every secret row of the room, soft-deleted or
	// not. Used only by the room hard-delete cascade.
	DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error
}

// Secret is a named pointer to an externally-encrypted value.
type Secret struct {
	ID            uuid.UUID
	RoomID        uuid.UUID
	KeyName       string
	VaultObjectID string
	Description   string
	Tags          []string
	ExpiresAt     *time.Time
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// SecretMetadata is the listing projection, without the vault pointer.
type SecretMetadata struct {
	ID          uuid.UUID
	KeyName     string
	Description string
	Tags        []string
	ExpiresAt   *time.Time
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// CreateSecretParams carries everything needed to register a secret. The
// value itself has already been handed to the vault by the caller.
type CreateSecretParams struct {
	RoomID        uuid.UUID
	KeyName       string
	VaultObjectID string
	Description   string
	Tags          []string
	ExpiresAt     *time.Time
	CreatedBy     uuid.UUID
}

// UpdateSecretParams is a partial update. Nil pointers leave the field
// untouched; Tags and ExpiresAt replace when ApplyTags/ApplyExpiry are set
// so they can be cleared explicitly.
type UpdateSecretParams struct {
	KeyName       *string
	VaultObjectID *string
	Description   *string
	Tags          []string
	ApplyTags     bool
	ExpiresAt     *time.Time
	ApplyExpiry   bool
}
