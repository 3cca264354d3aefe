package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the room lifecycle state. ACTIVE rooms serve requests;
// DELETED rooms are shredded and behave as absent everywhere except the
// physical cleanup sweep.
type RoomStatus string

const (
	RoomStatusActive  RoomStatus = "ACTIVE"
	RoomStatusDeleted RoomStatus = "DELETED"
)

// RoomStore defines persistence operations for rooms.
type RoomStore interface {
	// Create inserts the room. Returns ErrDuplicateKey when the invite code
	// collides with another active room.
	Create(ctx context.Context, room Room) (Room, error)
	// GetActive returns the room, treating DELETED rooms as absent.
	GetActive(ctx context.Context, id uuid.UUID) (Room, error)
	// GetByInviteCode resolves an active room by its stored (uppercase) code.
	GetByInviteCode(ctx context.Context, code string) (Room, error)
	// ListByUser returns active, unexpired rooms the user belongs to along
	// with the user's role and member/secret counts.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]RoomSummary, error)
	// UpdateSettings renames the room and/or moves its expiry.
	UpdateSettings(ctx context.Context, id uuid.UUID, name string, expiresAt *time.Time) (Room, error)
	// MarkDeleted flips an active room to DELETED. ErrNotFound when the room
	// is absent or already DELETED.
	MarkDeleted(ctx context.Context, id uuid.UUID) error
	// ListExpired returns rooms whose expiry timestamp is before now,
	// regardless of status.
	ListExpired(ctx context.Context, now time.Time) ([]Room, error)
	// Delete removes the room row. Deleting an absent row is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Room is a time-boxed collaboration scope containing secrets and members.
type Room struct {
	ID         uuid.UUID
	Name       string
	InviteCode string
	OrgRef     string
	Status     RoomStatus
	ExpiresAt  *time.Time
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoomSummary is the dashboard projection of a room for one member.
type RoomSummary struct {
	Room
	Role        Role
	MemberCount int
	SecretCount int
}
