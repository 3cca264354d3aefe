package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is the member's role within a room.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleMember Role = "MEMBER"
)

// MembershipStore defines persistence operations for room memberships.
type MembershipStore interface {
	// Create inserts the membership. Returns ErrDuplicateMembership when a
	// membership for (user, room) already exists.
	Create(ctx context.Context, membership Membership) (Membership, error)
	GetByID(ctx context.Context, id uuid.UUID) (Membership, error)
	GetByUserAndRoom(ctx context.Context, userID, roomID uuid.UUID) (Membership, error)
	// ListMembers returns the room's members joined with user records.
	// Memberships whose user cannot be resolved are filtered out.
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]Member, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteAllForRoom removes every membership of the room. Used only by the
	// room hard-delete cascade.
	DeleteAllForRoom(ctx context.Context, roomID uuid.UUID) error
}

// Membership links one user to one room with a role. Exactly one membership
// exists per (user, room) pair.
type Membership struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	RoomID    uuid.UUID
	Role      Role
	CreatedAt time.Time
}

// Member is the listing projection: the user record plus their role.
type Member struct {
	User         User
	Role         Role
	MembershipID uuid.UUID
	JoinedAt     time.Time
}
