package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	// Upsert creates the user keyed by external ID or returns the existing row.
	// Concurrent calls with the same external ID must resolve to one row.
	Upsert(ctx context.Context, user User) (User, error)
	GetByExternalID(ctx context.Context, externalID string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

// IdentityClaims is what the identity provider asserts about a subject in a
// verified session token.
type IdentityClaims struct {
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
}

// User mirrors an identity-provider subject. The core never authenticates
// users itself, it only records what the provider reports.
type User struct {
	ID          uuid.UUID
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
