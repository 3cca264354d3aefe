package model

import "errors"

var (
	// ErrNotFound means the referenced entity does not exist or is logically deleted.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey means a uniqueness constraint was violated: an invite code
	// collision or an active secret with the same key name in the room.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrDuplicateMembership means the user already belongs to the room.
	ErrDuplicateMembership = errors.New("duplicate membership")
	// ErrExternalDependency means the vault or identity provider failed. State
	// already committed by the core is not rolled back on this error.
	ErrExternalDependency = errors.New("external dependency failure")
)
