package model

import "context"

// Vault is the external secret-encryption collaborator. The core exchanges
// opaque object IDs with it and never sees how values are stored. The
// passphrase parameter feeds key derivation in the fallback implementation;
// a hosted vault ignores it.
type Vault interface {
	// CreateObject encrypts and stores value, returning an opaque object ID.
	CreateObject(ctx context.Context, passphrase, value string) (string, error)
	// ReadObject exchanges an object ID for the plaintext value.
	ReadObject(ctx context.Context, passphrase, id string) (string, error)
	// DeleteObject removes the stored object. Deleting an unknown ID is not
	// an error; callers retry cleanup best-effort.
	DeleteObject(ctx context.Context, id string) error
}
