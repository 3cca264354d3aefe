package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// Secret manages secret metadata and vault pointers. Plaintext values never
// pass through this service; the API layer exchanges them with the vault and
// hands only the resulting object IDs down here.
type Secret struct {
	secretStore model.SecretStore
	roomStore   model.RoomStore
	auditStore  model.AuditStore
	tx          TxRunner
	logger      *logger.Logger
}

func NewSecret(
	secretStore model.SecretStore,
	roomStore model.RoomStore,
	auditStore model.AuditStore,
	tx TxRunner,
	logger *logger.Logger,
) *Secret {
	return &Secret{
		secretStore: secretStore,
		roomStore:   roomStore,
		auditStore:  auditStore,
		tx:          tx,
		logger:      logger,
	}
}

// Create registers a secret in an active room and records SECRET_CREATED.
// Returns ErrDuplicateKey when the key name is already live in the room.
func (s *Secret) Create(ctx context.Context, params model.CreateSecretParams) (model.Secret, error) {
	if strings.TrimSpace(params.KeyName) == "" {
		return model.Secret{}, fmt.Errorf("key name is required")
	}
	if params.VaultObjectID == "" {
		return model.Secret{}, fmt.Errorf("vault object id is required")
	}

	var secret model.Secret
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.roomStore.GetActive(ctx, params.RoomID); err != nil {
			return err
		}

		saved, err := s.secretStore.Create(ctx, model.Secret{
			ID:            uuid.New(),
			RoomID:        params.RoomID,
			KeyName:       params.KeyName,
			VaultObjectID: params.VaultObjectID,
			Description:   params.Description,
			Tags:          params.Tags,
			ExpiresAt:     params.ExpiresAt,
			CreatedBy:     params.CreatedBy,
		})
		if err != nil {
			return err
		}

		_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
			ID:       uuid.New(),
			RoomID:   saved.RoomID,
			SecretID: &saved.ID,
			UserID:   params.CreatedBy,
			Action:   model.AuditSecretCreated,
			Metadata: &model.AuditMetadata{KeyName: saved.KeyName},
		})
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		secret = saved
		return nil
	})
	if err != nil {
		return model.Secret{}, err
	}
	return secret, nil
}

// ListActive returns metadata for the room's live secrets, vault pointers
// excluded.
func (s *Secret) ListActive(ctx context.Context, roomID uuid.UUID) ([]model.SecretMetadata, error) {
	return s.secretStore.ListActive(ctx, roomID)
}

// RevealReference returns the full secret including its vault pointer. The
// caller is responsible for the membership check and the SECRET_READ entry
// once the value has actually been served.
func (s *Secret) RevealReference(ctx context.Context, id uuid.UUID) (model.Secret, error) {
	return s.secretStore.GetActiveByID(ctx, id)
}

// RecordRead appends the SECRET_READ entry after a value was served.
func (s *Secret) RecordRead(ctx context.Context, secret model.Secret, actingUser uuid.UUID) error {
	_, err := s.auditStore.Append(ctx, model.AuditLogEntry{
		ID:       uuid.New(),
		RoomID:   secret.RoomID,
		SecretID: &secret.ID,
		UserID:   actingUser,
		Action:   model.AuditSecretRead,
		Metadata: &model.AuditMetadata{KeyName: secret.KeyName},
	})
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Update applies a partial update to an active secret and records
// SECRET_UPDATED, with the previous key name in the metadata on a rename.
// It returns the updated secret and the vault pointer the secret held
// before the update so a rotated value's old object can be purged.
func (s *Secret) Update(ctx context.Context, id uuid.UUID, params model.UpdateSecretParams, actingUser uuid.UUID) (model.Secret, string, error) {
	var (
		updated       model.Secret
		previousVault string
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.secretStore.GetActiveByID(ctx, id)
		if err != nil {
			return err
		}
		previousVault = current.VaultObjectID

		next := current
		metadata := model.AuditMetadata{KeyName: current.KeyName}
		if params.KeyName != nil && *params.KeyName != current.KeyName {
			if strings.TrimSpace(*params.KeyName) == "" {
				return fmt.Errorf("key name is required")
			}
			next.KeyName = *params.KeyName
			metadata.KeyName = next.KeyName
			metadata.OldKeyName = current.KeyName
		}
		if params.VaultObjectID != nil {
			next.VaultObjectID = *params.VaultObjectID
		}
		if params.Description != nil {
			next.Description = *params.Description
		}
		if params.ApplyTags {
			next.Tags = params.Tags
		}
		if params.ApplyExpiry {
			next.ExpiresAt = params.ExpiresAt
		}

		updated, err = s.secretStore.Update(ctx, next)
		if err != nil {
			return err
		}

		_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
			ID:       uuid.New(),
			RoomID:   updated.RoomID,
			SecretID: &updated.ID,
			UserID:   actingUser,
			Action:   model.AuditSecretUpdated,
			Metadata: &metadata,
		})
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Secret{}, "", err
	}
	return updated, previousVault, nil
}

// SoftDelete marks the secret deleted, records SECRET_DELETED and returns
// the vault pointer so the ciphertext can be purged best-effort. A second
// delete of the same secret returns ErrNotFound.
func (s *Secret) SoftDelete(ctx context.Context, id, actingUser uuid.UUID) (string, error) {
	var vaultObjectID string
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.secretStore.GetActiveByID(ctx, id)
		if err != nil {
			return err
		}

		if err := s.secretStore.SoftDelete(ctx, current.ID); err != nil {
			return err
		}

		_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
			ID:       uuid.New(),
			RoomID:   current.RoomID,
			SecretID: &current.ID,
			UserID:   actingUser,
			Action:   model.AuditSecretDeleted,
			Metadata: &model.AuditMetadata{KeyName: current.KeyName},
		})
		if err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		vaultObjectID = current.VaultObjectID
		return nil
	})
	if err != nil {
		return "", err
	}
	return vaultObjectID, nil
}

// ExportActive returns the room's live secrets with vault pointers and
// records a single SECRET_EXPORTED entry covering the batch.
func (s *Secret) ExportActive(ctx context.Context, roomID, actingUser uuid.UUID) ([]model.Secret, error) {
	if _, err := s.roomStore.GetActive(ctx, roomID); err != nil {
		return nil, err
	}

	secrets, err := s.secretStore.ListActiveFull(ctx, roomID)
	if err != nil {
		return nil, err
	}

	_, err = s.auditStore.Append(ctx, model.AuditLogEntry{
		ID:       uuid.New(),
		RoomID:   roomID,
		UserID:   actingUser,
		Action:   model.AuditSecretExported,
		Metadata: &model.AuditMetadata{SecretCount: len(secrets)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}

	return secrets, nil
}
