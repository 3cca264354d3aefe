package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// Identity mirrors identity-provider subjects into local user rows.
type Identity struct {
	userStore model.UserStore
	logger    *logger.Logger
}

func NewIdentity(userStore model.UserStore, logger *logger.Logger) *Identity {
	return &Identity{
		userStore: userStore,
		logger:    logger,
	}
}

// GetOrCreate resolves verified provider claims to a local user, creating the
// row on first sight and refreshing profile fields on every call.
func (s *Identity) GetOrCreate(ctx context.Context, claims model.IdentityClaims) (model.User, error) {
	if claims.ExternalID == "" {
		return model.User{}, fmt.Errorf("identity claims missing external id")
	}
	if claims.Email == "" {
		return model.User{}, fmt.Errorf("identity claims missing email")
	}

	user, err := s.userStore.Upsert(ctx, model.User{
		ID:          uuid.New(),
		ExternalID:  claims.ExternalID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		AvatarURL:   claims.AvatarURL,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

func (s *Identity) GetByExternalID(ctx context.Context, externalID string) (model.User, error) {
	user, err := s.userStore.GetByExternalID(ctx, externalID)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by external id: %w", err)
	}
	return user, nil
}

func (s *Identity) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
