package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// IdentityService resolves local users.
type IdentityService interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// User handles HTTP endpoints for the authenticated user.
type User struct {
	identityService IdentityService
	contextManager  model.ContextManager
	logger          *logger.Logger
}

// NewUser creates a new User handler.
func NewUser(identityService IdentityService, contextManager model.ContextManager, logger *logger.Logger) *User {
	return &User{
		identityService: identityService,
		contextManager:  contextManager,
		logger:          logger,
	}
}

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Me handles GET /me.
func (h *User) Me(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}

	user, err := h.identityService.GetByID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		CreatedAt:   user.CreatedAt,
	})
}
