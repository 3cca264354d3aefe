package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/model"
)

// handleError maps domain sentinels to HTTP statuses. Anything unrecognized
// is an internal error and its message is not leaked to the client.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, model.ErrDuplicateMembership):
		c.JSON(http.StatusConflict, gin.H{"error": "already a member of this room"})
	case errors.Is(err, model.ErrDuplicateKey):
		// The repositories phrase duplicate errors for the client, naming
		// the entity and the violated constraint.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrExternalDependency):
		c.JSON(http.StatusBadGateway, gin.H{"error": "vault unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// extractUserID pulls the authenticated user from the request context. The
// authenticate middleware guarantees it is present on routed requests.
func extractUserID(c *gin.Context, contextManager model.ContextManager) (uuid.UUID, bool) {
	userID, ok := contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

// parseIDParam parses a UUID path parameter, answering 400 on garbage.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
