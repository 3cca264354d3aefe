package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/model"
)

// requireMember answers 404 for non-members so outsiders cannot distinguish
// a room they are excluded from and a room that does not exist.
func requireMember(c *gin.Context, memberships MembershipService, userID, roomID uuid.UUID) (model.Role, bool) {
	role, err := memberships.GetRole(c.Request.Context(), userID, roomID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return "", false
		}
		handleError(c, err)
		return "", false
	}
	return role, true
}

func requireOwner(c *gin.Context, memberships MembershipService, userID, roomID uuid.UUID) bool {
	role, ok := requireMember(c, memberships, userID, roomID)
	if !ok {
		return false
	}
	if role != model.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner role required"})
		return false
	}
	return true
}
