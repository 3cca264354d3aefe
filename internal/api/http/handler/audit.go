package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// AuditService exposes the room audit trail.
type AuditService interface {
	List(ctx context.Context, roomID uuid.UUID, limit int) ([]model.AuditEntryView, error)
}

// Audit handles HTTP endpoints for the audit trail.
type Audit struct {
	auditService   AuditService
	memberships    MembershipService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAudit creates a new Audit handler.
func NewAudit(auditService AuditService, memberships MembershipService, contextManager model.ContextManager, logger *logger.Logger) *Audit {
	return &Audit{
		auditService:   auditService,
		memberships:    memberships,
		contextManager: contextManager,
		logger:         logger,
	}
}

type auditActorResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

type auditEntryResponse struct {
	ID        uuid.UUID            `json:"id"`
	SecretID  *uuid.UUID           `json:"secret_id,omitempty"`
	Action    model.AuditAction    `json:"action"`
	Metadata  *model.AuditMetadata `json:"metadata,omitempty"`
	Actor     *auditActorResponse  `json:"actor,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// List handles GET /rooms/:roomID/audit. Entries come back newest first;
// the optional limit query parameter truncates the page.
func (h *Audit) List(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c, "roomID")
	if !ok {
		return
	}
	if _, ok := requireMember(c, h.memberships, userID, roomID); !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.auditService.List(c.Request.Context(), roomID, limit)
	if err != nil {
		h.logger.Error("failed to list audit entries", "room_id", roomID, "error", err)
		handleError(c, err)
		return
	}

	resp := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		item := auditEntryResponse{
			ID:        entry.ID,
			SecretID:  entry.SecretID,
			Action:    entry.Action,
			Metadata:  entry.Metadata,
			CreatedAt: entry.CreatedAt,
		}
		if entry.Actor != nil {
			item.Actor = &auditActorResponse{
				Email:       entry.Actor.Email,
				DisplayName: entry.Actor.DisplayName,
			}
		}
		resp = append(resp, item)
	}
	c.JSON(http.StatusOK, resp)
}
