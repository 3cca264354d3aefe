package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// Member handles HTTP endpoints for room membership.
type Member struct {
	membershipService MembershipService
	contextManager    model.ContextManager
	logger            *logger.Logger
}

// NewMember creates a new Member handler.
func NewMember(membershipService MembershipService, contextManager model.ContextManager, logger *logger.Logger) *Member {
	return &Member{
		membershipService: membershipService,
		contextManager:    contextManager,
		logger:            logger,
	}
}

type memberResponse struct {
	MembershipID uuid.UUID  `json:"membership_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	Role         model.Role `json:"role"`
	JoinedAt     time.Time  `json:"joined_at"`
}

// List handles GET /rooms/:roomID/members.
func (h *Member) List(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c, "roomID")
	if !ok {
		return
	}
	if _, ok := requireMember(c, h.membershipService, userID, roomID); !ok {
		return
	}

	members, err := h.membershipService.ListMembers(c.Request.Context(), roomID)
	if err != nil {
		h.logger.Error("failed to list members", "room_id", roomID, "error", err)
		handleError(c, err)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{
			MembershipID: m.MembershipID,
			UserID:       m.User.ID,
			Email:        m.User.Email,
			DisplayName:  m.User.DisplayName,
			AvatarURL:    m.User.AvatarURL,
			Role:         m.Role,
			JoinedAt:     m.JoinedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Remove handles DELETE /memberships/:membershipID. A member may remove
// themselves; removing anyone else requires the owner role in that room.
func (h *Member) Remove(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	membershipID, ok := parseIDParam(c, "membershipID")
	if !ok {
		return
	}

	membership, err := h.membershipService.GetByID(c.Request.Context(), membershipID)
	if err != nil {
		handleError(c, err)
		return
	}

	if membership.UserID != userID {
		if !requireOwner(c, h.membershipService, userID, membership.RoomID) {
			return
		}
	}

	if err := h.membershipService.RemoveMember(c.Request.Context(), membershipID, userID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
