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

// RoomService defines business operations for room management.
type RoomService interface {
	Create(ctx context.Context, name string, createdBy uuid.UUID, orgRef string) (model.Room, error)
	GetActive(ctx context.Context, id uuid.UUID) (model.Room, error)
	GetByInviteCode(ctx context.Context, code string) (model.Room, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.RoomSummary, error)
	UpdateSettings(ctx context.Context, roomID, actingUser uuid.UUID, name *string, expiresAt *time.Time) (model.Room, error)
	Shred(ctx context.Context, roomID, actingUser uuid.UUID) ([]string, error)
	HardDelete(ctx context.Context, roomID uuid.UUID) error
}

// MembershipService defines business operations for room membership.
type MembershipService interface {
	AddMember(ctx context.Context, userID, roomID uuid.UUID, role model.Role) (model.Membership, error)
	RemoveMember(ctx context.Context, membershipID, actingUser uuid.UUID) error
	GetByID(ctx context.Context, membershipID uuid.UUID) (model.Membership, error)
	GetRole(ctx context.Context, userID, roomID uuid.UUID) (model.Role, error)
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]model.Member, error)
}

// Room handles HTTP endpoints for the room lifecycle.
type Room struct {
	roomService       RoomService
	membershipService MembershipService
	vault             model.Vault
	contextManager    model.ContextManager
	logger            *logger.Logger
}

// NewRoom creates a new Room handler.
func NewRoom(roomService RoomService, membershipService MembershipService, vault model.Vault, contextManager model.ContextManager, logger *logger.Logger) *Room {
	return &Room{
		roomService:       roomService,
		membershipService: membershipService,
		vault:             vault,
		contextManager:    contextManager,
		logger:            logger,
	}
}

type roomResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	InviteCode string     `json:"invite_code"`
	OrgRef     string     `json:"org_ref,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedBy  uuid.UUID  `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

type roomSummaryResponse struct {
	roomResponse
	Role        model.Role `json:"role"`
	MemberCount int        `json:"member_count"`
	SecretCount int        `json:"secret_count"`
}

func toRoomResponse(room model.Room) roomResponse {
	return roomResponse{
		ID:         room.ID,
		Name:       room.Name,
		InviteCode: room.InviteCode,
		OrgRef:     room.OrgRef,
		ExpiresAt:  room.ExpiresAt,
		CreatedBy:  room.CreatedBy,
		CreatedAt:  room.CreatedAt,
	}
}

type createRoomRequest struct {
	Name   string `json:"name" binding:"required"`
	OrgRef string `json:"org_ref"`
}

// Create handles POST /rooms.
func (h *Room) Create(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), req.Name, userID, req.OrgRef)
	if err != nil {
		h.logger.Error("failed to create room", "user_id", userID, "error", err)
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRoomResponse(room))
}

// List handles GET /rooms: the caller's active rooms with counts.
func (h *Room) List(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}

	summaries, err := h.roomService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list rooms", "user_id", userID, "error", err)
		handleError(c, err)
		return
	}

	resp := make([]roomSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, roomSummaryResponse{
			roomResponse: toRoomResponse(s.Room),
			Role:         s.Role,
			MemberCount:  s.MemberCount,
			SecretCount:  s.SecretCount,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /rooms/:roomID.
func (h *Room) Get(c *gin.Context) {
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

	room, err := h.roomService.GetActive(c.Request.Context(), roomID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomResponse(room))
}

type joinRoomRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

// Join handles POST /rooms/join: invite-code redemption.
func (h *Room) Join(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}

	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invite_code is required"})
		return
	}

	room, err := h.roomService.GetByInviteCode(c.Request.Context(), req.InviteCode)
	if err != nil {
		handleError(c, err)
		return
	}

	if _, err := h.membershipService.AddMember(c.Request.Context(), userID, room.ID, model.RoleMember); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomResponse(room))
}

type updateRoomRequest struct {
	Name      *string    `json:"name"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Update handles PATCH /rooms/:roomID. Owner only.
func (h *Room) Update(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c, "roomID")
	if !ok {
		return
	}
	if !requireOwner(c, h.membershipService, userID, roomID) {
		return
	}

	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	room, err := h.roomService.UpdateSettings(c.Request.Context(), roomID, userID, req.Name, req.ExpiresAt)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomResponse(room))
}

// Shred handles POST /rooms/:roomID/shred. Owner only. The database rows are
// retired transactionally; vault ciphertext purging is best-effort and never
// fails the request.
func (h *Room) Shred(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c, "roomID")
	if !ok {
		return
	}
	if !requireOwner(c, h.membershipService, userID, roomID) {
		return
	}

	vaultObjectIDs, err := h.roomService.Shred(c.Request.Context(), roomID, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	for _, id := range vaultObjectIDs {
		if err := h.vault.DeleteObject(c.Request.Context(), id); err != nil {
			h.logger.Error("failed to purge vault object after shred", "vault_object_id", id, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"shredded_secrets": len(vaultObjectIDs)})
}

// Delete handles DELETE /rooms/:roomID: the physical cascade after a shred.
// Owner only.
func (h *Room) Delete(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c, "roomID")
	if !ok {
		return
	}
	if !requireOwner(c, h.membershipService, userID, roomID) {
		return
	}

	if err := h.roomService.HardDelete(c.Request.Context(), roomID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
