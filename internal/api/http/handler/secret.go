package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/envfile"
	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// SecretService defines business operations for secret management.
type SecretService interface {
	Create(ctx context.Context, params model.CreateSecretParams) (model.Secret, error)
	ListActive(ctx context.Context, roomID uuid.UUID) ([]model.SecretMetadata, error)
	RevealReference(ctx context.Context, id uuid.UUID) (model.Secret, error)
	RecordRead(ctx context.Context, secret model.Secret, actingUser uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, params model.UpdateSecretParams, actingUser uuid.UUID) (model.Secret, string, error)
	SoftDelete(ctx context.Context, id, actingUser uuid.UUID) (string, error)
	ExportActive(ctx context.Context, roomID, actingUser uuid.UUID) ([]model.Secret, error)
}

// Secret handles HTTP endpoints for secrets. This is the only layer that
// touches plaintext values: it exchanges them with the vault and passes only
// opaque object IDs down to the service.
type Secret struct {
	secretService  SecretService
	roomService    RoomService
	memberships    MembershipService
	vault          model.Vault
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewSecret creates a new Secret handler.
func NewSecret(
	secretService SecretService,
	roomService RoomService,
	memberships MembershipService,
	vault model.Vault,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Secret {
	return &Secret{
		secretService:  secretService,
		roomService:    roomService,
		memberships:    memberships,
		vault:          vault,
		contextManager: contextManager,
		logger:         logger,
	}
}

type secretResponse struct {
	ID          uuid.UUID  `json:"id"`
	RoomID      uuid.UUID  `json:"room_id"`
	KeyName     string     `json:"key_name"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toSecretResponse(secret model.Secret) secretResponse {
	tags := secret.Tags
	if tags == nil {
		tags = []string{}
	}
	return secretResponse{
		ID:          secret.ID,
		RoomID:      secret.RoomID,
		KeyName:     secret.KeyName,
		Description: secret.Description,
		Tags:        tags,
		ExpiresAt:   secret.ExpiresAt,
		CreatedBy:   secret.CreatedBy,
		CreatedAt:   secret.CreatedAt,
		UpdatedAt:   secret.UpdatedAt,
	}
}

type createSecretRequest struct {
	KeyName     string     `json:"key_name" binding:"required"`
	Value       string     `json:"value" binding:"required"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Create handles POST /rooms/:roomID/secrets.
func (h *Secret) Create(c *gin.Context) {
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

	var req createSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key_name and value are required"})
		return
	}

	room, err := h.roomService.GetActive(c.Request.Context(), roomID)
	if err != nil {
		handleError(c, err)
		return
	}

	vaultObjectID, err := h.vault.CreateObject(c.Request.Context(), room.InviteCode, req.Value)
	if err != nil {
		h.logger.Error("failed to store secret value", "room_id", roomID, "error", err)
		handleError(c, err)
		return
	}

	secret, err := h.secretService.Create(c.Request.Context(), model.CreateSecretParams{
		RoomID:        roomID,
		KeyName:       req.KeyName,
		VaultObjectID: vaultObjectID,
		Description:   req.Description,
		Tags:          req.Tags,
		ExpiresAt:     req.ExpiresAt,
		CreatedBy:     userID,
	})
	if err != nil {
		h.purgeVaultObject(c.Request.Context(), vaultObjectID)
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSecretResponse(secret))
}

type secretMetadataResponse struct {
	ID          uuid.UUID  `json:"id"`
	KeyName     string     `json:"key_name"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// List handles GET /rooms/:roomID/secrets: metadata only, no values and no
// vault pointers.
func (h *Secret) List(c *gin.Context) {
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

	secrets, err := h.secretService.ListActive(c.Request.Context(), roomID)
	if err != nil {
		handleError(c, err)
		return
	}

	resp := make([]secretMetadataResponse, 0, len(secrets))
	for _, s := range secrets {
		tags := s.Tags
		if tags == nil {
			tags = []string{}
		}
		resp = append(resp, secretMetadataResponse{
			ID:          s.ID,
			KeyName:     s.KeyName,
			Description: s.Description,
			Tags:        tags,
			ExpiresAt:   s.ExpiresAt,
			CreatedBy:   s.CreatedBy,
			CreatedAt:   s.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Reveal handles GET /secrets/:secretID/reveal: the only endpoint that
// returns a plaintext value. The read lands in the audit trail.
func (h *Secret) Reveal(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	secretID, ok := parseIDParam(c, "secretID")
	if !ok {
		return
	}

	secret, err := h.secretService.RevealReference(c.Request.Context(), secretID)
	if err != nil {
		handleError(c, err)
		return
	}
	if _, ok := requireMember(c, h.memberships, userID, secret.RoomID); !ok {
		return
	}

	// Shredded rooms make their secrets unreachable even before the sweep.
	room, err := h.roomService.GetActive(c.Request.Context(), secret.RoomID)
	if err != nil {
		handleError(c, err)
		return
	}

	value, err := h.vault.ReadObject(c.Request.Context(), room.InviteCode, secret.VaultObjectID)
	if err != nil {
		h.logger.Error("failed to read secret value", "secret_id", secretID, "error", err)
		handleError(c, err)
		return
	}

	if err := h.secretService.RecordRead(c.Request.Context(), secret, userID); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"key_name": secret.KeyName, "value": value})
}

type updateSecretRequest struct {
	KeyName     *string    `json:"key_name"`
	Value       *string    `json:"value"`
	Description *string    `json:"description"`
	Tags        []string   `json:"tags"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClearExpiry bool       `json:"clear_expiry"`
}

// Update handles PATCH /secrets/:secretID. A new value is sealed into a
// fresh vault object; the superseded object is purged best-effort after the
// transaction commits.
func (h *Secret) Update(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	secretID, ok := parseIDParam(c, "secretID")
	if !ok {
		return
	}

	var req updateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	secret, err := h.secretService.RevealReference(c.Request.Context(), secretID)
	if err != nil {
		handleError(c, err)
		return
	}
	if _, ok := requireMember(c, h.memberships, userID, secret.RoomID); !ok {
		return
	}

	params := model.UpdateSecretParams{
		KeyName:     req.KeyName,
		Description: req.Description,
	}
	if req.Tags != nil {
		params.Tags = req.Tags
		params.ApplyTags = true
	}
	if req.ExpiresAt != nil || req.ClearExpiry {
		params.ExpiresAt = req.ExpiresAt
		params.ApplyExpiry = true
	}

	var rotatedVaultID string
	if req.Value != nil {
		room, err := h.roomService.GetActive(c.Request.Context(), secret.RoomID)
		if err != nil {
			handleError(c, err)
			return
		}
		rotatedVaultID, err = h.vault.CreateObject(c.Request.Context(), room.InviteCode, *req.Value)
		if err != nil {
			handleError(c, err)
			return
		}
		params.VaultObjectID = &rotatedVaultID
	}

	updated, previousVaultID, err := h.secretService.Update(c.Request.Context(), secretID, params, userID)
	if err != nil {
		if rotatedVaultID != "" {
			h.purgeVaultObject(c.Request.Context(), rotatedVaultID)
		}
		handleError(c, err)
		return
	}

	if rotatedVaultID != "" && previousVaultID != "" {
		h.purgeVaultObject(c.Request.Context(), previousVaultID)
	}

	c.JSON(http.StatusOK, toSecretResponse(updated))
}

// Delete handles DELETE /secrets/:secretID: soft delete plus best-effort
// vault purge.
func (h *Secret) Delete(c *gin.Context) {
	userID, ok := extractUserID(c, h.contextManager)
	if !ok {
		return
	}
	secretID, ok := parseIDParam(c, "secretID")
	if !ok {
		return
	}

	secret, err := h.secretService.RevealReference(c.Request.Context(), secretID)
	if err != nil {
		handleError(c, err)
		return
	}
	if _, ok := requireMember(c, h.memberships, userID, secret.RoomID); !ok {
		return
	}

	vaultObjectID, err := h.secretService.SoftDelete(c.Request.Context(), secretID, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	h.purgeVaultObject(c.Request.Context(), vaultObjectID)

	c.Status(http.StatusNoContent)
}

type importSecretsRequest struct {
	Env string `json:"env" binding:"required"`
}

type importSecretsResponse struct {
	Created   []string `json:"created"`
	Conflicts []string `json:"conflicts"`
}

// Import handles POST /rooms/:roomID/secrets/import: a dotenv document in,
// one secret per entry out. Entries whose key already exists in the room are
// reported as conflicts rather than failing the batch.
func (h *Secret) Import(c *gin.Context) {
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

	var req importSecretsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "env is required"})
		return
	}

	entries, err := envfile.Parse(req.Env)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid env document"})
		return
	}

	room, err := h.roomService.GetActive(c.Request.Context(), roomID)
	if err != nil {
		handleError(c, err)
		return
	}

	resp := importSecretsResponse{Created: []string{}, Conflicts: []string{}}
	for _, entry := range entries {
		vaultObjectID, err := h.vault.CreateObject(c.Request.Context(), room.InviteCode, entry.Value)
		if err != nil {
			h.logger.Error("failed to store imported value", "room_id", roomID, "key_name", entry.Key, "error", err)
			handleError(c, err)
			return
		}

		_, err = h.secretService.Create(c.Request.Context(), model.CreateSecretParams{
			RoomID:        roomID,
			KeyName:       entry.Key,
			VaultObjectID: vaultObjectID,
			CreatedBy:     userID,
		})
		if err != nil {
			h.purgeVaultObject(c.Request.Context(), vaultObjectID)
			if errors.Is(err, model.ErrDuplicateKey) {
				resp.Conflicts = append(resp.Conflicts, entry.Key)
				continue
			}
			handleError(c, err)
			return
		}
		resp.Created = append(resp.Created, entry.Key)
	}

	c.JSON(http.StatusOK, resp)
}

// Export handles GET /rooms/:roomID/secrets/export: the room's live secrets
// rendered as a dotenv document. The export lands in the audit trail.
func (h *Secret) Export(c *gin.Context) {
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

	room, err := h.roomService.GetActive(c.Request.Context(), roomID)
	if err != nil {
		handleError(c, err)
		return
	}

	secrets, err := h.secretService.ExportActive(c.Request.Context(), roomID, userID)
	if err != nil {
		handleError(c, err)
		return
	}

	entries := make([]envfile.Entry, 0, len(secrets))
	for _, secret := range secrets {
		value, err := h.vault.ReadObject(c.Request.Context(), room.InviteCode, secret.VaultObjectID)
		if err != nil {
			h.logger.Error("failed to read value for export", "secret_id", secret.ID, "error", err)
			handleError(c, err)
			return
		}
		entries = append(entries, envfile.Entry{Key: secret.KeyName, Value: value})
	}

	doc, err := envfile.Render(entries)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename=".env"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(doc))
}

func (h *Secret) purgeVaultObject(ctx context.Context, id string) {
	if err := h.vault.DeleteObject(ctx, id); err != nil {
		h.logger.Error("failed to purge vault object", "vault_object_id", id, "error", err)
	}
}
