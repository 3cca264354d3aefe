package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
)

// Audit exposes the room audit trail.
type Audit struct {
	auditStore model.AuditStore
	logger     *logger.Logger
}

func NewAudit(auditStore model.AuditStore, logger *logger.Logger) *Audit {
	return &Audit{
		auditStore: auditStore,
		logger:     logger,
	}
}

// Append writes an entry after validating the action against the closed
// enumeration. Most entries are written by the lifecycle services inside
// their transactions; this path serves API-layer actions like reads.
func (s *Audit) Append(ctx context.Context, entry model.AuditLogEntry) (model.AuditLogEntry, error) {
	if !entry.Action.Valid() {
		return model.AuditLogEntry{}, fmt.Errorf("invalid audit action %q", entry.Action)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return s.auditStore.Append(ctx, entry)
}

// List returns the room's audit entries newest first. limit of zero means
// no truncation.
func (s *Audit) List(ctx context.Context, roomID uuid.UUID, limit int) ([]model.AuditEntryView, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit must not be negative")
	}
	return s.auditStore.ListByRoom(ctx, roomID, limit)
}
