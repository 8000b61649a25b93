package service

import (
	"context"
	"encoding/json"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditService writes the audit trail. Every entry is logged; it is also
// persisted when a repository is configured.
type AuditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

func (s *AuditService) Log(ctx context.Context, entry *domain.AuditLog) error {
	s.log.Info().
		Str("action", string(entry.Action)).
		Str("actor", string(entry.Actor)).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Msg("audit")

	if s.repo == nil {
		return nil
	}
	return s.repo.Create(ctx, entry)
}

// newAuditEntry builds an entry; details is stored as JSON.
func newAuditEntry(actorID *uuid.UUID, actor domain.Actor, action domain.AuditAction, resourceType, resourceID string, details map[string]any) *domain.AuditLog {
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		ActorID:      actorID,
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	return entry
}
