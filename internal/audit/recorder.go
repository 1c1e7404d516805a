// Package audit appends immutable audit entries. Every entry must be written
// through the repository of the transaction that performs the mutation it
// documents, so the two commit or roll back together.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Audit action tags.
const (
	ActionTicketCreate  = "ticket.create"
	ActionTicketUpdate  = "ticket.update"
	ActionCommentCreate = "comment.create"
	ActionUserCreate    = "user.create"
	ActionUserUpdate    = "user.update"
	ActionTagCreate     = "tag.create"
)

// Recorder serializes audit payloads and appends them.
type Recorder struct{}

// NewRecorder builds a recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one entry. repo must belong to the caller's transaction.
func (r *Recorder) Record(ctx context.Context, repo repository.AuditLogRepository, actorID, action string, meta any, ticketID *string) (*domain.AuditLogEntry, error) {
	if actorID == "" {
		return nil, fmt.Errorf("audit %s: actor required", action)
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("audit %s: encode meta: %w", action, err)
	}
	entry := &domain.AuditLogEntry{
		Action:   action,
		MetaJSON: payload,
		ActorID:  actorID,
		TicketID: ticketID,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("audit %s: %w", action, err)
	}
	return entry, nil
}

// TicketUpdateMeta wraps a ticket diff in the persisted payload shape.
func TicketUpdateMeta(diff domain.Diff) map[string]any {
	return map[string]any{"changes": diff}
}
