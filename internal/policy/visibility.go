package policy

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CanRead reports whether actor may see ticket. It gates ticket reads and
// updates, comment reads and writes, and the audit trail.
func CanRead(actor domain.Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleUser:
		return ticket.CreatedByID == actor.ID
	case domain.RoleAgent:
		return ticket.IsAssignedTo(actor.ID)
	}
	return false
}

// ListScope narrows a listing to what actor may see. USER is pinned to its own
// tickets and AGENT to its assignments, discarding any owner/assignee filter
// in the request. ADMIN keeps the requested filters.
func ListScope(actor domain.Actor, filter repository.TicketFilter) (repository.TicketFilter, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return filter, nil
	case domain.RoleUser:
		id := actor.ID
		filter.CreatedByID = &id
		filter.AssignedToID = nil
		return filter, nil
	case domain.RoleAgent:
		id := actor.ID
		filter.AssignedToID = &id
		filter.CreatedByID = nil
		return filter, nil
	}
	return repository.TicketFilter{}, apperrors.NewForbidden("unknown role")
}
