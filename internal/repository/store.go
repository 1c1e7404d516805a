package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Store groups the repositories the service layer works with. WithinTx runs
// fn against a Store whose repositories share one transaction; the work is
// committed when fn returns nil and rolled back otherwise. Calling WithinTx on
// a transactional Store joins the outer transaction.
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	Tickets() TicketRepository
	Tags() TagRepository
	Comments() CommentRepository
	AuditLogs() AuditLogRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role  *domain.Role
	Query string
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

// SessionRepository persists login sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// TicketSortField whitelists sortable ticket columns.
type TicketSortField string

const (
	SortByCreatedAt TicketSortField = "createdAt"
	SortByUpdatedAt TicketSortField = "updatedAt"
)

// TicketFilter captures list parameters. Role scoping is applied by the
// caller before the filter reaches the repository.
type TicketFilter struct {
	CreatedByID  *string
	AssignedToID *string
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	Query        string
	Tag          string
	SortBy       TicketSortField
	SortAsc      bool
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence. Reads return tags sorted
// by name together with the creator/assignee projections and comment count.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate behaves like GetByID and additionally locks the row
	// until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	// Update writes the scalar fields set in patch and bumps updated_at.
	// Tags are handled by ReplaceTags.
	Update(ctx context.Context, id string, patch domain.TicketPatch) error
	ReplaceTags(ctx context.Context, ticketID string, tagIDs []string) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
}

// TagRepository manages the global tag namespace.
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	GetOrCreate(ctx context.Context, name string) (*domain.Tag, error)
	List(ctx context.Context) ([]domain.Tag, error)
}

// CommentRepository manages ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

// AuditLogRepository stores audit entries. Entries are never updated or
// deleted.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	// ListByTicket returns the ticket's entries, newest first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error)
}

// NormalizePage clamps list paging to sane bounds.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
