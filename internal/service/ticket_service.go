package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket workflows. Every mutation runs with its
// audit entry in a single transaction; events go out after commit.
type TicketService struct {
	store    repository.Store
	recorder *audit.Recorder
	events   eventPublisher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Recorder   *audit.Recorder
	Dispatcher events.Dispatcher
	Clock      clock.Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Tags        []string
}

// TicketListQuery describes listing parameters. CreatedByID and AssignedToID
// only take effect for admins.
type TicketListQuery struct {
	Page         int
	PerPage      int
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	Search       string
	Tag          string
	SortBy       repository.TicketSortField
	SortAsc      bool
	CreatedByID  *string
	AssignedToID *string
}

// TicketPage is one page of a listing.
type TicketPage struct {
	Items   []domain.Ticket
	Page    int
	PerPage int
	Total   int
}

// UpdateResult reports whether an update changed anything. Ticket is only set
// when Changed is true.
type UpdateResult struct {
	Changed bool
	Ticket  *domain.Ticket
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	if deps.Recorder == nil {
		deps.Recorder = audit.NewRecorder()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &TicketService{
		store:    deps.Store,
		recorder: deps.Recorder,
		events:   eventPublisher{dispatcher: deps.Dispatcher, clock: deps.Clock},
	}
}

// CreateTicket opens a ticket owned by actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (ticket *domain.Ticket, err error) {
	ctx, span := startSpan(ctx, "TicketService.CreateTicket", actor)
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority"})
	}
	tags := policy.NormalizeTags(input.Tags)

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		created := &domain.Ticket{
			Title:       input.Title,
			Description: input.Description,
			Status:      domain.TicketStatusOpen,
			Priority:    priority,
			CreatedByID: actor.ID,
		}
		if err := tx.Tickets().Create(ctx, created); err != nil {
			return err
		}
		if err := attachTags(ctx, tx, created.ID, tags); err != nil {
			return err
		}
		meta := map[string]any{"title": created.Title, "priority": created.Priority, "tags": tags}
		if _, err := s.recorder.Record(ctx, tx.AuditLogs(), actor.ID, audit.ActionTicketCreate, meta, &created.ID); err != nil {
			return err
		}
		ticket, err = tx.Tickets().GetByID(ctx, created.ID)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFrom(actor),
		Payload:  events.TicketCreatedPayload{Title: ticket.Title, Priority: ticket.Priority, Tags: ticket.Tags},
	})
	return ticket, nil
}

// ListTickets returns the page of tickets visible to actor.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, query TicketListQuery) (page *TicketPage, err error) {
	ctx, span := startSpan(ctx, "TicketService.ListTickets", actor)
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	pageNo := query.Page
	if pageNo < 1 {
		pageNo = 1
	}
	perPage, _ := repository.NormalizePage(query.PerPage, 0)

	filter, err := policy.ListScope(actor, repository.TicketFilter{
		CreatedByID:  query.CreatedByID,
		AssignedToID: query.AssignedToID,
		Status:       query.Status,
		Priority:     query.Priority,
		Query:        strings.TrimSpace(query.Search),
		Tag:          strings.TrimSpace(query.Tag),
		SortBy:       query.SortBy,
		SortAsc:      query.SortAsc,
		Limit:        perPage,
		Offset:       (pageNo - 1) * perPage,
	})
	if err != nil {
		return nil, err
	}

	items, total, err := s.store.Tickets().List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.Ticket{}
	}
	return &TicketPage{Items: items, Page: pageNo, PerPage: perPage, Total: total}, nil
}

// GetTicket returns a single ticket if actor may see it.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (ticket *domain.Ticket, err error) {
	ctx, span := startSpan(ctx, "TicketService.GetTicket", actor)
	defer func() { endSpan(span, err) }()

	return s.visibleTicket(ctx, s.store, actor, ticketID)
}

// UpdateTicket applies the part of patch that actor's role permits. The row
// stays locked from load to commit so the diff is computed against the state
// that gets overwritten.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID string, patch domain.TicketPatch) (result *UpdateResult, err error) {
	ctx, span := startSpan(ctx, "TicketService.UpdateTicket", actor)
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var decision policy.Decision
	result = &UpdateResult{}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket")
		}
		if !policy.CanRead(actor, current) {
			return apperrors.NewForbidden("ticket not accessible")
		}
		decision, err = policy.Decide(actor, current, patch)
		if err != nil {
			return err
		}
		if decision.NoChange() {
			return nil
		}

		if next := decision.Update.AssignedToID; next.Set && next.Value != nil {
			if _, err := tx.Users().GetByID(ctx, *next.Value); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return apperrors.NewValidationError("assignee does not exist", map[string]any{"field": "assignedToId"})
				}
				return err
			}
		}
		if err := tx.Tickets().Update(ctx, ticketID, decision.Update); err != nil {
			return err
		}
		if decision.Update.Tags != nil {
			if err := attachTags(ctx, tx, ticketID, *decision.Update.Tags); err != nil {
				return err
			}
		}
		if _, err := s.recorder.Record(ctx, tx.AuditLogs(), actor.ID, audit.ActionTicketUpdate, audit.TicketUpdateMeta(decision.Diff), &ticketID); err != nil {
			return err
		}

		updated, err := tx.Tickets().GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		result.Changed = true
		result.Ticket = updated
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if result.Changed {
		s.events.publish(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: ticketID,
			Actor:    events.ActorFrom(actor),
			Payload:  events.TicketUpdatedPayload{Changes: decision.Diff, AssignedToID: result.Ticket.AssignedToID},
		})
	}
	return result, nil
}

// ListComments returns the ticket's comments, oldest first.
func (s *TicketService) ListComments(ctx context.Context, actor domain.Actor, ticketID string) (comments []domain.Comment, err error) {
	ctx, span := startSpan(ctx, "TicketService.ListComments", actor)
	defer func() { endSpan(span, err) }()

	if _, err := s.visibleTicket(ctx, s.store, actor, ticketID); err != nil {
		return nil, err
	}
	comments, err = s.store.Comments().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// AddComment appends a comment to a visible ticket.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, body string) (comment *domain.Comment, err error) {
	ctx, span := startSpan(ctx, "TicketService.AddComment", actor)
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("comment body is required", map[string]any{"field": "body"})
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := s.visibleTicket(ctx, tx, actor, ticketID); err != nil {
			return err
		}
		comment = &domain.Comment{TicketID: ticketID, AuthorID: actor.ID, Body: body}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return err
		}
		meta := map[string]any{"commentId": comment.ID, "length": utf8.RuneCountInString(body)}
		if _, err := s.recorder.Record(ctx, tx.AuditLogs(), actor.ID, audit.ActionCommentCreate, meta, &ticketID); err != nil {
			return err
		}
		author, err := tx.Users().GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		comment.Author = author.Ref()
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventCommentCreated,
		TicketID: ticketID,
		Actor:    events.ActorFrom(actor),
		Payload: events.CommentCreatedPayload{
			CommentID:   comment.ID,
			AuthorID:    actor.ID,
			BodyPreview: stringPreview(body, 140),
		},
	})
	return comment, nil
}

// AuditTrail returns the ticket's audit entries, newest first.
func (s *TicketService) AuditTrail(ctx context.Context, actor domain.Actor, ticketID string) (entries []domain.AuditLogEntry, err error) {
	ctx, span := startSpan(ctx, "TicketService.AuditTrail", actor)
	defer func() { endSpan(span, err) }()

	if _, err := s.visibleTicket(ctx, s.store, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err = s.store.AuditLogs().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if entries == nil {
		entries = []domain.AuditLogEntry{}
	}
	return entries, nil
}

// ListTags returns every known tag, sorted by name.
func (s *TicketService) ListTags(ctx context.Context, actor domain.Actor) ([]domain.Tag, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	tags, err := s.store.Tags().List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	return tags, nil
}

// visibleTicket runs the auth, load and visibility checks in that order.
func (s *TicketService) visibleTicket(ctx context.Context, store repository.Store, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(notFound(err, "ticket"))
	}
	if !policy.CanRead(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket not accessible")
	}
	return ticket, nil
}

// attachTags replaces the ticket's tag set, creating tags on first reference.
func attachTags(ctx context.Context, tx repository.Store, ticketID string, names []string) error {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		tag, err := tx.Tags().GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		ids = append(ids, tag.ID)
	}
	return tx.Tickets().ReplaceTags(ctx, ticketID, ids)
}
