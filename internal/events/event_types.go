package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers. Values double as AMQP
// routing keys.
type EventType string

const (
	EventTicketCreated  EventType = "ticket.created"
	EventTicketUpdated  EventType = "ticket.updated"
	EventCommentCreated EventType = "comment.created"
	EventUserCreated    EventType = "user.created"
	EventUserUpdated    EventType = "user.updated"
	EventTagCreated     EventType = "tag.created"
)

// Actor identifies who caused an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a committed domain change. Events are only published after
// the transaction that produced them commits.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// ActorFrom converts the caller of an operation into event metadata.
func ActorFrom(a domain.Actor) Actor {
	return Actor{ID: a.ID, Role: a.Role}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
	Tags     []string              `json:"tags"`
}

// TicketUpdatedPayload carries the applied field diff.
type TicketUpdatedPayload struct {
	Changes      domain.Diff `json:"changes"`
	AssignedToID *string     `json:"assigned_to_id,omitempty"`
}

// CommentCreatedPayload payload.
type CommentCreatedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}

// UserPayload is shared by user.created and user.updated.
type UserPayload struct {
	UserID  string      `json:"user_id"`
	Email   string      `json:"email"`
	Role    domain.Role `json:"role"`
	Changed []string    `json:"changed,omitempty"`
}

// TagCreatedPayload payload.
type TagCreatedPayload struct {
	TagID string `json:"tag_id"`
	Name  string `json:"name"`
}
