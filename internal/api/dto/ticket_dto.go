package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Tags        []string              `json:"tags"`
}

// Validate checks the request shape.
func (r CreateTicketRequest) Validate() error {
	errs := fieldErrors{}
	errs.length("title", r.Title, 3, 200)
	errs.length("description", r.Description, 1, 5000)
	if r.Priority != "" && !r.Priority.Valid() {
		errs["priority"] = "must be one of LOW, MEDIUM, HIGH, URGENT"
	}
	errs.tags("tags", r.Tags)
	return errs.err()
}

// NullableID distinguishes an absent JSON member from an explicit null.
type NullableID struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the member is present.
func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}

// UpdateTicketRequest payload. Every member is optional; assignedToId may be
// null to clear the assignment.
type UpdateTicketRequest struct {
	Title        *string                `json:"title"`
	Description  *string                `json:"description"`
	Status       *domain.TicketStatus   `json:"status"`
	Priority     *domain.TicketPriority `json:"priority"`
	AssignedToID NullableID             `json:"assignedToId"`
	Tags         *[]string              `json:"tags"`
}

// Validate checks the request shape.
func (r UpdateTicketRequest) Validate() error {
	errs := fieldErrors{}
	if r.Title != nil {
		errs.length("title", *r.Title, 3, 200)
	}
	if r.Description != nil {
		errs.length("description", *r.Description, 1, 5000)
	}
	if r.Status != nil && !r.Status.Valid() {
		errs["status"] = "must be one of OPEN, IN_PROGRESS, RESOLVED, CLOSED"
	}
	if r.Priority != nil && !r.Priority.Valid() {
		errs["priority"] = "must be one of LOW, MEDIUM, HIGH, URGENT"
	}
	if r.AssignedToID.Set && r.AssignedToID.Value != nil && strings.TrimSpace(*r.AssignedToID.Value) == "" {
		errs["assignedToId"] = "must be a user id or null"
	}
	if r.Tags != nil {
		errs.tags("tags", *r.Tags)
	}
	return errs.err()
}

// Patch converts the request into a domain patch.
func (r UpdateTicketRequest) Patch() domain.TicketPatch {
	patch := domain.TicketPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Tags:        r.Tags,
	}
	if r.AssignedToID.Set {
		patch.AssignedToID.Set = true
		if r.AssignedToID.Value != nil {
			id := strings.TrimSpace(*r.AssignedToID.Value)
			patch.AssignedToID.Value = &id
		}
	}
	return patch
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	CreatedBy     *UserRefResponse      `json:"createdBy"`
	AssignedTo    *UserRefResponse      `json:"assignedTo"`
	Tags          []string              `json:"tags"`
	CommentsCount int                   `json:"commentsCount"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) *TicketResponse {
	if t == nil {
		return nil
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return &TicketResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        t.Status,
		Priority:      t.Priority,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		CreatedBy:     newUserRef(t.CreatedBy),
		AssignedTo:    newUserRef(t.AssignedTo),
		Tags:          tags,
		CommentsCount: t.CommentsCount,
	}
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Page    int               `json:"page"`
	PerPage int               `json:"perPage"`
	Total   int               `json:"total"`
	Items   []*TicketResponse `json:"items"`
}

// UpdateTicketResponse reports the outcome of a patch.
type UpdateTicketResponse struct {
	OK      bool            `json:"ok"`
	Changed bool            `json:"changed"`
	Ticket  *TicketResponse `json:"ticket,omitempty"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// Validate checks the request shape.
func (r CreateCommentRequest) Validate() error {
	errs := fieldErrors{}
	errs.length("body", r.Body, 1, 2000)
	return errs.err()
}

// CommentResponse is the public comment view.
type CommentResponse struct {
	ID        string           `json:"id"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"createdAt"`
	Author    *UserRefResponse `json:"author"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(c *domain.Comment) *CommentResponse {
	return &CommentResponse{ID: c.ID, Body: c.Body, CreatedAt: c.CreatedAt, Author: newUserRef(c.Author)}
}

// AuditEntryResponse is one audit trail row. Meta is the stored JSON payload.
type AuditEntryResponse struct {
	ID        string           `json:"id"`
	Action    string           `json:"action"`
	Meta      json.RawMessage  `json:"meta"`
	CreatedAt time.Time        `json:"createdAt"`
	Actor     *UserRefResponse `json:"actor"`
}

// NewAuditEntryResponse maps a domain audit entry.
func NewAuditEntryResponse(e *domain.AuditLogEntry) *AuditEntryResponse {
	meta := e.MetaJSON
	if len(meta) == 0 {
		meta = json.RawMessage("null")
	}
	return &AuditEntryResponse{ID: e.ID, Action: e.Action, Meta: meta, CreatedAt: e.CreatedAt, Actor: newUserRef(e.Actor)}
}

// TicketListQuery is the raw query string of GET /api/tickets.
type TicketListQuery struct {
	Page         string `query:"page"`
	PerPage      string `query:"perPage"`
	Status       string `query:"status"`
	Priority     string `query:"priority"`
	Q            string `query:"q"`
	Tag          string `query:"tag"`
	SortBy       string `query:"sortBy"`
	SortDir      string `query:"sortDir"`
	CreatedByID  string `query:"createdById"`
	AssignedToID string `query:"assignedToId"`
}

// TicketListParams is the validated form of TicketListQuery.
type TicketListParams struct {
	Page         int
	PerPage      int
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	Search       string
	Tag          string
	SortBy       string
	SortAsc      bool
	CreatedByID  *string
	AssignedToID *string
}

// Params validates the query and applies defaults.
func (q TicketListQuery) Params() (TicketListParams, error) {
	errs := fieldErrors{}
	params := TicketListParams{Page: 1, PerPage: 20, SortBy: "updatedAt"}

	if q.Page != "" {
		n, err := strconv.Atoi(q.Page)
		if err != nil || n < 1 {
			errs["page"] = "must be a positive integer"
		}
		params.Page = n
	}
	if q.PerPage != "" {
		n, err := strconv.Atoi(q.PerPage)
		if err != nil || n < 1 || n > 100 {
			errs["perPage"] = "must be between 1 and 100"
		}
		params.PerPage = n
	}
	if q.Status != "" {
		status := domain.TicketStatus(q.Status)
		if !status.Valid() {
			errs["status"] = "must be one of OPEN, IN_PROGRESS, RESOLVED, CLOSED"
		}
		params.Status = &status
	}
	if q.Priority != "" {
		priority := domain.TicketPriority(q.Priority)
		if !priority.Valid() {
			errs["priority"] = "must be one of LOW, MEDIUM, HIGH, URGENT"
		}
		params.Priority = &priority
	}
	errs.length("q", q.Q, 0, 200)
	params.Search = strings.TrimSpace(q.Q)
	errs.length("tag", q.Tag, 0, 50)
	params.Tag = strings.TrimSpace(q.Tag)

	switch q.SortBy {
	case "":
	case "createdAt", "updatedAt":
		params.SortBy = q.SortBy
	default:
		errs["sortBy"] = "must be createdAt or updatedAt"
	}
	switch q.SortDir {
	case "", "desc":
	case "asc":
		params.SortAsc = true
	default:
		errs["sortDir"] = "must be asc or desc"
	}
	if id := strings.TrimSpace(q.CreatedByID); id != "" {
		params.CreatedByID = &id
	}
	if id := strings.TrimSpace(q.AssignedToID); id != "" {
		params.AssignedToID = &id
	}
	return params, errs.err()
}
