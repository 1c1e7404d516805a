package domain

import (
	"sort"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	CreatedByID   string
	AssignedToID  *string
	Tags          []string
	CommentsCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Populated by read paths for presentation.
	CreatedBy  *UserRef
	AssignedTo *UserRef
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// SortedTags returns a sorted copy of the tag names.
func (t *Ticket) SortedTags() []string {
	tags := append([]string{}, t.Tags...)
	sort.Strings(tags)
	return tags
}

// TicketField names a mutable ticket attribute. The values double as the
// keys of an audit diff.
type TicketField string

const (
	FieldTitle        TicketField = "title"
	FieldDescription  TicketField = "description"
	FieldStatus       TicketField = "status"
	FieldPriority     TicketField = "priority"
	FieldAssignedToID TicketField = "assignedToId"
	FieldTags         TicketField = "tags"
)

// OptionalID distinguishes an absent value from an explicit null.
type OptionalID struct {
	Set   bool
	Value *string
}

// TicketPatch carries requested ticket changes. A nil pointer (or an unset
// OptionalID) means the field was not part of the request.
type TicketPatch struct {
	Title        *string
	Description  *string
	Status       *TicketStatus
	Priority     *TicketPriority
	AssignedToID OptionalID
	Tags         *[]string
}

// Present lists the fields included in the patch, regardless of value.
func (p TicketPatch) Present() []TicketField {
	var fields []TicketField
	if p.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if p.Status != nil {
		fields = append(fields, FieldStatus)
	}
	if p.Priority != nil {
		fields = append(fields, FieldPriority)
	}
	if p.AssignedToID.Set {
		fields = append(fields, FieldAssignedToID)
	}
	if p.Tags != nil {
		fields = append(fields, FieldTags)
	}
	return fields
}

// IsEmpty reports whether the patch carries no fields.
func (p TicketPatch) IsEmpty() bool {
	return len(p.Present()) == 0
}

// Apply copies the patch onto t. Tags are replaced wholesale.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.AssignedToID.Set {
		t.AssignedToID = p.AssignedToID.Value
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, (*p.Tags)...)
	}
}
