package domain

import (
	"encoding/json"
	"time"
)

// AuditLogEntry is an immutable record of one accepted mutation.
type AuditLogEntry struct {
	ID        string
	Action    string
	MetaJSON  json.RawMessage
	ActorID   string
	TicketID  *string
	CreatedAt time.Time

	Actor *UserRef
}

// FieldChange is one entry of an audit diff.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Diff maps changed fields to their before/after values.
type Diff map[TicketField]FieldChange
