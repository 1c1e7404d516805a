// Package policy decides which ticket fields a caller may change and which
// tickets a caller may see. Everything here is pure: no I/O, no clock.
package policy

import (
	"sort"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// MaxTags caps the number of tags kept on a ticket.
const MaxTags = 10

// Decision is the accepted subset of a patch. Update holds only fields whose
// value actually changes; Diff records their before/after values.
type Decision struct {
	Update domain.TicketPatch
	Diff   domain.Diff
}

// NoChange reports whether the request would leave the ticket untouched.
func (d Decision) NoChange() bool {
	return len(d.Diff) == 0
}

// FieldPolicy is the per-role write rule. Implementations either filter the
// patch down to the permitted fields or reject it outright.
type FieldPolicy interface {
	Decide(actor domain.Actor, ticket *domain.Ticket, patch domain.TicketPatch) (Decision, error)
}

var registry = map[domain.Role]FieldPolicy{
	domain.RoleUser:  requesterPolicy{},
	domain.RoleAgent: assigneePolicy{},
	domain.RoleAdmin: adminPolicy{},
}

// For returns the policy registered for role.
func For(role domain.Role) (FieldPolicy, bool) {
	p, ok := registry[role]
	return p, ok
}

// Decide dispatches on the actor's role.
func Decide(actor domain.Actor, ticket *domain.Ticket, patch domain.TicketPatch) (Decision, error) {
	p, ok := For(actor.Role)
	if !ok {
		return Decision{}, apperrors.NewForbidden("unknown role")
	}
	return p.Decide(actor, ticket, patch)
}

// requesterPolicy: the ticket owner may edit title and description while the
// ticket is OPEN. Other fields in the request are dropped.
type requesterPolicy struct{}

func (requesterPolicy) Decide(actor domain.Actor, ticket *domain.Ticket, patch domain.TicketPatch) (Decision, error) {
	if ticket.CreatedByID != actor.ID {
		return Decision{}, apperrors.NewForbidden("not the ticket owner")
	}
	if ticket.Status != domain.TicketStatusOpen {
		return Decision{}, apperrors.NewForbidden("ticket is no longer open")
	}
	b := newBuilder(ticket)
	b.title(patch.Title)
	b.description(patch.Description)
	return b.decision, nil
}

// assigneePolicy: the assigned agent may change status only. Any other field
// present in the request, changed or not, rejects the whole request.
type assigneePolicy struct{}

func (assigneePolicy) Decide(actor domain.Actor, ticket *domain.Ticket, patch domain.TicketPatch) (Decision, error) {
	if !ticket.IsAssignedTo(actor.ID) {
		return Decision{}, apperrors.NewForbidden("ticket not assigned to caller")
	}
	for _, field := range patch.Present() {
		if field != domain.FieldStatus {
			return Decision{}, apperrors.NewForbidden("agents may only change status")
		}
	}
	b := newBuilder(ticket)
	b.status(patch.Status)
	return b.decision, nil
}

// adminPolicy: every mutable field.
type adminPolicy struct{}

func (adminPolicy) Decide(_ domain.Actor, ticket *domain.Ticket, patch domain.TicketPatch) (Decision, error) {
	b := newBuilder(ticket)
	b.title(patch.Title)
	b.description(patch.Description)
	b.status(patch.Status)
	b.priority(patch.Priority)
	b.assignee(patch.AssignedToID)
	b.tags(patch.Tags)
	return b.decision, nil
}

// builder compares requested values with the current ticket and records the
// ones that differ.
type builder struct {
	ticket   *domain.Ticket
	decision Decision
}

func newBuilder(ticket *domain.Ticket) *builder {
	return &builder{ticket: ticket, decision: Decision{Diff: domain.Diff{}}}
}

func (b *builder) title(v *string) {
	if v == nil || *v == b.ticket.Title {
		return
	}
	next := *v
	b.decision.Update.Title = &next
	b.decision.Diff[domain.FieldTitle] = domain.FieldChange{From: b.ticket.Title, To: next}
}

func (b *builder) description(v *string) {
	if v == nil || *v == b.ticket.Description {
		return
	}
	next := *v
	b.decision.Update.Description = &next
	b.decision.Diff[domain.FieldDescription] = domain.FieldChange{From: b.ticket.Description, To: next}
}

func (b *builder) status(v *domain.TicketStatus) {
	if v == nil || *v == b.ticket.Status {
		return
	}
	next := *v
	b.decision.Update.Status = &next
	b.decision.Diff[domain.FieldStatus] = domain.FieldChange{From: string(b.ticket.Status), To: string(next)}
}

func (b *builder) priority(v *domain.TicketPriority) {
	if v == nil || *v == b.ticket.Priority {
		return
	}
	next := *v
	b.decision.Update.Priority = &next
	b.decision.Diff[domain.FieldPriority] = domain.FieldChange{From: string(b.ticket.Priority), To: string(next)}
}

func (b *builder) assignee(v domain.OptionalID) {
	if !v.Set || equalIDs(v.Value, b.ticket.AssignedToID) {
		return
	}
	var next *string
	if v.Value != nil {
		id := *v.Value
		next = &id
	}
	b.decision.Update.AssignedToID = domain.OptionalID{Set: true, Value: next}
	b.decision.Diff[domain.FieldAssignedToID] = domain.FieldChange{From: idValue(b.ticket.AssignedToID), To: idValue(next)}
}

func (b *builder) tags(v *[]string) {
	if v == nil {
		return
	}
	next := NormalizeTags(*v)
	current := b.ticket.SortedTags()
	if equalStrings(next, current) {
		return
	}
	b.decision.Update.Tags = &next
	b.decision.Diff[domain.FieldTags] = domain.FieldChange{From: current, To: next}
}

// NormalizeTags trims names, drops empties and duplicates (first occurrence
// wins), keeps at most MaxTags and returns them sorted.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) > MaxTags {
		out = out[:MaxTags]
	}
	sort.Strings(out)
	return out
}

func equalIDs(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func idValue(id *string) any {
	if id == nil {
		return nil
	}
	return *id
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
