package policy

import (
	"reflect"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func sampleTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:           "t1",
		Title:        "Printer jam",
		Description:  "Tray 2 is stuck",
		Status:       domain.TicketStatusOpen,
		Priority:     domain.TicketPriorityMedium,
		CreatedByID:  "u1",
		AssignedToID: strPtr("a1"),
		Tags:         []string{"hardware", "office"},
	}
}

var (
	owner    = domain.Actor{ID: "u1", Role: domain.RoleUser}
	stranger = domain.Actor{ID: "u2", Role: domain.RoleUser}
	assignee = domain.Actor{ID: "a1", Role: domain.RoleAgent}
	agent2   = domain.Actor{ID: "a2", Role: domain.RoleAgent}
	admin    = domain.Actor{ID: "root", Role: domain.RoleAdmin}
)

func fields(d Decision) []domain.TicketField {
	return d.Update.Present()
}

func TestDecideUser(t *testing.T) {
	tests := []struct {
		name      string
		actor     domain.Actor
		mutate    func(*domain.Ticket)
		patch     domain.TicketPatch
		forbidden bool
		want      []domain.TicketField
	}{
		{
			name:  "owner edits title and description",
			actor: owner,
			patch: domain.TicketPatch{Title: strPtr("New"), Description: strPtr("Details")},
			want:  []domain.TicketField{domain.FieldTitle, domain.FieldDescription},
		},
		{
			name:  "fields outside the set are dropped",
			actor: owner,
			patch: domain.TicketPatch{
				Title:    strPtr("New"),
				Status:   statusPtr(domain.TicketStatusClosed),
				Priority: priorityPtr(domain.TicketPriorityUrgent),
				Tags:     &[]string{"x"},
			},
			want: []domain.TicketField{domain.FieldTitle},
		},
		{
			name:  "unchanged title is no change",
			actor: owner,
			patch: domain.TicketPatch{Title: strPtr("Printer jam")},
			want:  nil,
		},
		{
			name:      "ticket no longer open",
			actor:     owner,
			mutate:    func(tk *domain.Ticket) { tk.Status = domain.TicketStatusInProgress },
			patch:     domain.TicketPatch{Title: strPtr("New")},
			forbidden: true,
		},
		{
			name:      "not the owner",
			actor:     stranger,
			patch:     domain.TicketPatch{Title: strPtr("New")},
			forbidden: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tk := sampleTicket()
			if tc.mutate != nil {
				tc.mutate(tk)
			}
			d, err := Decide(tc.actor, tk, tc.patch)
			if tc.forbidden {
				if !apperrors.IsCode(err, "FORBIDDEN") {
					t.Fatalf("err = %v, want forbidden", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if got := fields(d); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("accepted = %v, want %v", got, tc.want)
			}
			if d.NoChange() != (len(tc.want) == 0) {
				t.Fatalf("NoChange = %v", d.NoChange())
			}
		})
	}
}

func TestDecideAgent(t *testing.T) {
	tests := []struct {
		name      string
		actor     domain.Actor
		patch     domain.TicketPatch
		forbidden bool
		noChange  bool
	}{
		{
			name:  "assignee moves status",
			actor: assignee,
			patch: domain.TicketPatch{Status: statusPtr(domain.TicketStatusInProgress)},
		},
		{
			name:     "same status is no change",
			actor:    assignee,
			patch:    domain.TicketPatch{Status: statusPtr(domain.TicketStatusOpen)},
			noChange: true,
		},
		{
			name:      "extra field rejects the whole request",
			actor:     assignee,
			patch:     domain.TicketPatch{Status: statusPtr(domain.TicketStatusInProgress), Title: strPtr("x")},
			forbidden: true,
		},
		{
			name:      "unchanged extra field still rejects",
			actor:     assignee,
			patch:     domain.TicketPatch{Title: strPtr("Printer jam")},
			forbidden: true,
		},
		{
			name:      "explicit null assignee counts as present",
			actor:     assignee,
			patch:     domain.TicketPatch{AssignedToID: domain.OptionalID{Set: true}},
			forbidden: true,
		},
		{
			name:      "other agent",
			actor:     agent2,
			patch:     domain.TicketPatch{Status: statusPtr(domain.TicketStatusResolved)},
			forbidden: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Decide(tc.actor, sampleTicket(), tc.patch)
			if tc.forbidden {
				if !apperrors.IsCode(err, "FORBIDDEN") {
					t.Fatalf("err = %v, want forbidden", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.NoChange() != tc.noChange {
				t.Fatalf("NoChange = %v, want %v", d.NoChange(), tc.noChange)
			}
			for _, f := range fields(d) {
				if f != domain.FieldStatus {
					t.Fatalf("agent accepted %s", f)
				}
			}
		})
	}
}

func TestDecideAdmin(t *testing.T) {
	tk := sampleTicket()
	d, err := Decide(admin, tk, domain.TicketPatch{
		Title:        strPtr("Printer jam"),
		Status:       statusPtr(domain.TicketStatusClosed),
		Priority:     priorityPtr(domain.TicketPriorityMedium),
		AssignedToID: domain.OptionalID{Set: true},
		Tags:         &[]string{" office ", "hardware", "", "hardware"},
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	want := []domain.TicketField{domain.FieldStatus, domain.FieldAssignedToID}
	if got := fields(d); !reflect.DeepEqual(got, want) {
		t.Fatalf("accepted = %v, want %v", got, want)
	}
	if ch := d.Diff[domain.FieldStatus]; ch.From != "OPEN" || ch.To != "CLOSED" {
		t.Fatalf("status diff = %+v", ch)
	}
	if ch := d.Diff[domain.FieldAssignedToID]; ch.From != "a1" || ch.To != nil {
		t.Fatalf("assignee diff = %+v", ch)
	}
	if d.Update.AssignedToID.Value != nil {
		t.Fatal("expected unassign")
	}
}

func TestDecideAdminTags(t *testing.T) {
	tk := sampleTicket()
	d, err := Decide(admin, tk, domain.TicketPatch{Tags: &[]string{"urgent", "hardware"}})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	ch, ok := d.Diff[domain.FieldTags]
	if !ok {
		t.Fatal("expected tags diff")
	}
	if !reflect.DeepEqual(ch.From, []string{"hardware", "office"}) || !reflect.DeepEqual(ch.To, []string{"hardware", "urgent"}) {
		t.Fatalf("tags diff = %+v", ch)
	}
	if !reflect.DeepEqual(*d.Update.Tags, []string{"hardware", "urgent"}) {
		t.Fatalf("update tags = %v", *d.Update.Tags)
	}
}

func TestDecideUnknownRole(t *testing.T) {
	_, err := Decide(domain.Actor{ID: "x", Role: "GUEST"}, sampleTicket(), domain.TicketPatch{})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

// Every accepted field belongs to the role's permitted set, and every diff
// entry has differing endpoints.
func TestDecideNeverExceedsPermittedFields(t *testing.T) {
	permitted := map[domain.Role]map[domain.TicketField]bool{
		domain.RoleUser:  {domain.FieldTitle: true, domain.FieldDescription: true},
		domain.RoleAgent: {domain.FieldStatus: true},
		domain.RoleAdmin: {
			domain.FieldTitle: true, domain.FieldDescription: true, domain.FieldStatus: true,
			domain.FieldPriority: true, domain.FieldAssignedToID: true, domain.FieldTags: true,
		},
	}
	patches := []domain.TicketPatch{
		{},
		{Title: strPtr("A")},
		{Status: statusPtr(domain.TicketStatusResolved)},
		{Title: strPtr("A"), Description: strPtr("B"), Priority: priorityPtr(domain.TicketPriorityLow)},
		{AssignedToID: domain.OptionalID{Set: true, Value: strPtr("a2")}},
		{Tags: &[]string{"b", "a"}},
		{
			Title: strPtr("A"), Description: strPtr("B"), Status: statusPtr(domain.TicketStatusClosed),
			Priority: priorityPtr(domain.TicketPriorityHigh), AssignedToID: domain.OptionalID{Set: true},
			Tags: &[]string{"z"},
		},
	}
	for _, actor := range []domain.Actor{owner, assignee, admin} {
		for i, p := range patches {
			d, err := Decide(actor, sampleTicket(), p)
			if err != nil {
				continue
			}
			for _, f := range fields(d) {
				if !permitted[actor.Role][f] {
					t.Errorf("%s patch %d: accepted %s", actor.Role, i, f)
				}
			}
			for f, ch := range d.Diff {
				if reflect.DeepEqual(ch.From, ch.To) {
					t.Errorf("%s patch %d: %s diff has equal endpoints", actor.Role, i, f)
				}
			}
			if len(d.Diff) != len(fields(d)) {
				t.Errorf("%s patch %d: diff and update disagree", actor.Role, i)
			}
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"trim and sort", []string{" b", "a "}, []string{"a", "b"}},
		{"drop empty and duplicates", []string{"x", "", "  ", "x"}, []string{"x"}},
		{"nil", nil, []string{}},
		{
			"cap keeps first ten in input order",
			[]string{"k", "j", "i", "h", "g", "f", "e", "d", "c", "b", "a"},
			[]string{"b", "c", "d", "e", "f", "g", "h", "i", "j", "k"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTags(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("NormalizeTags(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
