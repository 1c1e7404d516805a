package policy

import (
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func TestCanRead(t *testing.T) {
	tk := sampleTicket()
	tests := []struct {
		actor domain.Actor
		want  bool
	}{
		{owner, true},
		{stranger, false},
		{assignee, true},
		{agent2, false},
		{admin, true},
		{domain.Actor{ID: "u1", Role: "GUEST"}, false},
	}
	for _, tc := range tests {
		if got := CanRead(tc.actor, tk); got != tc.want {
			t.Errorf("CanRead(%s/%s) = %v, want %v", tc.actor.Role, tc.actor.ID, got, tc.want)
		}
	}

	unassigned := sampleTicket()
	unassigned.AssignedToID = nil
	if CanRead(assignee, unassigned) {
		t.Error("agent should not read unassigned ticket")
	}
}

func TestListScope(t *testing.T) {
	requested := repository.TicketFilter{CreatedByID: strPtr("someone"), AssignedToID: strPtr("other"), Query: "printer"}

	got, err := ListScope(owner, requested)
	if err != nil {
		t.Fatalf("ListScope: %v", err)
	}
	if got.CreatedByID == nil || *got.CreatedByID != "u1" || got.AssignedToID != nil || got.Query != "printer" {
		t.Fatalf("user scope = %+v", got)
	}

	got, err = ListScope(assignee, requested)
	if err != nil {
		t.Fatalf("ListScope: %v", err)
	}
	if got.AssignedToID == nil || *got.AssignedToID != "a1" || got.CreatedByID != nil {
		t.Fatalf("agent scope = %+v", got)
	}

	got, err = ListScope(admin, requested)
	if err != nil {
		t.Fatalf("ListScope: %v", err)
	}
	if *got.CreatedByID != "someone" || *got.AssignedToID != "other" {
		t.Fatalf("admin scope = %+v", got)
	}

	if _, err := ListScope(domain.Actor{Role: "GUEST"}, requested); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
