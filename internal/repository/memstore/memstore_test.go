package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

func TestTicketListBreaksTimestampTiesByID(t *testing.T) {
	ctx := context.Background()
	store := New(clock.Fake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))).Store()

	user := &domain.User{Email: "u@example.com", Name: "U", Role: domain.RoleUser}
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, title := range []string{"one", "two", "three"} {
		tk := &domain.Ticket{Title: title, Description: "d", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium, CreatedByID: user.ID}
		if err := store.Tickets().Create(ctx, tk); err != nil {
			t.Fatalf("create ticket: %v", err)
		}
	}

	tests := []struct {
		name string
		asc  bool
	}{
		{"descending", false},
		{"ascending", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ids []string
			for offset := 0; offset < 3; offset++ {
				page, total, err := store.Tickets().List(ctx, repository.TicketFilter{SortAsc: tc.asc, Limit: 1, Offset: offset})
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				if total != 3 || len(page) != 1 {
					t.Fatalf("offset %d: total=%d len=%d", offset, total, len(page))
				}
				ids = append(ids, page[0].ID)
			}
			for i := 1; i < len(ids); i++ {
				ordered := ids[i-1] > ids[i]
				if tc.asc {
					ordered = ids[i-1] < ids[i]
				}
				if !ordered {
					t.Fatalf("ids out of order across pages: %v", ids)
				}
			}
		})
	}
}
