package dto

import (
	"encoding/json"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestUpdateTicketRequestAssigneePresence(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		set     bool
		wantNil bool
	}{
		{"absent", `{"title":"abc"}`, false, true},
		{"explicit null", `{"assignedToId":null}`, true, true},
		{"value", `{"assignedToId":" u-1 "}`, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req UpdateTicketRequest
			if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			patch := req.Patch()
			if patch.AssignedToID.Set != tc.set {
				t.Fatalf("Set = %v, want %v", patch.AssignedToID.Set, tc.set)
			}
			if (patch.AssignedToID.Value == nil) != tc.wantNil {
				t.Fatalf("Value = %v", patch.AssignedToID.Value)
			}
			if !tc.wantNil && *patch.AssignedToID.Value != "u-1" {
				t.Fatalf("Value = %q, want trimmed id", *patch.AssignedToID.Value)
			}
		})
	}
}

func TestRequestValidation(t *testing.T) {
	badRole := domain.Role("ROOT")
	long := make([]string, 11)
	for i := range long {
		long[i] = "t"
	}
	tests := []struct {
		name  string
		v     interface{ Validate() error }
		field string
	}{
		{"short title", CreateTicketRequest{Title: "ab", Description: "d"}, "title"},
		{"bad priority", CreateTicketRequest{Title: "abc", Description: "d", Priority: "NOW"}, "priority"},
		{"too many tags", CreateTicketRequest{Title: "abc", Description: "d", Tags: long}, "tags"},
		{"blank tag", UpdateTicketRequest{Tags: &[]string{"  "}}, "tags"},
		{"empty comment", CreateCommentRequest{}, "body"},
		{"bad email", CreateUserRequest{Email: "nope", Name: "n", Password: "password1", Role: "USER"}, "email"},
		{"short password", CreateUserRequest{Email: "a@b.co", Name: "n", Password: "short", Role: "USER"}, "password"},
		{"bad role", UpdateUserRequest{Role: &badRole}, "role"},
		{"blank tag name", CreateTagRequest{Name: "   "}, "name"},
		{"login without email", LoginRequest{Password: "secret1"}, "email"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.v.Validate()
			de := apperrors.ToDomainError(err)
			if de == nil || de.Code != "VALIDATION_FAILED" {
				t.Fatalf("err = %v, want validation failure", err)
			}
			if _, ok := de.Details[tc.field]; !ok {
				t.Fatalf("details = %v, want %s", de.Details, tc.field)
			}
		})
	}

	if err := (CreateTicketRequest{Title: "Printer", Description: "jam", Tags: []string{"hw"}}).Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

func TestTicketListQueryParams(t *testing.T) {
	params, err := TicketListQuery{}.Params()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if params.Page != 1 || params.PerPage != 20 || params.SortBy != "updatedAt" || params.SortAsc {
		t.Fatalf("defaults = %+v", params)
	}

	params, err = TicketListQuery{Page: "3", PerPage: "50", Status: "OPEN", Q: " vpn ", SortBy: "createdAt", SortDir: "asc", AssignedToID: "u-1"}.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if params.Page != 3 || params.PerPage != 50 || *params.Status != "OPEN" || params.Search != "vpn" || !params.SortAsc || *params.AssignedToID != "u-1" {
		t.Fatalf("params = %+v", params)
	}

	tests := []struct {
		name  string
		query TicketListQuery
		field string
	}{
		{"zero page", TicketListQuery{Page: "0"}, "page"},
		{"huge page size", TicketListQuery{PerPage: "101"}, "perPage"},
		{"unknown status", TicketListQuery{Status: "DONE"}, "status"},
		{"unknown sort", TicketListQuery{SortBy: "title"}, "sortBy"},
		{"unknown direction", TicketListQuery{SortDir: "up"}, "sortDir"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.query.Params()
			de := apperrors.ToDomainError(err)
			if de == nil || de.Details[tc.field] == nil {
				t.Fatalf("err = %v, want %s failure", err, tc.field)
			}
		})
	}
}
