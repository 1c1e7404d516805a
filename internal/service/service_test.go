package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memstore"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const testBcryptCost = 4

type testEnv struct {
	clock   *clock.FakeClock
	mem     *memstore.Store
	store   repository.Store
	tickets *TicketService
	admin   *AdminService
	auth    *AuthService

	rootUser  *domain.User
	agentUser *domain.User
	plainUser *domain.User
	otherUser *domain.User

	mu        sync.Mutex
	published []events.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := clock.Fake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	mem := memstore.New(clk)
	store := mem.Store()

	dispatcher := events.NewInMemoryDispatcher(nil)
	env := &testEnv{clock: clk, mem: mem, store: store}
	dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.published = append(env.published, e)
		return nil
	})

	authenticator := auth.NewAuthenticator(store, auth.NewSessionSigner("test"), nil, clk, nil)
	env.tickets = NewTicketService(TicketDependencies{Store: store, Dispatcher: dispatcher, Clock: clk})
	env.admin = NewAdminService(AdminDependencies{Store: store, Dispatcher: dispatcher, Clock: clk, BcryptCost: testBcryptCost})
	env.auth = NewAuthService(AuthDependencies{Store: store, Authenticator: authenticator, SessionTTL: 24 * time.Hour})

	env.rootUser = env.seedUser(t, "root@example.com", domain.RoleAdmin)
	env.agentUser = env.seedUser(t, "agent@example.com", domain.RoleAgent)
	env.plainUser = env.seedUser(t, "user@example.com", domain.RoleUser)
	env.otherUser = env.seedUser(t, "other@example.com", domain.RoleUser)
	return env
}

func (e *testEnv) seedUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse", testBcryptCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{Email: email, Name: email, Role: role, PasswordHash: hash}
	if err := e.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) eventCount(eventType events.EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.published {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

// openTicket creates a ticket owned by plainUser and assigned to agentUser.
func (e *testEnv) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	tk, err := e.tickets.CreateTicket(ctx, e.plainUser.Actor(), TicketCreateInput{
		Title:       "VPN drops",
		Description: "Every 10 minutes",
		Tags:        []string{"network"},
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	res, err := e.tickets.UpdateTicket(ctx, e.rootUser.Actor(), tk.ID, domain.TicketPatch{
		AssignedToID: domain.OptionalID{Set: true, Value: &e.agentUser.ID},
	})
	if err != nil || !res.Changed {
		t.Fatalf("assign: %v %+v", err, res)
	}
	return res.Ticket
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.IsCode(err, code) {
		t.Fatalf("err = %v, want %s", err, code)
	}
}

type updateMeta struct {
	Changes map[string]struct {
		From any `json:"from"`
		To   any `json:"to"`
	} `json:"changes"`
}

func lastAudit(t *testing.T, mem *memstore.Store) domain.AuditLogEntry {
	t.Helper()
	entries := mem.AuditEntries()
	if len(entries) == 0 {
		t.Fatal("no audit entries")
	}
	return entries[len(entries)-1]
}

func TestLoginWithWrongPasswordCreatesNoSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Login(ctx, "user@example.com", "wrong")
	assertCode(t, err, "UNAUTHORIZED")
	_, err = env.auth.Login(ctx, "nobody@example.com", "correct-horse")
	assertCode(t, err, "UNAUTHORIZED")
	if n := env.mem.SessionCount(); n != 0 {
		t.Fatalf("SessionCount = %d, want 0", n)
	}

	res, err := env.auth.Login(ctx, " user@example.com ", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	who, err := env.auth.WhoAmI(ctx, res.Token)
	if err != nil || who == nil || who.ID != env.plainUser.ID {
		t.Fatalf("WhoAmI = %+v, %v", who, err)
	}

	env.auth.Logout(ctx, res.Token)
	env.auth.Logout(ctx, res.Token)
	if who, err := env.auth.WhoAmI(ctx, res.Token); who != nil || err != nil {
		t.Fatalf("WhoAmI after logout = %v, %v", who, err)
	}
}

func TestCreateTicketRecordsAudit(t *testing.T) {
	env := newTestEnv(t)
	tk, err := env.tickets.CreateTicket(context.Background(), env.plainUser.Actor(), TicketCreateInput{
		Title:       "Laptop",
		Description: "Won't boot",
		Tags:        []string{" hw ", "hw", "", "laptop"},
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if tk.CreatedByID != env.plainUser.ID || tk.Status != domain.TicketStatusOpen || tk.Priority != domain.TicketPriorityMedium {
		t.Fatalf("ticket = %+v", tk)
	}
	if len(tk.Tags) != 2 || tk.Tags[0] != "hw" || tk.Tags[1] != "laptop" {
		t.Fatalf("tags = %v", tk.Tags)
	}

	entry := lastAudit(t, env.mem)
	if entry.Action != "ticket.create" || entry.ActorID != env.plainUser.ID || entry.TicketID == nil || *entry.TicketID != tk.ID {
		t.Fatalf("audit = %+v", entry)
	}
	if env.eventCount(events.EventTicketCreated) != 1 {
		t.Fatal("expected ticket.created event")
	}

	_, err = env.tickets.CreateTicket(context.Background(), domain.Actor{}, TicketCreateInput{Title: "x"})
	assertCode(t, err, "UNAUTHORIZED")
}

func TestUserEditsOwnOpenTicket(t *testing.T) {
	env := newTestEnv(t)
	tk := env.openTicket(t)
	before := env.mem.AuditCount()

	res, err := env.tickets.UpdateTicket(context.Background(), env.plainUser.Actor(), tk.ID, domain.TicketPatch{
		Title:    strPtr("VPN drops hourly"),
		Priority: func() *domain.TicketPriority { p := domain.TicketPriorityUrgent; return &p }(),
	})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if !res.Changed || res.Ticket.Title != "VPN drops hourly" || res.Ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("result = %+v", res.Ticket)
	}
	if got := env.mem.AuditCount() - before; got != 1 {
		t.Fatalf("audit entries added = %d, want 1", got)
	}

	entry := lastAudit(t, env.mem)
	if entry.Action != "ticket.update" || entry.ActorID != env.plainUser.ID {
		t.Fatalf("audit = %+v", entry)
	}
	var meta updateMeta
	if err := json.Unmarshal(entry.MetaJSON, &meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if len(meta.Changes) != 1 || meta.Changes["title"].From != "VPN drops" || meta.Changes["title"].To != "VPN drops hourly" {
		t.Fatalf("meta = %s", entry.MetaJSON)
	}
}

func TestUserCannotEditAfterStatusLeavesOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.openTicket(t)

	if _, err := env.tickets.UpdateTicket(ctx, env.rootUser.Actor(), tk.ID, domain.TicketPatch{
		Status: statusPtr(domain.TicketStatusInProgress),
	}); err != nil {
		t.Fatalf("admin status change: %v", err)
	}
	before := env.mem.AuditCount()

	_, err := env.tickets.UpdateTicket(ctx, env.plainUser.Actor(), tk.ID, domain.TicketPatch{Title: strPtr("again")})
	assertCode(t, err, "FORBIDDEN")
	if env.mem.AuditCount() != before {
		t.Fatal("forbidden update wrote an audit entry")
	}
}

func TestAgentAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.openTicket(t)
	before := env.mem.AuditCount()
	updatesBefore := env.eventCount(events.EventTicketUpdated)

	_, err := env.tickets.UpdateTicket(ctx, env.agentUser.Actor(), tk.ID, domain.TicketPatch{
		Status: statusPtr(domain.TicketStatusResolved),
		Title:  strPtr("x"),
	})
	assertCode(t, err, "FORBIDDEN")
	if env.mem.AuditCount() != before || env.eventCount(events.EventTicketUpdated) != updatesBefore {
		t.Fatal("rejected update left side effects")
	}
	current, err := env.tickets.GetTicket(ctx, env.rootUser.Actor(), tk.ID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if current.Status != domain.TicketStatusOpen || current.Title != "VPN drops" {
		t.Fatalf("ticket changed: %+v", current)
	}

	res, err := env.tickets.UpdateTicket(ctx, env.agentUser.Actor(), tk.ID, domain.TicketPatch{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if !res.Changed || res.Ticket.Status != domain.TicketStatusResolved {
		t.Fatalf("result = %+v", res)
	}
	var meta updateMeta
	if err := json.Unmarshal(lastAudit(t, env.mem).MetaJSON, &meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if ch := meta.Changes["status"]; ch.From != "OPEN" || ch.To != "RESOLVED" || len(meta.Changes) != 1 {
		t.Fatalf("meta changes = %+v", meta.Changes)
	}
	if env.eventCount(events.EventTicketUpdated) != updatesBefore+1 {
		t.Fatal("expected one ticket.updated event")
	}
}

func TestUpdateOutcomesWithoutAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.openTicket(t)

	tests := []struct {
		name  string
		actor domain.Actor
		id    string
		patch domain.TicketPatch
		code  string
	}{
		{"unauthenticated", domain.Actor{}, tk.ID, domain.TicketPatch{Title: strPtr("x")}, "UNAUTHORIZED"},
		{"missing ticket", env.rootUser.Actor(), "nope", domain.TicketPatch{Title: strPtr("x")}, "NOT_FOUND"},
		{"stranger", env.otherUser.Actor(), tk.ID, domain.TicketPatch{Title: strPtr("x")}, "FORBIDDEN"},
		{"unknown assignee", env.rootUser.Actor(), tk.ID, domain.TicketPatch{AssignedToID: domain.OptionalID{Set: true, Value: strPtr("ghost")}}, "VALIDATION_FAILED"},
		{"no change", env.plainUser.Actor(), tk.ID, domain.TicketPatch{Title: strPtr("VPN drops")}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := env.mem.AuditCount()
			res, err := env.tickets.UpdateTicket(ctx, tc.actor, tc.id, tc.patch)
			if tc.code != "" {
				assertCode(t, err, tc.code)
			} else {
				if err != nil {
					t.Fatalf("UpdateTicket: %v", err)
				}
				if res.Changed || res.Ticket != nil {
					t.Fatalf("expected no change, got %+v", res)
				}
			}
			if env.mem.AuditCount() != before {
				t.Fatal("audit entry written")
			}
		})
	}
}

func TestAdminTagUpdateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.openTicket(t)
	patch := domain.TicketPatch{Tags: &[]string{"vpn", " network", "vpn"}}

	first, err := env.tickets.UpdateTicket(ctx, env.rootUser.Actor(), tk.ID, patch)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if !first.Changed || len(first.Ticket.Tags) != 2 || first.Ticket.Tags[0] != "network" || first.Ticket.Tags[1] != "vpn" {
		t.Fatalf("first = %+v", first.Ticket)
	}
	before := env.mem.AuditCount()

	second, err := env.tickets.UpdateTicket(ctx, env.rootUser.Actor(), tk.ID, patch)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.Changed {
		t.Fatal("second identical tag update should be no change")
	}
	if env.mem.AuditCount() != before {
		t.Fatal("no-change update wrote audit")
	}

	tags, err := env.tickets.ListTags(ctx, env.plainUser.Actor())
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("tags = %+v", tags)
	}
}

func TestListTicketsIsScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	assigned := env.openTicket(t)
	if _, err := env.tickets.CreateTicket(ctx, env.otherUser.Actor(), TicketCreateInput{Title: "Other", Description: "d"}); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := env.tickets.CreateTicket(ctx, env.plainUser.Actor(), TicketCreateInput{Title: "Second", Description: "d"}); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	tests := []struct {
		name  string
		actor domain.Actor
		query TicketListQuery
		total int
		check func(domain.Ticket) bool
	}{
		{"user sees own", env.plainUser.Actor(), TicketListQuery{CreatedByID: &env.otherUser.ID}, 2,
			func(tk domain.Ticket) bool { return tk.CreatedByID == env.plainUser.ID }},
		{"agent sees assigned", env.agentUser.Actor(), TicketListQuery{}, 1,
			func(tk domain.Ticket) bool { return tk.IsAssignedTo(env.agentUser.ID) }},
		{"admin sees all", env.rootUser.Actor(), TicketListQuery{}, 3,
			func(domain.Ticket) bool { return true }},
		{"admin narrows by owner", env.rootUser.Actor(), TicketListQuery{CreatedByID: &env.otherUser.ID}, 1,
			func(tk domain.Ticket) bool { return tk.CreatedByID == env.otherUser.ID }},
		{"search and tag", env.rootUser.Actor(), TicketListQuery{Search: "vpn", Tag: "network"}, 1,
			func(tk domain.Ticket) bool { return tk.ID == assigned.ID }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := env.tickets.ListTickets(ctx, tc.actor, tc.query)
			if err != nil {
				t.Fatalf("ListTickets: %v", err)
			}
			if page.Total != tc.total || len(page.Items) != tc.total {
				t.Fatalf("total = %d items = %d, want %d", page.Total, len(page.Items), tc.total)
			}
			for _, tk := range page.Items {
				if !tc.check(tk) {
					t.Fatalf("unexpected ticket %+v", tk)
				}
			}
			if page.Page != 1 || page.PerPage != 20 {
				t.Fatalf("paging = %d/%d", page.Page, page.PerPage)
			}
		})
	}
}

func TestCommentsAndAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tk := env.openTicket(t)

	_, err := env.tickets.AddComment(ctx, env.otherUser.Actor(), tk.ID, "hi")
	assertCode(t, err, "FORBIDDEN")
	_, err = env.tickets.AddComment(ctx, env.plainUser.Actor(), "missing", "hi")
	assertCode(t, err, "NOT_FOUND")

	env.clock.Advance(time.Minute)
	comment, err := env.tickets.AddComment(ctx, env.agentUser.Actor(), tk.ID, "Looking into it")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if comment.Author == nil || comment.Author.ID != env.agentUser.ID {
		t.Fatalf("author = %+v", comment.Author)
	}

	comments, err := env.tickets.ListComments(ctx, env.plainUser.Actor(), tk.ID)
	if err != nil || len(comments) != 1 {
		t.Fatalf("ListComments = %v, %v", comments, err)
	}

	trail, err := env.tickets.AuditTrail(ctx, env.plainUser.Actor(), tk.ID)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	wantActions := []string{"comment.create", "ticket.update", "ticket.create"}
	if len(trail) != len(wantActions) {
		t.Fatalf("trail = %+v", trail)
	}
	for i, want := range wantActions {
		if trail[i].Action != want {
			t.Fatalf("trail[%d] = %s, want %s", i, trail[i].Action, want)
		}
	}
	var meta struct {
		CommentID string `json:"commentId"`
		Length    int    `json:"length"`
	}
	if err := json.Unmarshal(trail[0].MetaJSON, &meta); err != nil || meta.CommentID != comment.ID || meta.Length != 15 {
		t.Fatalf("comment meta = %s (%v)", trail[0].MetaJSON, err)
	}

	_, err = env.tickets.AuditTrail(ctx, env.otherUser.Actor(), tk.ID)
	assertCode(t, err, "FORBIDDEN")
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before := env.mem.AuditCount()

	_, err := env.admin.CreateUser(ctx, env.rootUser.Actor(), CreateUserInput{
		Email: "user@example.com", Name: "Dup", Password: "password1", Role: domain.RoleUser,
	})
	assertCode(t, err, "CONFLICT")
	if env.mem.AuditCount() != before {
		t.Fatal("conflict wrote an audit entry")
	}
	users, err := env.admin.ListUsers(ctx, env.rootUser.Actor(), repository.UserFilter{})
	if err != nil || len(users) != 4 {
		t.Fatalf("ListUsers = %d, %v", len(users), err)
	}
	if env.eventCount(events.EventUserCreated) != 0 {
		t.Fatal("conflict published an event")
	}

	created, err := env.admin.CreateUser(ctx, env.rootUser.Actor(), CreateUserInput{
		Email: "new@example.com", Name: "New", Password: "password1", Role: domain.RoleAgent,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.ID == "" || created.PasswordHash == "password1" {
		t.Fatalf("created = %+v", created)
	}
	entry := lastAudit(t, env.mem)
	if entry.Action != "user.create" || entry.TicketID != nil || entry.ActorID != env.rootUser.ID {
		t.Fatalf("audit = %+v", entry)
	}
	if _, err := env.auth.Login(ctx, "new@example.com", "password1"); err != nil {
		t.Fatalf("login as created user: %v", err)
	}

	_, err = env.admin.CreateUser(ctx, env.agentUser.Actor(), CreateUserInput{Email: "x@example.com", Name: "X", Password: "p", Role: domain.RoleUser})
	assertCode(t, err, "FORBIDDEN")
}

func TestUpdateUserRecordsPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	role := domain.RoleAgent
	pw := "brand-new-pass"

	res, err := env.admin.UpdateUser(ctx, env.rootUser.Actor(), env.plainUser.ID, UpdateUserInput{Role: &role, Password: &pw})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if !res.Changed || res.User.Role != domain.RoleAgent {
		t.Fatalf("result = %+v", res)
	}
	var meta struct {
		UserID  string                     `json:"userId"`
		Changes map[string]json.RawMessage `json:"changes"`
	}
	entry := lastAudit(t, env.mem)
	if err := json.Unmarshal(entry.MetaJSON, &meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.UserID != env.plainUser.ID || string(meta.Changes["password"]) != `{"reset":true}` {
		t.Fatalf("meta = %s", entry.MetaJSON)
	}
	if _, err := env.auth.Login(ctx, "user@example.com", pw); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	before := env.mem.AuditCount()
	res, err = env.admin.UpdateUser(ctx, env.rootUser.Actor(), env.plainUser.ID, UpdateUserInput{Role: &role})
	if err != nil || res.Changed {
		t.Fatalf("repeat update = %+v, %v", res, err)
	}
	if env.mem.AuditCount() != before {
		t.Fatal("no-change user update wrote audit")
	}

	_, err = env.admin.UpdateUser(ctx, env.rootUser.Actor(), "ghost", UpdateUserInput{Role: &role})
	assertCode(t, err, "NOT_FOUND")
}

func TestCreateTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tag, err := env.admin.CreateTag(ctx, env.rootUser.Actor(), " billing ")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.Name != "billing" {
		t.Fatalf("name = %q", tag.Name)
	}
	before := env.mem.AuditCount()

	_, err = env.admin.CreateTag(ctx, env.rootUser.Actor(), "billing")
	assertCode(t, err, "CONFLICT")
	if env.mem.AuditCount() != before {
		t.Fatal("conflict wrote audit")
	}
	if _, err := env.admin.CreateTag(ctx, env.rootUser.Actor(), "Billing"); err != nil {
		t.Fatalf("tag names are case-sensitive: %v", err)
	}
	_, err = env.admin.CreateTag(ctx, env.plainUser.Actor(), "x")
	assertCode(t, err, "FORBIDDEN")
}
