// Package memstore is an in-memory repository.Store. Transactions take a
// store-wide lock and restore a snapshot when the callback fails, so the
// atomicity guarantees callers rely on hold without a database.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type ticketRow struct {
	ticket domain.Ticket
	tagIDs map[string]struct{}
}

type state struct {
	users    map[string]domain.User
	sessions map[string]domain.Session
	tickets  map[string]*ticketRow
	tags     map[string]domain.Tag
	comments []domain.Comment
	audit    []domain.AuditLogEntry
}

func newState() *state {
	return &state{
		users:    map[string]domain.User{},
		sessions: map[string]domain.Session{},
		tickets:  map[string]*ticketRow{},
		tags:     map[string]domain.Tag{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.tickets {
		row := &ticketRow{ticket: v.ticket, tagIDs: map[string]struct{}{}}
		for id := range v.tagIDs {
			row.tagIDs[id] = struct{}{}
		}
		c.tickets[k] = row
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	c.comments = append([]domain.Comment{}, s.comments...)
	c.audit = append([]domain.AuditLogEntry{}, s.audit...)
	return c
}

// Store is the shared in-memory database.
type Store struct {
	mu    sync.Mutex
	data  *state
	clock clock.Clock
}

// New returns an empty store stamping rows with c.
func New(c clock.Clock) *Store {
	if c == nil {
		c = clock.Real()
	}
	return &Store{data: newState(), clock: c}
}

// view is a repository.Store over the shared state. Views created inside
// WithinTx run with the lock already held.
type view struct {
	root *Store
	inTx bool
}

// Store returns the non-transactional entry point.
func (s *Store) Store() repository.Store {
	return &view{root: s}
}

func (v *view) do(fn func(st *state) error) error {
	if !v.inTx {
		v.root.mu.Lock()
		defer v.root.mu.Unlock()
	}
	return fn(v.root.data)
}

func (v *view) now() time.Time { return v.root.clock.Now() }

func (v *view) Users() repository.UserRepository         { return users{v} }
func (v *view) Sessions() repository.SessionRepository   { return sessions{v} }
func (v *view) Tickets() repository.TicketRepository     { return tickets{v} }
func (v *view) Tags() repository.TagRepository           { return tags{v} }
func (v *view) Comments() repository.CommentRepository   { return comments{v} }
func (v *view) AuditLogs() repository.AuditLogRepository { return auditLogs{v} }

func (v *view) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if v.inTx {
		return fn(v)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	v.root.mu.Lock()
	defer v.root.mu.Unlock()

	snapshot := v.root.data.clone()
	if err := fn(&view{root: v.root, inTx: true}); err != nil {
		v.root.data = snapshot
		return err
	}
	return nil
}

// AuditCount returns the number of audit entries recorded so far.
func (s *Store) AuditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.audit)
}

// AuditEntries returns a copy of every audit entry in insertion order.
func (s *Store) AuditEntries() []domain.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditLogEntry{}, s.data.audit...)
}

// SessionCount returns the number of stored sessions.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.sessions)
}

func newID() string { return uuid.NewString() }

func userRef(st *state, id string) *domain.UserRef {
	u, ok := st.users[id]
	if !ok {
		return nil
	}
	return u.Ref()
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
