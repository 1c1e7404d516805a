package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type users struct{ v *view }

func (r users) Create(_ context.Context, user *domain.User) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return &domain.ConflictError{Constraint: "users_email_key"}
			}
		}
		now := r.v.now()
		user.ID = newID()
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r users) Update(_ context.Context, user *domain.User) error {
	return r.v.do(func(st *state) error {
		current, ok := st.users[user.ID]
		if !ok {
			return domain.ErrNotFound
		}
		current.Name = user.Name
		current.Role = user.Role
		current.PasswordHash = user.PasswordHash
		current.UpdatedAt = r.v.now()
		st.users[user.ID] = current
		user.UpdatedAt = current.UpdatedAt
		return nil
	})
}

func (r users) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r users) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	err := r.v.do(func(st *state) error {
		q := strings.TrimSpace(filter.Query)
		for _, u := range st.users {
			if filter.Role != nil && u.Role != *filter.Role {
				continue
			}
			if q != "" && !containsFold(u.Email, q) && !containsFold(u.Name, q) {
				continue
			}
			out = append(out, u)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

type sessions struct{ v *view }

func (r sessions) Create(_ context.Context, session *domain.Session) error {
	return r.v.do(func(st *state) error {
		if _, exists := st.sessions[session.ID]; exists {
			return &domain.ConflictError{Constraint: "sessions_pkey"}
		}
		session.CreatedAt = r.v.now()
		st.sessions[session.ID] = *session
		return nil
	})
}

func (r sessions) GetByID(_ context.Context, id string) (*domain.Session, error) {
	var out *domain.Session
	err := r.v.do(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r sessions) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.sessions[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.sessions, id)
		return nil
	})
}

type tickets struct{ v *view }

func (r tickets) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.users[ticket.CreatedByID]; !ok {
			return domain.ErrNotFound
		}
		now := r.v.now()
		ticket.ID = newID()
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		row := &ticketRow{ticket: *ticket, tagIDs: map[string]struct{}{}}
		row.ticket.Tags = nil
		st.tickets[ticket.ID] = row
		return nil
	})
}

func (r tickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.v.do(func(st *state) error {
		row, ok := st.tickets[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = materialize(st, row)
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock: transactions already serialize on the
// store mutex.
func (r tickets) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r tickets) Update(_ context.Context, id string, patch domain.TicketPatch) error {
	return r.v.do(func(st *state) error {
		row, ok := st.tickets[id]
		if !ok {
			return domain.ErrNotFound
		}
		if patch.AssignedToID.Set && patch.AssignedToID.Value != nil {
			if _, ok := st.users[*patch.AssignedToID.Value]; !ok {
				return domain.ErrNotFound
			}
		}
		patch.Tags = nil
		patch.Apply(&row.ticket)
		row.ticket.UpdatedAt = r.v.now()
		return nil
	})
}

func (r tickets) ReplaceTags(_ context.Context, ticketID string, tagIDs []string) error {
	return r.v.do(func(st *state) error {
		row, ok := st.tickets[ticketID]
		if !ok {
			return domain.ErrNotFound
		}
		next := make(map[string]struct{}, len(tagIDs))
		for _, id := range tagIDs {
			if _, ok := st.tags[id]; !ok {
				return domain.ErrNotFound
			}
			next[id] = struct{}{}
		}
		row.tagIDs = next
		return nil
	})
}

func (r tickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	var (
		out   []domain.Ticket
		total int
	)
	err := r.v.do(func(st *state) error {
		var matched []domain.Ticket
		for _, id := range sortedKeys(st.tickets) {
			t := materialize(st, st.tickets[id])
			if !matches(t, filter) {
				continue
			}
			matched = append(matched, *t)
		}
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := matched[i].UpdatedAt, matched[j].UpdatedAt
			if filter.SortBy == repository.SortByCreatedAt {
				a, b = matched[i].CreatedAt, matched[j].CreatedAt
			}
			if a.Equal(b) {
				if filter.SortAsc {
					return matched[i].ID < matched[j].ID
				}
				return matched[i].ID > matched[j].ID
			}
			if filter.SortAsc {
				return a.Before(b)
			}
			return a.After(b)
		})
		total = len(matched)
		limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
		if offset >= len(matched) {
			return nil
		}
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		out = matched[offset:end]
		return nil
	})
	return out, total, err
}

func matches(t *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CreatedByID != nil && t.CreatedByID != *filter.CreatedByID {
		return false
	}
	if filter.AssignedToID != nil && !t.IsAssignedTo(*filter.AssignedToID) {
		return false
	}
	if filter.Status != nil && t.Status != *filter.Status {
		return false
	}
	if filter.Priority != nil && t.Priority != *filter.Priority {
		return false
	}
	if q := strings.TrimSpace(filter.Query); q != "" && !containsFold(t.Title, q) && !containsFold(t.Description, q) {
		return false
	}
	if filter.Tag != "" {
		found := false
		for _, name := range t.Tags {
			if name == filter.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func materialize(st *state, row *ticketRow) *domain.Ticket {
	t := row.ticket
	if t.AssignedToID != nil {
		id := *t.AssignedToID
		t.AssignedToID = &id
		t.AssignedTo = userRef(st, id)
	}
	t.CreatedBy = userRef(st, t.CreatedByID)
	t.Tags = make([]string, 0, len(row.tagIDs))
	for id := range row.tagIDs {
		t.Tags = append(t.Tags, st.tags[id].Name)
	}
	sort.Strings(t.Tags)
	t.CommentsCount = 0
	for _, c := range st.comments {
		if c.TicketID == t.ID {
			t.CommentsCount++
		}
	}
	return &t
}

type tags struct{ v *view }

func (r tags) Create(_ context.Context, tag *domain.Tag) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.tags {
			if existing.Name == tag.Name {
				return &domain.ConflictError{Constraint: "tags_name_key"}
			}
		}
		tag.ID = newID()
		tag.CreatedAt = r.v.now()
		st.tags[tag.ID] = *tag
		return nil
	})
}

func (r tags) GetOrCreate(_ context.Context, name string) (*domain.Tag, error) {
	var out *domain.Tag
	err := r.v.do(func(st *state) error {
		for _, existing := range st.tags {
			if existing.Name == name {
				existing := existing
				out = &existing
				return nil
			}
		}
		tag := domain.Tag{ID: newID(), Name: name, CreatedAt: r.v.now()}
		st.tags[tag.ID] = tag
		out = &tag
		return nil
	})
	return out, err
}

func (r tags) List(_ context.Context) ([]domain.Tag, error) {
	var out []domain.Tag
	err := r.v.do(func(st *state) error {
		for _, t := range st.tags {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

type comments struct{ v *view }

func (r comments) Create(_ context.Context, comment *domain.Comment) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.tickets[comment.TicketID]; !ok {
			return domain.ErrNotFound
		}
		comment.ID = newID()
		comment.CreatedAt = r.v.now()
		stored := *comment
		stored.Author = nil
		st.comments = append(st.comments, stored)
		return nil
	})
}

func (r comments) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := r.v.do(func(st *state) error {
		for _, c := range st.comments {
			if c.TicketID != ticketID {
				continue
			}
			c.Author = userRef(st, c.AuthorID)
			out = append(out, c)
		}
		return nil
	})
	return out, err
}

type auditLogs struct{ v *view }

func (r auditLogs) Create(_ context.Context, entry *domain.AuditLogEntry) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.users[entry.ActorID]; !ok {
			return domain.ErrNotFound
		}
		entry.ID = newID()
		entry.CreatedAt = r.v.now()
		stored := *entry
		stored.MetaJSON = append([]byte{}, entry.MetaJSON...)
		stored.Actor = nil
		st.audit = append(st.audit, stored)
		return nil
	})
}

// ListByTicket walks the log backwards so entries come out newest first even
// when timestamps tie.
func (r auditLogs) ListByTicket(_ context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	err := r.v.do(func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			e := st.audit[i]
			if e.TicketID == nil || *e.TicketID != ticketID {
				continue
			}
			e.Actor = userRef(st, e.ActorID)
			out = append(out, e)
		}
		return nil
	})
	return out, err
}
