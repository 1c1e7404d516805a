package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type ticketRepository struct {
	db DBTX
}

const ticketSelect = `
        SELECT t.id, t.title, t.description, t.status, t.priority, t.created_by_id, t.assigned_to_id,
               t.created_at, t.updated_at,
               cb.email, cb.name, cb.role,
               a.email, a.name, a.role,
               COALESCE((SELECT array_agg(g.name ORDER BY g.name)
                         FROM ticket_tags tt JOIN tags g ON g.id = tt.tag_id
                         WHERE tt.ticket_id = t.id), '{}') AS tags,
               (SELECT COUNT(*) FROM comments c WHERE c.ticket_id = t.id) AS comments_count
        FROM tickets t
        JOIN users cb ON cb.id = t.created_by_id
        LEFT JOIN users a ON a.id = t.assigned_to_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, created_by_id, assigned_to_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedByID,
		ticket.AssignedToID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translateError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id))
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, ticketSelect+` WHERE t.id=$1 FOR UPDATE OF t`, id))
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.AssignedToID.Set {
		add("assigned_to_id", patch.AssignedToID.Value)
	}
	sets = append(sets, "updated_at=NOW()")

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) ReplaceTags(ctx context.Context, ticketID string, tagIDs []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ticket_tags WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO ticket_tags (ticket_id, tag_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			ticketID, tagID,
		); err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedByID != nil {
		args = append(args, *filter.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("t.created_by_id=$%d", len(args)))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, likePattern(q))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(t.title ILIKE %s OR t.description ILIKE %s)", placeholder, placeholder))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ticket_tags ft JOIN tags fg ON fg.id = ft.tag_id WHERE ft.ticket_id = t.id AND fg.name=$%d)",
			len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column := "t.updated_at"
	if filter.SortBy == SortByCreatedAt {
		column = "t.created_at"
	}
	direction := "DESC"
	if filter.SortAsc {
		direction = "ASC"
	}
	limit, offset := NormalizePage(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s %s, t.id %s LIMIT %d OFFSET %d`,
		ticketSelect, where, column, direction, direction, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                      domain.Ticket
		creatorEmail, creatorName   *string
		creatorRole                 *string
		assigneeEmail, assigneeName *string
		assigneeRole                *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedByID,
		&ticket.AssignedToID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&creatorEmail,
		&creatorName,
		&creatorRole,
		&assigneeEmail,
		&assigneeName,
		&assigneeRole,
		&ticket.Tags,
		&ticket.CommentsCount,
	); err != nil {
		return nil, translateError(err)
	}
	ticket.CreatedBy = userRef(ticket.CreatedByID, creatorEmail, creatorName, creatorRole)
	if ticket.AssignedToID != nil {
		ticket.AssignedTo = userRef(*ticket.AssignedToID, assigneeEmail, assigneeName, assigneeRole)
	}
	return &ticket, nil
}
