package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type auditLogRepository struct {
	db DBTX
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (action, meta_json, actor_id, ticket_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return translateError(r.db.QueryRow(ctx, query,
		entry.Action,
		string(entry.MetaJSON),
		entry.ActorID,
		entry.TicketID,
	).Scan(&entry.ID, &entry.CreatedAt))
}

func (r *auditLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	const query = `
        SELECT l.id, l.action, l.meta_json::text, l.actor_id, l.ticket_id, l.created_at, u.email, u.name, u.role
        FROM audit_logs l JOIN users u ON u.id = l.actor_id
        WHERE l.ticket_id=$1 ORDER BY l.created_at DESC, l.seq DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var (
			entry             domain.AuditLogEntry
			meta              string
			email, name, role *string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&meta,
			&entry.ActorID,
			&entry.TicketID,
			&entry.CreatedAt,
			&email,
			&name,
			&role,
		); err != nil {
			return nil, err
		}
		entry.MetaJSON = []byte(meta)
		entry.Actor = userRef(entry.ActorID, email, name, role)
		result = append(result, entry)
	}
	return result, rows.Err()
}
