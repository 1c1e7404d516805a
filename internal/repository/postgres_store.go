package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const pgUniqueViolation = "23505"

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewPostgresStore returns a Store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, db: pool}
}

func (s *postgresStore) Users() UserRepository         { return &userRepository{db: s.db} }
func (s *postgresStore) Sessions() SessionRepository   { return &sessionRepository{db: s.db} }
func (s *postgresStore) Tickets() TicketRepository     { return &ticketRepository{db: s.db} }
func (s *postgresStore) Tags() TagRepository           { return &tagRepository{db: s.db} }
func (s *postgresStore) Comments() CommentRepository   { return &commentRepository{db: s.db} }
func (s *postgresStore) AuditLogs() AuditLogRepository { return &auditLogRepository{db: s.db} }

func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&postgresStore{pool: s.pool, db: tx, inTx: true})
	})
}

// translateError maps driver errors onto the domain sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &domain.ConflictError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}

func userRef(id string, email, name, role *string) *domain.UserRef {
	if email == nil {
		return nil
	}
	ref := &domain.UserRef{ID: id, Email: *email}
	if name != nil {
		ref.Name = *name
	}
	if role != nil {
		ref.Role = domain.Role(*role)
	}
	return ref
}
