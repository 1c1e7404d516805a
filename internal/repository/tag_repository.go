package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type tagRepository struct {
	db DBTX
}

func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	const query = `
        INSERT INTO tags (name) VALUES ($1)
        RETURNING id, created_at`
	return translateError(r.db.QueryRow(ctx, query, tag.Name).Scan(&tag.ID, &tag.CreatedAt))
}

// GetOrCreate resolves name by exact match, inserting it when missing. The
// no-op update lets RETURNING yield the existing row on conflict.
func (r *tagRepository) GetOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	const query = `
        INSERT INTO tags (name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name, created_at`
	var tag domain.Tag
	if err := r.db.QueryRow(ctx, query, name).Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &tag, nil
}

func (r *tagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	return result, rows.Err()
}
