package term

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalog-importer/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const termColumns = `id, name, slug, taxonomy, product_count, created_at`

func (r *postgresRepo) FindByNames(ctx context.Context, taxonomy string, names []string) ([]domain.Term, error) {
	if len(names) == 0 {
		return nil, nil
	}
	const q = `
SELECT ` + termColumns + `
FROM terms
WHERE taxonomy = $1 AND name = ANY($2)
ORDER BY id ASC
`
	rows, err := r.pool.Query(ctx, q, taxonomy, names)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *postgresRepo) ListByTaxonomy(ctx context.Context, taxonomy string) ([]domain.Term, error) {
	const q = `
SELECT ` + termColumns + `
FROM terms
WHERE taxonomy = $1
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, q, taxonomy)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// Create inserts t. An existing (taxonomy, name) pair yields domain.ErrConflict.
func (r *postgresRepo) Create(ctx context.Context, t domain.Term) (int64, error) {
	const q = `
INSERT INTO terms (taxonomy, name, slug)
VALUES ($1, $2, $3)
ON CONFLICT (taxonomy, name) DO NOTHING
RETURNING id
`
	var id int64
	err := r.pool.QueryRow(ctx, q, t.Taxonomy, t.Name, t.Slug).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("term %s/%q: %w", t.Taxonomy, t.Name, domain.ErrConflict)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func collect(rows pgx.Rows) ([]domain.Term, error) {
	defer rows.Close()
	var result []domain.Term
	for rows.Next() {
		var t domain.Term
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Taxonomy, &t.ProductCount, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
