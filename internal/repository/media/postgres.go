package media

import (
	"context"
	"errors"

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

func (r *postgresRepo) FindBySourceURL(ctx context.Context, url string) (domain.MediaAsset, error) {
	const q = `
SELECT id, source_url, location, content_type, size_bytes, created_at
FROM media_assets
WHERE source_url = $1
`
	var a domain.MediaAsset
	err := r.pool.QueryRow(ctx, q, url).Scan(&a.ID, &a.SourceURL, &a.Location, &a.ContentType, &a.Size, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MediaAsset{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MediaAsset{}, err
	}
	return a, nil
}

// Create registers a, returning the existing id when the source URL is known.
func (r *postgresRepo) Create(ctx context.Context, a domain.MediaAsset) (int64, error) {
	const q = `
INSERT INTO media_assets (source_url, location, content_type, size_bytes)
VALUES ($1, $2, $3, $4)
ON CONFLICT (source_url) DO UPDATE SET source_url = EXCLUDED.source_url
RETURNING id
`
	var id int64
	if err := r.pool.QueryRow(ctx, q, a.SourceURL, a.Location, a.ContentType, a.Size).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
