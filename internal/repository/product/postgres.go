package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/importer"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (r *postgresRepo) ScanSKUs(ctx context.Context, fn func(sku string, id int64) error) error {
	rows, err := r.pool.Query(ctx, `SELECT sku, id FROM products`)
	if err != nil {
		return fmt.Errorf("scan skus: %w", err)
	}
	defer rows.Close()

	var (
		sku string
		id  int64
		n   int
	)
	for rows.Next() {
		if err := rows.Scan(&sku, &id); err != nil {
			return err
		}
		if err := fn(sku, id); err != nil {
			return err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan skus: %w", err)
	}
	r.logger.Debug("product repo: scanned skus", zap.Int("count", n))
	return nil
}

func (r *postgresRepo) FindIDsBySKUs(ctx context.Context, skus []string) (map[string]int64, error) {
	out := make(map[string]int64, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT sku, id FROM products WHERE sku = ANY($1)`, skus)
	if err != nil {
		return nil, fmt.Errorf("find ids by sku: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sku string
			id  int64
		)
		if err := rows.Scan(&sku, &id); err != nil {
			return nil, err
		}
		out[sku] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find ids by sku: %w", err)
	}
	return out, nil
}

func (r *postgresRepo) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	const q = `
SELECT id, sku, name, slug, description, short_description, price_cents, sale_price_cents,
       stock_quantity, manage_stock, stock_status, attributes, created_at, updated_at
FROM products
WHERE sku = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, sku).Scan(
		&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.ShortDescription, &p.PriceCents, &p.SalePriceCents,
		&p.StockQuantity, &p.ManageStock, &p.StockStatus, &p.Attributes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("product repo: get by sku", zap.String("sku", sku), zap.Error(err))
		return nil, err
	}

	terms, err := r.pool.Query(ctx, `
SELECT t.taxonomy, t.name
FROM product_terms pt
JOIN terms t ON t.id = pt.term_id
WHERE pt.product_id = $1
ORDER BY t.taxonomy, t.name
`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load terms: %w", err)
	}
	p.Terms, err = pgx.CollectRows(terms, func(row pgx.CollectableRow) (domain.TermRef, error) {
		var ref domain.TermRef
		err := row.Scan(&ref.Taxonomy, &ref.Name)
		return ref, err
	})
	if err != nil {
		return nil, fmt.Errorf("load terms: %w", err)
	}

	media, err := r.pool.Query(ctx, `SELECT media_id FROM product_media WHERE product_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}
	p.MediaIDs, err = pgx.CollectRows(media, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}
	return &p, nil
}

func (r *postgresRepo) BeginBatch(ctx context.Context) (importer.BatchTx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &batchTx{tx: tx, logger: r.logger}, nil
}
