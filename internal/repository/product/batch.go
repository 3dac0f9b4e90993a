package product

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"catalog-importer/internal/domain"
)

// batchTx implements importer.BatchTx on one pgx transaction.
type batchTx struct {
	tx     pgx.Tx
	logger *zap.Logger
}

func (b *batchTx) CreateProducts(ctx context.Context, products []domain.Product) ([]int64, error) {
	const q = `
INSERT INTO products (sku, name, slug, description, short_description, price_cents, sale_price_cents,
    stock_quantity, manage_stock, stock_status, attributes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::text::jsonb)
RETURNING id
`
	batch := &pgx.Batch{}
	for _, p := range products {
		attrs, err := attributesJSON(p.Attributes)
		if err != nil {
			return nil, fmt.Errorf("encode attributes for sku %q: %w", p.SKU, err)
		}
		batch.Queue(q, p.SKU, p.Name, p.Slug, p.Description, p.ShortDescription, p.PriceCents, p.SalePriceCents,
			int32(p.StockQuantity), p.ManageStock, string(p.StockStatus), attrs)
	}
	br := b.tx.SendBatch(ctx, batch)
	ids := make([]int64, len(products))
	for i := range products {
		if err := br.QueryRow().Scan(&ids[i]); err != nil {
			br.Close()
			return nil, fmt.Errorf("insert sku %q: %w", products[i].SKU, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}
	b.logger.Debug("product repo: inserted", zap.Int("count", len(ids)))
	return ids, nil
}

func (b *batchTx) UpdateProducts(ctx context.Context, products []domain.Product) error {
	const q = `
UPDATE products AS p
SET name = u.name,
    slug = u.slug,
    description = u.description,
    short_description = u.short_description,
    price_cents = u.price_cents,
    sale_price_cents = u.sale_price_cents,
    stock_quantity = u.stock_quantity,
    manage_stock = u.manage_stock,
    stock_status = u.stock_status,
    attributes = u.attributes::jsonb,
    updated_at = now()
FROM unnest($1::bigint[], $2::text[], $3::text[], $4::text[], $5::text[], $6::bigint[], $7::bigint[],
            $8::int[], $9::bool[], $10::text[], $11::text[])
    AS u(id, name, slug, description, short_description, price_cents, sale_price_cents,
         stock_quantity, manage_stock, stock_status, attributes)
WHERE p.id = u.id
`
	n := len(products)
	var (
		ids    = make([]int64, n)
		names  = make([]string, n)
		slugs  = make([]string, n)
		descs  = make([]string, n)
		shorts = make([]string, n)
		prices = make([]int64, n)
		sales  = make([]int64, n)
		stock  = make([]int32, n)
		manage = make([]bool, n)
		status = make([]string, n)
		attrs  = make([]string, n)
	)
	for i, p := range products {
		a, err := attributesJSON(p.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes for sku %q: %w", p.SKU, err)
		}
		ids[i] = p.ID
		names[i] = p.Name
		slugs[i] = p.Slug
		descs[i] = p.Description
		shorts[i] = p.ShortDescription
		prices[i] = p.PriceCents
		sales[i] = p.SalePriceCents
		stock[i] = int32(p.StockQuantity)
		manage[i] = p.ManageStock
		status[i] = string(p.StockStatus)
		attrs[i] = a
	}
	tag, err := b.tx.Exec(ctx, q, ids, names, slugs, descs, shorts, prices, sales, stock, manage, status, attrs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != int64(n) {
		return fmt.Errorf("updated %d of %d products", tag.RowsAffected(), n)
	}
	return nil
}

func (b *batchTx) ReplaceTerms(ctx context.Context, productIDs []int64, taxonomies []string, keep []domain.TermScope, links []domain.TermLink) error {
	const del = `
DELETE FROM product_terms pt
USING terms t
WHERE pt.term_id = t.id
  AND pt.product_id = ANY($1)
  AND t.taxonomy = ANY($2)
  AND NOT EXISTS (
    SELECT 1 FROM unnest($3::bigint[], $4::text[]) AS k(product_id, taxonomy)
    WHERE k.product_id = pt.product_id AND k.taxonomy = t.taxonomy
  )
RETURNING pt.term_id
`
	keepIDs := make([]int64, len(keep))
	keepTax := make([]string, len(keep))
	for i, k := range keep {
		keepIDs[i] = k.ProductID
		keepTax[i] = k.Taxonomy
	}
	rows, err := b.tx.Query(ctx, del, productIDs, taxonomies, keepIDs, keepTax)
	if err != nil {
		return fmt.Errorf("delete term links: %w", err)
	}
	removed, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return fmt.Errorf("delete term links: %w", err)
	}

	switch {
	case len(links) == 0:
	case len(keep) == 0:
		_, err := b.tx.CopyFrom(ctx,
			pgx.Identifier{"product_terms"},
			[]string{"product_id", "term_id"},
			pgx.CopyFromSlice(len(links), func(i int) ([]any, error) {
				return []any{links[i].ProductID, links[i].TermID}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy term links: %w", err)
		}
	default:
		// Kept scopes may already hold some of the links.
		const ins = `
INSERT INTO product_terms (product_id, term_id)
SELECT * FROM unnest($1::bigint[], $2::bigint[])
ON CONFLICT (product_id, term_id) DO NOTHING
`
		pids := make([]int64, len(links))
		tids := make([]int64, len(links))
		for i, l := range links {
			pids[i] = l.ProductID
			tids[i] = l.TermID
		}
		if _, err := b.tx.Exec(ctx, ins, pids, tids); err != nil {
			return fmt.Errorf("insert term links: %w", err)
		}
	}

	affected := make(map[int64]struct{}, len(removed)+len(links))
	for _, id := range removed {
		affected[id] = struct{}{}
	}
	for _, l := range links {
		affected[l.TermID] = struct{}{}
	}
	if len(affected) == 0 {
		return nil
	}
	termIDs := make([]int64, 0, len(affected))
	for id := range affected {
		termIDs = append(termIDs, id)
	}
	const recount = `
UPDATE terms t
SET product_count = (SELECT count(*) FROM product_terms pt WHERE pt.term_id = t.id)
WHERE t.id = ANY($1)
`
	if _, err := b.tx.Exec(ctx, recount, termIDs); err != nil {
		return fmt.Errorf("recount terms: %w", err)
	}
	return nil
}

func (b *batchTx) ReplaceMedia(ctx context.Context, productIDs []int64, links []domain.MediaLink) error {
	if _, err := b.tx.Exec(ctx, `DELETE FROM product_media WHERE product_id = ANY($1)`, productIDs); err != nil {
		return fmt.Errorf("delete media links: %w", err)
	}
	if len(links) == 0 {
		return nil
	}
	_, err := b.tx.CopyFrom(ctx,
		pgx.Identifier{"product_media"},
		[]string{"product_id", "media_id", "position"},
		pgx.CopyFromSlice(len(links), func(i int) ([]any, error) {
			return []any{links[i].ProductID, links[i].MediaID, int32(links[i].Position)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy media links: %w", err)
	}
	return nil
}

func (b *batchTx) UpsertLookup(ctx context.Context, products []domain.Product) error {
	const q = `
INSERT INTO product_lookup (product_id, min_price, max_price, stock_quantity, stock_status)
SELECT u.id, u.min_price, u.max_price, u.qty, u.status
FROM unnest($1::bigint[], $2::bigint[], $3::bigint[], $4::int[], $5::text[])
    AS u(id, min_price, max_price, qty, status)
ON CONFLICT (product_id) DO UPDATE
SET min_price = EXCLUDED.min_price,
    max_price = EXCLUDED.max_price,
    stock_quantity = EXCLUDED.stock_quantity,
    stock_status = EXCLUDED.stock_status
`
	n := len(products)
	ids := make([]int64, n)
	minPrice := make([]int64, n)
	maxPrice := make([]int64, n)
	qty := make([]int32, n)
	status := make([]string, n)
	for i, p := range products {
		ids[i] = p.ID
		minPrice[i] = p.ActivePriceCents()
		maxPrice[i] = p.PriceCents
		qty[i] = int32(p.StockQuantity)
		status[i] = string(p.StockStatus)
	}
	if _, err := b.tx.Exec(ctx, q, ids, minPrice, maxPrice, qty, status); err != nil {
		return err
	}
	return nil
}

func (b *batchTx) Commit(ctx context.Context) error {
	return b.tx.Commit(ctx)
}

func (b *batchTx) Rollback(ctx context.Context) error {
	return b.tx.Rollback(ctx)
}

func attributesJSON(attrs []domain.Attribute) (string, error) {
	if len(attrs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
