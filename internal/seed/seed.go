// Package seed loads demo catalog data for manual testing.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/slug"
)

type productSeed struct {
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	Category    string
	Brand       string
}

var demoProducts = []productSeed{
	{
		SKU:         "SKU-DEMO-TSHIRT",
		Name:        "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		PriceCents:  1999,
		Stock:       25,
		Category:    "Apparel",
		Brand:       "Demo Goods",
	},
	{
		SKU:         "SKU-DEMO-MUG",
		Name:        "Demo Mug",
		Description: "Ceramic mug with demo logo",
		PriceCents:  1299,
		Stock:       0,
		Category:    "Kitchen",
		Brand:       "Demo Goods",
	},
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	for _, p := range demoProducts {
		productID, err := upsertProduct(ctx, pool, p)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
		for _, ref := range []domain.TermRef{
			{Taxonomy: domain.TaxonomyCategory, Name: p.Category},
			{Taxonomy: domain.TaxonomyBrand, Name: p.Brand},
		} {
			termID, err := ensureTerm(ctx, pool, ref)
			if err != nil {
				return fmt.Errorf("ensure term %s/%s: %w", ref.Taxonomy, ref.Name, err)
			}
			if err := linkTerm(ctx, pool, productID, termID); err != nil {
				return fmt.Errorf("link %s to %s: %w", p.SKU, ref.Name, err)
			}
		}
	}
	return nil
}

func ensureTerm(ctx context.Context, pool *pgxpool.Pool, ref domain.TermRef) (int64, error) {
	const q = `
INSERT INTO terms (taxonomy, name, slug)
VALUES ($1, $2, $3)
ON CONFLICT (taxonomy, name) DO UPDATE SET slug = EXCLUDED.slug
RETURNING id
`
	var id int64
	if err := pool.QueryRow(ctx, q, ref.Taxonomy, ref.Name, slug.Make(ref.Name)).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) (int64, error) {
	const q = `
INSERT INTO products (sku, name, slug, description, price_cents, stock_quantity, manage_stock, stock_status)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    slug = EXCLUDED.slug,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    stock_quantity = EXCLUDED.stock_quantity,
    stock_status = EXCLUDED.stock_status,
    updated_at = now()
RETURNING id
`
	var id int64
	err := pool.QueryRow(ctx, q, p.SKU, p.Name, slug.Make(p.Name), p.Description, p.PriceCents, p.Stock,
		string(domain.StockStatusFor(p.Stock))).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func linkTerm(ctx context.Context, pool *pgxpool.Pool, productID, termID int64) error {
	const q = `
INSERT INTO product_terms (product_id, term_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`
	_, err := pool.Exec(ctx, q, productID, termID)
	return err
}

var (
	demoCategories = []string{"Apparel", "Kitchen", "Garden", "Tools", "Toys"}
	demoBrands     = []string{"Demo Goods", "Acme", "Northwind"}
)

// WriteCSV writes a deterministic demo feed of rows data rows. Every
// seventh row carries a price with a decimal comma and every eleventh row
// an empty stock cell.
func WriteCSV(w io.Writer, rows int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sku", "name", "description", "price", "stock_quantity", "category", "brand"}); err != nil {
		return err
	}
	for i := 1; i <= rows; i++ {
		cents := int64(199 + (i*37)%9800)
		price := fmt.Sprintf("%d.%02d", cents/100, cents%100)
		if i%7 == 0 {
			price = fmt.Sprintf("%d,%02d", cents/100, cents%100)
		}
		stock := strconv.Itoa((i * 13) % 50)
		if i%11 == 0 {
			stock = ""
		}
		category := demoCategories[i%len(demoCategories)]
		if i%4 == 0 {
			category += "|" + demoCategories[(i+1)%len(demoCategories)]
		}
		record := []string{
			fmt.Sprintf("SKU-SEED-%06d", i),
			fmt.Sprintf("Seed Product %d", i),
			"Generated demo product",
			price,
			stock,
			category,
			demoBrands[i%len(demoBrands)],
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
