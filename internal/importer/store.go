package importer

import (
	"context"

	"catalog-importer/internal/domain"
)

// Store is the keyed record store the engine reconciles against.
type Store interface {
	CountProducts(ctx context.Context) (int64, error)
	// ScanSKUs streams every (sku, id) pair without materializing the set.
	ScanSKUs(ctx context.Context, fn func(sku string, id int64) error) error
	FindIDsBySKUs(ctx context.Context, skus []string) (map[string]int64, error)
	BeginBatch(ctx context.Context) (BatchTx, error)
}

// BatchTx is one batch transaction. Nothing is visible until Commit.
type BatchTx interface {
	// CreateProducts inserts products and returns their ids in input order.
	CreateProducts(ctx context.Context, products []domain.Product) ([]int64, error)
	UpdateProducts(ctx context.Context, products []domain.Product) error
	// ReplaceTerms drops the links of productIDs within taxonomies, except
	// the scopes in keep, and inserts links. Links already present are left
	// as they are.
	ReplaceTerms(ctx context.Context, productIDs []int64, taxonomies []string, keep []domain.TermScope, links []domain.TermLink) error
	ReplaceMedia(ctx context.Context, productIDs []int64, links []domain.MediaLink) error
	UpsertLookup(ctx context.Context, products []domain.Product) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TermResolver maps (taxonomy, name) pairs to term ids, creating missing
// terms. Failed pairs are absent from the map and reported in errs.
type TermResolver interface {
	Resolve(ctx context.Context, refs []domain.TermRef) (map[domain.TermRef]int64, []error)
}

// MediaResolver maps source URLs to media asset ids.
type MediaResolver interface {
	Resolve(ctx context.Context, urls []string) (map[string]int64, []error)
}

// Checkpointer persists the number of data rows fully processed.
type Checkpointer interface {
	Load(ctx context.Context) (int64, bool, error)
	Save(ctx context.Context, offset int64) error
	Clear(ctx context.Context) error
}
