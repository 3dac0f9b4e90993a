package term

import (
	"context"

	"catalog-importer/internal/domain"
)

// Repository stores classification terms. It satisfies terms.Store.
type Repository interface {
	FindByNames(ctx context.Context, taxonomy string, names []string) ([]domain.Term, error)
	Create(ctx context.Context, t domain.Term) (int64, error)
	ListByTaxonomy(ctx context.Context, taxonomy string) ([]domain.Term, error)
}
