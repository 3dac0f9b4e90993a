package product

import (
	"context"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/importer"
)

// Repository is the keyed product store. It satisfies importer.Store.
type Repository interface {
	importer.Store
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
}
