package product

import (
	"context"
	"strings"

	"catalog-importer/internal/domain"
	productrepo "catalog-importer/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the product stored under sku. Keys are matched exactly after
// trimming, the same way the importer stores them.
func (s *Service) Get(ctx context.Context, sku string) (*domain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindBySKU(ctx, sku)
}
