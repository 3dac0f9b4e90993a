package term

import (
	"context"
	"slices"

	"catalog-importer/internal/domain"
	termrepo "catalog-importer/internal/repository/term"
)

type Service struct {
	repo       termrepo.Repository
	taxonomies []string
}

// New returns a Service exposing the managed taxonomies only.
func New(repo termrepo.Repository, taxonomies []string) *Service {
	return &Service{repo: repo, taxonomies: taxonomies}
}

func (s *Service) List(ctx context.Context, taxonomy string) ([]domain.Term, error) {
	if !slices.Contains(s.taxonomies, taxonomy) {
		return nil, domain.ErrNotFound
	}
	return s.repo.ListByTaxonomy(ctx, taxonomy)
}
