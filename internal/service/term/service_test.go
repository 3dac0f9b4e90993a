package term

import (
	"context"
	"errors"
	"testing"

	"catalog-importer/internal/domain"
)

type stubRepo struct {
	terms        []domain.Term
	lastTaxonomy string
}

func (s *stubRepo) FindByNames(context.Context, string, []string) ([]domain.Term, error) {
	return nil, nil
}

func (s *stubRepo) Create(context.Context, domain.Term) (int64, error) { return 0, nil }

func (s *stubRepo) ListByTaxonomy(_ context.Context, taxonomy string) ([]domain.Term, error) {
	s.lastTaxonomy = taxonomy
	return s.terms, nil
}

func TestList_ManagedTaxonomy(t *testing.T) {
	repo := &stubRepo{terms: []domain.Term{{ID: 1, Name: "Tools", Taxonomy: "category"}}}
	svc := New(repo, []string{"category", "brand"})

	got, err := svc.List(context.Background(), "category")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || repo.lastTaxonomy != "category" {
		t.Fatalf("expected one category term, got %+v", got)
	}
}

func TestList_UnmanagedTaxonomy(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, []string{"category"})

	_, err := svc.List(context.Background(), "color")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if repo.lastTaxonomy != "" {
		t.Fatalf("expected no repository call")
	}
}
