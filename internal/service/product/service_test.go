package product

import (
	"context"
	"errors"
	"testing"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/importer"
)

type stubRepo struct {
	product *domain.Product
	err     error
	lastSKU string
	calls   int
}

func (s *stubRepo) CountProducts(context.Context) (int64, error) { return 0, nil }

func (s *stubRepo) ScanSKUs(context.Context, func(string, int64) error) error { return nil }

func (s *stubRepo) FindIDsBySKUs(context.Context, []string) (map[string]int64, error) {
	return nil, nil
}

func (s *stubRepo) BeginBatch(context.Context) (importer.BatchTx, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRepo) FindBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.calls++
	s.lastSKU = sku
	return s.product, s.err
}

func TestGet_TrimsKey(t *testing.T) {
	repo := &stubRepo{product: &domain.Product{ID: 1, SKU: "A1"}}
	svc := New(repo)

	p, err := svc.Get(context.Background(), "  A1 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 1 || repo.lastSKU != "A1" {
		t.Fatalf("expected lookup of A1, got %q (id %d)", repo.lastSKU, p.ID)
	}
}

func TestGet_EmptyKey(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo)

	_, err := svc.Get(context.Background(), "   ")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("expected no repository call, got %d", repo.calls)
	}
}
