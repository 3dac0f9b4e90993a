// Package terms resolves classification labels to term ids, creating missing
// terms at most once per run.
package terms

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/slug"
)

// Store is the term sub-contract of the record store.
type Store interface {
	// FindByNames returns the terms of taxonomy named in names, ordered by id.
	FindByNames(ctx context.Context, taxonomy string, names []string) ([]domain.Term, error)
	// Create inserts a term and returns its id. A term that already exists
	// yields domain.ErrConflict.
	Create(ctx context.Context, term domain.Term) (int64, error)
}

type entry struct {
	id  int64
	err error
}

// Resolver caches every outcome, failures included, for the life of a run.
// It is not safe for concurrent use.
type Resolver struct {
	store  Store
	logger *zap.Logger
	cache  map[domain.TermRef]entry
}

func NewResolver(store Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger, cache: map[domain.TermRef]entry{}}
}

// Resolve returns ids for refs. Pairs that fail are left out of the map; each
// failure is reported once, on the call that first hit it.
func (r *Resolver) Resolve(ctx context.Context, refs []domain.TermRef) (map[domain.TermRef]int64, []error) {
	out := make(map[domain.TermRef]int64, len(refs))
	byTaxonomy := map[string][]string{}
	var (
		errs  []error
		order []string
	)
	for _, ref := range refs {
		if e, ok := r.cache[ref]; ok {
			if e.err == nil {
				out[ref] = e.id
			}
			continue
		}
		if _, ok := byTaxonomy[ref.Taxonomy]; !ok {
			order = append(order, ref.Taxonomy)
		}
		byTaxonomy[ref.Taxonomy] = appendUnique(byTaxonomy[ref.Taxonomy], ref.Name)
	}

	for _, taxonomy := range order {
		names := byTaxonomy[taxonomy]
		found, err := r.lookup(ctx, taxonomy, names)
		if err != nil {
			for _, name := range names {
				errs = append(errs, r.fail(domain.TermRef{Taxonomy: taxonomy, Name: name}, err))
			}
			continue
		}
		for _, name := range names {
			ref := domain.TermRef{Taxonomy: taxonomy, Name: name}
			id, ok := found[name]
			if !ok {
				id, err = r.create(ctx, ref)
				if err != nil {
					errs = append(errs, r.fail(ref, err))
					continue
				}
			}
			r.cache[ref] = entry{id: id}
			out[ref] = id
		}
	}
	return out, errs
}

func (r *Resolver) lookup(ctx context.Context, taxonomy string, names []string) (map[string]int64, error) {
	terms, err := r.store.FindByNames(ctx, taxonomy, names)
	if err != nil {
		return nil, fmt.Errorf("find %s terms: %w", taxonomy, err)
	}
	found := make(map[string]int64, len(terms))
	for _, t := range terms {
		if first, dup := found[t.Name]; dup {
			r.logger.Warn("ambiguous term, using lowest id",
				zap.String("taxonomy", taxonomy),
				zap.String("name", t.Name),
				zap.Int64("used", first),
				zap.Int64("ignored", t.ID),
			)
			continue
		}
		found[t.Name] = t.ID
	}
	return found, nil
}

func (r *Resolver) create(ctx context.Context, ref domain.TermRef) (int64, error) {
	id, err := r.store.Create(ctx, domain.Term{
		Name:     ref.Name,
		Slug:     slug.Make(ref.Name),
		Taxonomy: ref.Taxonomy,
	})
	if err == nil {
		r.logger.Debug("term created", zap.String("taxonomy", ref.Taxonomy), zap.String("name", ref.Name), zap.Int64("id", id))
		return id, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return 0, err
	}
	// Created concurrently by someone else.
	found, err := r.lookup(ctx, ref.Taxonomy, []string{ref.Name})
	if err != nil {
		return 0, err
	}
	if id, ok := found[ref.Name]; ok {
		return id, nil
	}
	return 0, errors.New("term reported as existing but not found")
}

func (r *Resolver) fail(ref domain.TermRef, err error) error {
	terr := &domain.TermResolutionError{Ref: ref, Err: err}
	r.cache[ref] = entry{err: terr}
	return terr
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
