// Package media resolves image URLs to stored media assets.
package media

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"catalog-importer/internal/domain"
)

// Attacher turns one source URL into a media asset id.
type Attacher interface {
	Attach(ctx context.Context, url string) (int64, error)
}

type entry struct {
	id  int64
	err error
}

// Resolver caches attach outcomes, failures included, for one run. Misses of
// a call are attached concurrently, at most Concurrency at a time.
type Resolver struct {
	attacher    Attacher
	concurrency int
	logger      *zap.Logger
	cache       map[string]entry
}

func NewResolver(attacher Attacher, concurrency int, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{
		attacher:    attacher,
		concurrency: concurrency,
		logger:      logger,
		cache:       map[string]entry{},
	}
}

// Resolve returns asset ids for urls. Failed URLs are omitted and reported
// once, on the call that first attempted them.
func (r *Resolver) Resolve(ctx context.Context, urls []string) (map[string]int64, []error) {
	out := make(map[string]int64, len(urls))
	var misses []string
	queued := map[string]bool{}
	for _, u := range urls {
		if e, ok := r.cache[u]; ok {
			if e.err == nil {
				out[u] = e.id
			}
			continue
		}
		if !queued[u] {
			queued[u] = true
			misses = append(misses, u)
		}
	}

	results := make([]entry, len(misses))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, u := range misses {
		g.Go(func() error {
			id, err := r.attacher.Attach(ctx, u)
			results[i] = entry{id: id, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, u := range misses {
		res := results[i]
		if res.err != nil {
			res.err = &domain.MediaResolutionError{URL: u, Err: res.err}
			errs = append(errs, res.err)
		} else {
			out[u] = res.id
		}
		r.cache[u] = res
	}
	return out, errs
}
