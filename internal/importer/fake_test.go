package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"catalog-importer/internal/domain"
)

// memStore is an in-memory Store whose batch transactions only become
// visible on Commit.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	products map[string]domain.Product
	terms    map[int64]map[int64]string // product -> term -> taxonomy
	media    map[int64][]domain.MediaLink
	lookup   map[int64]domain.Product

	termTaxonomy map[int64]string
	// failCreate makes CreateProducts fail for a batch containing this SKU.
	failCreate string
	// failMediaAt and failLookupAt fail the nth ReplaceMedia or UpsertLookup
	// call, counting from 1.
	failMediaAt  int
	failLookupAt int
	mediaCalls   int
	lookupCalls  int
	finds        int
	commits      int
}

func newMemStore() *memStore {
	return &memStore{
		products:     map[string]domain.Product{},
		terms:        map[int64]map[int64]string{},
		media:        map[int64][]domain.MediaLink{},
		lookup:       map[int64]domain.Product{},
		termTaxonomy: map[int64]string{},
	}
}

func (s *memStore) seed(products ...domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.nextID++
		p.ID = s.nextID
		s.products[p.SKU] = p
	}
}

func (s *memStore) get(sku string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[sku]
	return p, ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

func (s *memStore) termIDs(productID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id := range s.terms[productID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *memStore) CountProducts(context.Context) (int64, error) {
	return int64(s.count()), nil
}

func (s *memStore) ScanSKUs(_ context.Context, fn func(string, int64) error) error {
	s.mu.Lock()
	snapshot := make(map[string]int64, len(s.products))
	for sku, p := range s.products {
		snapshot[sku] = p.ID
	}
	s.mu.Unlock()
	for sku, id := range snapshot {
		if err := fn(sku, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) FindIDsBySKUs(_ context.Context, skus []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	out := make(map[string]int64, len(skus))
	for _, sku := range skus {
		if p, ok := s.products[sku]; ok {
			out[sku] = p.ID
		}
	}
	return out, nil
}

func (s *memStore) BeginBatch(context.Context) (BatchTx, error) {
	return &memTx{store: s}, nil
}

type memTx struct {
	store *memStore
	ops   []func()
	done  bool
}

func (t *memTx) CreateProducts(_ context.Context, products []domain.Product) ([]int64, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, len(products))
	for i, p := range products {
		if s.failCreate != "" && p.SKU == s.failCreate {
			return nil, fmt.Errorf("constraint violation on %s", p.SKU)
		}
		if _, exists := s.products[p.SKU]; exists {
			return nil, fmt.Errorf("duplicate sku %s: %w", p.SKU, domain.ErrConflict)
		}
		s.nextID++
		ids[i] = s.nextID
	}
	for i := range products {
		p := products[i]
		p.ID = ids[i]
		t.ops = append(t.ops, func() { s.products[p.SKU] = p })
	}
	return ids, nil
}

func (t *memTx) UpdateProducts(_ context.Context, products []domain.Product) error {
	s := t.store
	for _, p := range products {
		p := p
		t.ops = append(t.ops, func() {
			cur := s.products[p.SKU]
			p.CreatedAt = cur.CreatedAt
			s.products[p.SKU] = p
		})
	}
	return nil
}

func (t *memTx) ReplaceTerms(_ context.Context, productIDs []int64, taxonomies []string, keep []domain.TermScope, links []domain.TermLink) error {
	s := t.store
	managed := map[string]bool{}
	for _, tax := range taxonomies {
		managed[tax] = true
	}
	kept := map[domain.TermScope]bool{}
	for _, k := range keep {
		kept[k] = true
	}
	t.ops = append(t.ops, func() {
		for _, id := range productIDs {
			for termID, tax := range s.terms[id] {
				if managed[tax] && !kept[domain.TermScope{ProductID: id, Taxonomy: tax}] {
					delete(s.terms[id], termID)
				}
			}
		}
		for _, l := range links {
			if s.terms[l.ProductID] == nil {
				s.terms[l.ProductID] = map[int64]string{}
			}
			s.terms[l.ProductID][l.TermID] = s.termTaxonomy[l.TermID]
		}
	})
	return nil
}

func (t *memTx) ReplaceMedia(_ context.Context, productIDs []int64, links []domain.MediaLink) error {
	s := t.store
	s.mu.Lock()
	s.mediaCalls++
	fail := s.mediaCalls == s.failMediaAt
	s.mu.Unlock()
	if fail {
		return errors.New("media link constraint violation")
	}
	t.ops = append(t.ops, func() {
		for _, id := range productIDs {
			delete(s.media, id)
		}
		for _, l := range links {
			s.media[l.ProductID] = append(s.media[l.ProductID], l)
		}
	})
	return nil
}

func (t *memTx) UpsertLookup(_ context.Context, products []domain.Product) error {
	s := t.store
	s.mu.Lock()
	s.lookupCalls++
	fail := s.lookupCalls == s.failLookupAt
	s.mu.Unlock()
	if fail {
		return errors.New("lookup table locked")
	}
	for _, p := range products {
		p := p
		t.ops = append(t.ops, func() { s.lookup[p.ID] = p })
	}
	return nil
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return errors.New("tx closed")
	}
	t.done = true
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range t.ops {
		op()
	}
	s.commits++
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	t.done = true
	t.ops = nil
	return nil
}

// fakeTerms assigns ids to term refs and counts creations.
type fakeTerms struct {
	store   *memStore
	ids     map[domain.TermRef]int64
	next    int64
	creates int
	fail    map[string]bool
}

func newFakeTerms(store *memStore) *fakeTerms {
	return &fakeTerms{store: store, ids: map[domain.TermRef]int64{}, next: 1000, fail: map[string]bool{}}
}

func (f *fakeTerms) Resolve(_ context.Context, refs []domain.TermRef) (map[domain.TermRef]int64, []error) {
	out := map[domain.TermRef]int64{}
	var errs []error
	for _, ref := range refs {
		if f.fail[ref.Name] {
			errs = append(errs, &domain.TermResolutionError{Ref: ref, Err: errors.New("denied")})
			continue
		}
		id, ok := f.ids[ref]
		if !ok {
			f.next++
			id = f.next
			f.ids[ref] = id
			f.creates++
			f.store.mu.Lock()
			f.store.termTaxonomy[id] = ref.Taxonomy
			f.store.mu.Unlock()
		}
		out[ref] = id
	}
	return out, errs
}

// fakeMedia resolves every URL except those listed in fail.
type fakeMedia struct {
	ids       map[string]int64
	next      int64
	calls     int
	fail      map[string]bool
	requested [][]string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{ids: map[string]int64{}, next: 5000, fail: map[string]bool{}}
}

func (f *fakeMedia) Resolve(_ context.Context, urls []string) (map[string]int64, []error) {
	f.requested = append(f.requested, urls)
	out := map[string]int64{}
	var errs []error
	for _, u := range urls {
		if f.fail[u] {
			errs = append(errs, &domain.MediaResolutionError{URL: u, Err: errors.New("404")})
			continue
		}
		id, ok := f.ids[u]
		if !ok {
			f.calls++
			f.next++
			id = f.next
			f.ids[u] = id
		}
		out[u] = id
	}
	return out, errs
}

// memCheckpoints records every saved offset.
type memCheckpoints struct {
	offset  int64
	set     bool
	saves   []int64
	cleared bool
	failAt  int64
	onSave  func(offset int64)
}

func (c *memCheckpoints) Load(context.Context) (int64, bool, error) {
	return c.offset, c.set, nil
}

func (c *memCheckpoints) Save(_ context.Context, offset int64) error {
	if c.failAt != 0 && offset >= c.failAt {
		return errors.New("disk full")
	}
	c.offset, c.set = offset, true
	c.saves = append(c.saves, offset)
	if c.onSave != nil {
		c.onSave(offset)
	}
	return nil
}

func (c *memCheckpoints) Clear(context.Context) error {
	c.offset, c.set, c.cleared = 0, false, true
	return nil
}
