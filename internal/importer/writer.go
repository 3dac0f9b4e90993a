package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"catalog-importer/internal/domain"
)

// WriteInput is everything one batch transaction needs.
type WriteInput struct {
	Seq       int
	Partition Partition
	TermIDs   map[domain.TermRef]int64
	MediaIDs  map[string]int64
	// Taxonomies are the managed taxonomies whose links are rewritten.
	Taxonomies []string
}

// BulkWriter applies a partitioned batch in a single transaction.
type BulkWriter struct {
	store  Store
	logger *zap.Logger
}

func NewBulkWriter(store Store, logger *zap.Logger) *BulkWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkWriter{store: store, logger: logger}
}

// Write commits the batch or rolls it back in full. On success it returns the
// ids assigned to created SKUs. Any failure is a *BatchTransactionError.
func (w *BulkWriter) Write(ctx context.Context, in WriteInput) (map[string]int64, error) {
	rows := len(in.Partition.Create) + len(in.Partition.Update)
	fail := func(err error) error {
		return &BatchTransactionError{Seq: in.Seq, Rows: rows, Err: err}
	}

	tx, err := w.store.BeginBatch(ctx)
	if err != nil {
		return nil, fail(fmt.Errorf("begin: %w", err))
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			w.logger.Warn("rollback failed", zap.Int("batch", in.Seq), zap.Error(rbErr))
		}
	}()

	creates := make([]domain.Product, len(in.Partition.Create))
	for i, r := range in.Partition.Create {
		creates[i] = r.Product
	}
	updates := make([]domain.Product, len(in.Partition.Update))
	for i, r := range in.Partition.Update {
		updates[i] = r.Product
	}

	created := make(map[string]int64, len(creates))
	if len(creates) > 0 {
		ids, err := tx.CreateProducts(ctx, creates)
		if err != nil {
			return nil, fail(fmt.Errorf("create products: %w", err))
		}
		if len(ids) != len(creates) {
			return nil, fail(fmt.Errorf("create products: got %d ids for %d rows", len(ids), len(creates)))
		}
		for i := range creates {
			creates[i].ID = ids[i]
			created[creates[i].SKU] = ids[i]
		}
	}
	if len(updates) > 0 {
		if err := tx.UpdateProducts(ctx, updates); err != nil {
			return nil, fail(fmt.Errorf("update products: %w", err))
		}
	}

	all := append(creates, updates...)
	if len(all) == 0 {
		return created, nil
	}
	productIDs := make([]int64, len(all))
	for i, p := range all {
		productIDs[i] = p.ID
	}

	if len(in.Taxonomies) > 0 {
		keep := unresolvedScopes(all, in.TermIDs)
		if err := tx.ReplaceTerms(ctx, productIDs, in.Taxonomies, keep, termLinks(all, in.TermIDs)); err != nil {
			return nil, fail(fmt.Errorf("replace terms: %w", err))
		}
	}

	mediaOwners, mediaLinks := mediaLinks(all, in.MediaIDs)
	if len(mediaOwners) > 0 {
		if err := tx.ReplaceMedia(ctx, mediaOwners, mediaLinks); err != nil {
			return nil, fail(fmt.Errorf("replace media: %w", err))
		}
	}

	if err := tx.UpsertLookup(ctx, all); err != nil {
		return nil, fail(fmt.Errorf("upsert lookup: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fail(fmt.Errorf("commit: %w", err))
	}
	committed = true
	return created, nil
}

func termLinks(products []domain.Product, ids map[domain.TermRef]int64) []domain.TermLink {
	var links []domain.TermLink
	for _, p := range products {
		seen := make(map[int64]bool, len(p.Terms))
		for _, ref := range p.Terms {
			id, ok := ids[ref]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			links = append(links, domain.TermLink{ProductID: p.ID, TermID: id})
		}
	}
	return links
}

// unresolvedScopes lists the (product, taxonomy) pairs holding a reference
// that did not resolve. Their existing links are kept.
func unresolvedScopes(products []domain.Product, ids map[domain.TermRef]int64) []domain.TermScope {
	var keep []domain.TermScope
	for _, p := range products {
		seen := map[string]bool{}
		for _, ref := range p.Terms {
			if _, ok := ids[ref]; ok || seen[ref.Taxonomy] {
				continue
			}
			seen[ref.Taxonomy] = true
			keep = append(keep, domain.TermScope{ProductID: p.ID, Taxonomy: ref.Taxonomy})
		}
	}
	return keep
}

// mediaLinks returns the products with at least one resolved image and their
// ordered links. Position 0 is the featured image.
func mediaLinks(products []domain.Product, ids map[string]int64) ([]int64, []domain.MediaLink) {
	var (
		owners []int64
		links  []domain.MediaLink
	)
	for _, p := range products {
		pos := 0
		seen := map[int64]bool{}
		for _, u := range p.ImageURLs {
			id, ok := ids[u]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			links = append(links, domain.MediaLink{ProductID: p.ID, MediaID: id, Position: pos})
			pos++
		}
		if pos > 0 {
			owners = append(owners, p.ID)
		}
	}
	return owners, links
}
