package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"catalog-importer/internal/config"
)

// KeyIndex maps SKUs to existing product ids for the duration of a run.
type KeyIndex interface {
	// Prepare is called once per batch with the batch's keys before Lookup.
	Prepare(ctx context.Context, keys []string) error
	Lookup(key string) (int64, bool)
	// Insert records a key created by a committed batch.
	Insert(key string, id int64)
	Len() int
}

// PreloadIndex holds every key of the store in memory.
type PreloadIndex struct {
	ids map[string]int64
}

// NewPreloadIndex streams all keys from store.
func NewPreloadIndex(ctx context.Context, store Store) (*PreloadIndex, error) {
	idx := &PreloadIndex{ids: make(map[string]int64)}
	err := store.ScanSKUs(ctx, func(sku string, id int64) error {
		idx.ids[sku] = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preload key index: %w", err)
	}
	return idx, nil
}

func (i *PreloadIndex) Prepare(context.Context, []string) error { return nil }

func (i *PreloadIndex) Lookup(key string) (int64, bool) {
	id, ok := i.ids[key]
	return id, ok
}

func (i *PreloadIndex) Insert(key string, id int64) { i.ids[key] = id }

func (i *PreloadIndex) Len() int { return len(i.ids) }

// BatchIndex queries the store for each batch's keys. Keys created earlier in
// the run are kept so a later batch sees them even before they are queried.
type BatchIndex struct {
	store   Store
	batch   map[string]int64
	created map[string]int64
}

func NewBatchIndex(store Store) *BatchIndex {
	return &BatchIndex{store: store, batch: map[string]int64{}, created: map[string]int64{}}
}

func (i *BatchIndex) Prepare(ctx context.Context, keys []string) error {
	ids, err := i.store.FindIDsBySKUs(ctx, keys)
	if err != nil {
		return fmt.Errorf("lookup batch keys: %w", err)
	}
	if ids == nil {
		ids = map[string]int64{}
	}
	i.batch = ids
	return nil
}

func (i *BatchIndex) Lookup(key string) (int64, bool) {
	if id, ok := i.batch[key]; ok {
		return id, true
	}
	id, ok := i.created[key]
	return id, ok
}

func (i *BatchIndex) Insert(key string, id int64) { i.created[key] = id }

func (i *BatchIndex) Len() int { return len(i.batch) + len(i.created) }

// NewKeyIndex builds the index for strategy. Auto preloads unless the store
// holds more than maxKeys products.
func NewKeyIndex(ctx context.Context, store Store, strategy string, maxKeys int, logger *zap.Logger) (KeyIndex, error) {
	if strategy == config.KeyIndexAuto || strategy == "" {
		count, err := store.CountProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("count products: %w", err)
		}
		strategy = config.KeyIndexPreload
		if count > int64(maxKeys) {
			strategy = config.KeyIndexPerBatch
		}
		logger.Info("key index strategy selected", zap.String("strategy", strategy), zap.Int64("products", count))
	}
	switch strategy {
	case config.KeyIndexPreload:
		return NewPreloadIndex(ctx, store)
	case config.KeyIndexPerBatch:
		return NewBatchIndex(store), nil
	default:
		return nil, fmt.Errorf("unknown key index strategy %q", strategy)
	}
}
