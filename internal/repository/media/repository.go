package media

import (
	"context"

	"catalog-importer/internal/domain"
)

// Repository stores media assets. It satisfies media.AssetStore.
type Repository interface {
	FindBySourceURL(ctx context.Context, url string) (domain.MediaAsset, error)
	Create(ctx context.Context, asset domain.MediaAsset) (int64, error)
}
