package media

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/migrate"
)

func TestPostgres_CreateIsIdempotentPerURL(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	require.NoError(t, migrate.Apply(ctx, pool))
	if _, err := pool.Exec(ctx, `TRUNCATE product_media, media_assets RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	repo := NewPostgres(pool)
	_, err := repo.FindBySourceURL(ctx, "https://cdn/x.jpg")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	asset := domain.MediaAsset{SourceURL: "https://cdn/x.jpg", Location: "var/media/x.jpg", ContentType: "image/jpeg", Size: 10}
	id, err := repo.Create(ctx, asset)
	require.NoError(t, err)
	again, err := repo.Create(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, err := repo.FindBySourceURL(ctx, "https://cdn/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "var/media/x.jpg", got.Location)
	assert.Equal(t, int64(10), got.Size)
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}
