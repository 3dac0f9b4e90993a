package lock

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Integration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	key := "catalog-importer:test-lock:" + time.Now().Format("150405.000000")

	first, err := NewRedisFromURL(url, key, time.Minute)
	require.NoError(t, err)
	second, err := NewRedisFromURL(url, key, time.Minute)
	require.NoError(t, err)

	require.NoError(t, first.Acquire(t.Context()))
	assert.ErrorIs(t, second.Acquire(t.Context()), ErrHeld)
	require.NoError(t, second.Release(t.Context()), "a non-owner release is a no-op")
	require.NoError(t, first.Release(t.Context()))
	require.NoError(t, second.Acquire(t.Context()))
	require.NoError(t, second.Release(t.Context()))
}
