package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/catalog")
	require.NoError(t, err)
	def := cfg.MaxConns

	WithMaxConns(0)(cfg)
	assert.Equal(t, def, cfg.MaxConns)
	WithMaxConns(6)(cfg)
	assert.Equal(t, int32(6), cfg.MaxConns)

	WithApplicationName("catalog-importer")(cfg)
	assert.Equal(t, "catalog-importer", cfg.ConnConfig.RuntimeParams["application_name"])
}
