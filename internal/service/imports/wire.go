package imports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"catalog-importer/internal/checkpoint"
	"catalog-importer/internal/config"
	"catalog-importer/internal/lock"
	"catalog-importer/internal/media"
	mediarepo "catalog-importer/internal/repository/media"
	productrepo "catalog-importer/internal/repository/product"
	termrepo "catalog-importer/internal/repository/term"
)

// NewDeps builds the Postgres-backed collaborators described by cfg. The
// returned func releases what NewDeps opened.
func NewDeps(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *zap.Logger) (Deps, func(), error) {
	deps := Deps{
		Store:     productrepo.NewPostgres(pool, logger),
		TermStore: termrepo.NewPostgres(pool),
	}
	closeFn := func() {}

	if cfg.Media.Enabled {
		storage, err := media.NewStorage(ctx, cfg.Media)
		if err != nil {
			return Deps{}, nil, fmt.Errorf("init media storage: %w", err)
		}
		deps.Attacher = media.NewStoreAttacher(mediarepo.NewPostgres(pool), storage, cfg.Media, logger)
	}

	var sqlDB *sql.DB
	if cfg.Checkpoint.Backend == "sql" {
		db, err := checkpoint.OpenSQL(cfg.DBConnString)
		if err != nil {
			return Deps{}, nil, err
		}
		sqlDB = db
		closeFn = func() { _ = db.Close() }
	}
	deps.Checkpoints = func(file string) (checkpoint.Store, error) {
		return checkpoint.Open(cfg.Checkpoint, sqlDB, file)
	}

	locker, err := lock.New(cfg.Lock)
	if err != nil {
		closeFn()
		return Deps{}, nil, fmt.Errorf("init run lock: %w", err)
	}
	deps.Locker = locker

	return deps, closeFn, nil
}
