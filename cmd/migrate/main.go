package main

import (
	"context"

	"go.uber.org/zap"

	"catalog-importer/internal/config"
	"catalog-importer/internal/db"
	"catalog-importer/internal/logging"
	"catalog-importer/internal/migrate"
)

func main() {
	cfg := config.FromEnv()
	logger, flush, err := logging.New(cfg.Env, config.LogConfig{Level: cfg.Log.Level})
	if err != nil {
		panic(err)
	}
	defer flush()
	logger = logger.Named("migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	version, _, err := migrate.Version(ctx, pool)
	if err != nil {
		logger.Fatal("read schema version", zap.Error(err))
	}
	logger.Info("migrations applied", zap.Uint("version", version))
}
