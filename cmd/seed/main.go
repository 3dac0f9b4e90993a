package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"catalog-importer/internal/config"
	"catalog-importer/internal/db"
	"catalog-importer/internal/logging"
	"catalog-importer/internal/seed"
)

func main() {
	var (
		csvPath string
		rows    int
	)
	flag.StringVar(&csvPath, "csv", "", "also write a generated demo feed to this path")
	flag.IntVar(&rows, "rows", 1000, "number of rows in the generated feed")
	flag.Parse()

	cfg := config.FromEnv()
	logger, flush, err := logging.New(cfg.Env, config.LogConfig{Level: cfg.Log.Level})
	if err != nil {
		panic(err)
	}
	defer flush()
	logger = logger.Named("seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.WithApplicationName("catalog-importer-seed"))
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Apply(ctx, pool); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	logger.Info("seed applied")

	if csvPath == "" {
		return
	}
	f, err := os.Create(csvPath)
	if err != nil {
		logger.Fatal("create demo feed", zap.Error(err))
	}
	if err := seed.WriteCSV(f, rows); err != nil {
		_ = f.Close()
		logger.Fatal("write demo feed", zap.Error(err))
	}
	if err := f.Close(); err != nil {
		logger.Fatal("close demo feed", zap.Error(err))
	}
	logger.Info("demo feed written", zap.String("path", csvPath), zap.Int("rows", rows))
}
