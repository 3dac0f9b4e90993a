package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"catalog-importer/internal/config"
	"catalog-importer/internal/db"
	"catalog-importer/internal/httpserver"
	"catalog-importer/internal/logging"
	productrepo "catalog-importer/internal/repository/product"
	termrepo "catalog-importer/internal/repository/term"
	"catalog-importer/internal/service/imports"
	productsvc "catalog-importer/internal/service/product"
	termsvc "catalog-importer/internal/service/term"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	logger, flush, err := logging.New(cfg.Env, cfg.Log)
	if err != nil {
		panic(err)
	}
	defer flush()
	logger = logger.Named("api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.WithApplicationName("catalog-importer-api"))
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	deps, closeDeps, err := imports.NewDeps(ctx, cfg, dbpool, logger)
	if err != nil {
		logger.Fatal("init import dependencies", zap.Error(err))
	}
	defer closeDeps()

	importSvc := imports.New(cfg, deps, logger)
	srv := httpserver.New(ctx, cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Imports:      importSvc,
		Products:     productsvc.New(productrepo.NewPostgres(dbpool, logger)),
		Terms:        termsvc.New(termrepo.NewPostgres(dbpool), cfg.Import.ManagedTaxonomies),
		AllowOrigins: cfg.CORSOrigins,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	// Stops a running import after its current batch.
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
	importSvc.Wait()
}
