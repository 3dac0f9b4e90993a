package httpserver

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Deps carries the services behind the API.
type Deps struct {
	Imports  ImportService
	Products ProductService
	Terms    TermService
	// AllowOrigins lists the origins allowed by CORS; empty allows all.
	AllowOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(ctx context.Context, logger *zap.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	var p pinger
	if db != nil {
		p = db
	}
	return newRouter(ctx, logger, p, deps)
}

func newRouter(ctx context.Context, logger *zap.Logger, db pinger, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), cors.New(corsConfig(deps.AllowOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api")
	if deps.Imports != nil {
		h := &importHandler{ctx: ctx, svc: deps.Imports, logger: logger}
		api.POST("/imports", h.start)
		api.GET("/imports/current", h.current)
	}
	if deps.Products != nil {
		api.GET("/products/:sku", productHandler(deps.Products))
	}
	if deps.Terms != nil {
		api.GET("/terms/:taxonomy", termsHandler(deps.Terms))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
