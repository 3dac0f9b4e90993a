package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"catalog-importer/internal/importer"
	"catalog-importer/internal/service/imports"
)

// ImportService is the part of imports.Service the API drives.
type ImportService interface {
	Start(ctx context.Context, req imports.Request) (string, error)
	Current() (importer.Stats, bool)
}

type importHandler struct {
	ctx    context.Context
	svc    ImportService
	logger *zap.Logger
}

func (h *importHandler) start(c *gin.Context) {
	var req imports.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.File == "" {
		c.JSON(http.StatusBadRequest, errorBody("file is required"))
		return
	}

	runID, err := h.svc.Start(h.ctx, req)
	if err != nil {
		if errors.Is(err, imports.ErrRunning) {
			c.JSON(http.StatusConflict, errorBody(err.Error()))
			return
		}
		h.logger.Warn("start import", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": runID})
}

func (h *importHandler) current(c *gin.Context) {
	stats, ok := h.svc.Current()
	if !ok {
		c.JSON(http.StatusNotFound, errorBody("no import has run"))
		return
	}
	c.JSON(http.StatusOK, toImportResponse(stats))
}
