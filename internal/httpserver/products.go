package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"catalog-importer/internal/domain"
)

// ProductService looks up imported products.
type ProductService interface {
	Get(ctx context.Context, sku string) (*domain.Product, error)
}

// TermService lists the terms of a managed taxonomy.
type TermService interface {
	List(ctx context.Context, taxonomy string) ([]domain.Term, error)
}

func productHandler(products ProductService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := products.Get(c.Request.Context(), c.Param("sku"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, errorBody("product not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		c.JSON(http.StatusOK, toProductResponse(p))
	}
}

func termsHandler(terms TermService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := terms.List(c.Request.Context(), c.Param("taxonomy"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, errorBody("unknown taxonomy"))
				return
			}
			c.JSON(http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		if list == nil {
			list = []domain.Term{}
		}
		c.JSON(http.StatusOK, gin.H{"results": list, "count": len(list)})
	}
}
