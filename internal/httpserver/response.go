package httpserver

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/importer"
)

func errorBody(msg string) gin.H {
	return gin.H{"message": msg}
}

type importResponse struct {
	importer.Stats
	Status  string `json:"status"`
	Errors  int    `json:"errors"`
	Elapsed string `json:"elapsed"`
	Memory  string `json:"peakMemory"`
}

func toImportResponse(s importer.Stats) importResponse {
	return importResponse{
		Stats:   s,
		Status:  s.Status(),
		Errors:  s.Errors(),
		Elapsed: s.Elapsed.Truncate(time.Millisecond).String(),
		Memory:  humanize.IBytes(s.PeakMemory),
	}
}

type productResponse struct {
	ID               int64              `json:"id"`
	SKU              string             `json:"sku"`
	Name             string             `json:"name"`
	Slug             string             `json:"slug"`
	Description      string             `json:"description,omitempty"`
	ShortDescription string             `json:"shortDescription,omitempty"`
	Price            string             `json:"price"`
	SalePrice        string             `json:"salePrice,omitempty"`
	StockQuantity    int                `json:"stockQuantity"`
	StockStatus      domain.StockStatus `json:"stockStatus"`
	Attributes       []domain.Attribute `json:"attributes"`
	Terms            []domain.TermRef   `json:"terms"`
	MediaIDs         []int64            `json:"mediaIds"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

func toProductResponse(p *domain.Product) productResponse {
	terms := p.Terms
	if terms == nil {
		terms = []domain.TermRef{}
	}
	media := p.MediaIDs
	if media == nil {
		media = []int64{}
	}
	attrs := p.Attributes
	if attrs == nil {
		attrs = []domain.Attribute{}
	}
	var sale string
	if p.SalePriceCents > 0 {
		sale = formatCents(p.SalePriceCents)
	}
	return productResponse{
		ID:               p.ID,
		SKU:              p.SKU,
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            formatCents(p.PriceCents),
		SalePrice:        sale,
		StockQuantity:    p.StockQuantity,
		StockStatus:      p.StockStatus,
		Attributes:       attrs,
		Terms:            terms,
		MediaIDs:         media,
		UpdatedAt:        p.UpdatedAt,
	}
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
