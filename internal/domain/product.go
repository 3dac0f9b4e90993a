package domain

import "time"

// StockStatus mirrors the storefront stock flag derived from the quantity.
type StockStatus string

const (
	StockInStock    StockStatus = "instock"
	StockOutOfStock StockStatus = "outofstock"
)

// StockStatusFor returns instock iff qty > 0.
func StockStatusFor(qty int) StockStatus {
	if qty > 0 {
		return StockInStock
	}
	return StockOutOfStock
}

// Product is the catalog record keyed by SKU. PriceCents is the regular
// price; SalePriceCents is 0 when the product is not on sale and below
// PriceCents otherwise.
type Product struct {
	ID               int64       `json:"id"`
	SKU              string      `json:"sku"`
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	Description      string      `json:"description,omitempty"`
	ShortDescription string      `json:"shortDescription,omitempty"`
	PriceCents       int64       `json:"priceCents"`
	SalePriceCents   int64       `json:"salePriceCents,omitempty"`
	StockQuantity    int         `json:"stockQuantity"`
	ManageStock      bool        `json:"manageStock"`
	StockStatus      StockStatus `json:"stockStatus"`
	Attributes       []Attribute `json:"attributes,omitempty"`
	Terms            []TermRef   `json:"terms,omitempty"`
	ImageURLs        []string    `json:"imageUrls,omitempty"`
	MediaIDs         []int64     `json:"mediaIds,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// ActivePriceCents is the price a buyer pays.
func (p Product) ActivePriceCents() int64 {
	if p.SalePriceCents > 0 && p.SalePriceCents < p.PriceCents {
		return p.SalePriceCents
	}
	return p.PriceCents
}

// Attribute is a named, non-variation product property such as a color.
type Attribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// TermLink associates a product with a term id; used by the writer.
type TermLink struct {
	ProductID int64
	TermID    int64
}

// TermScope is one product's links within one taxonomy.
type TermScope struct {
	ProductID int64
	Taxonomy  string
}

// MediaLink places a media asset on a product. Position 0 is the featured image.
type MediaLink struct {
	ProductID int64
	MediaID   int64
	Position  int
}
