package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-importer/internal/domain"
)

func TestParsePriceCents(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"9.99", 999, true},
		{"9,99", 999, true},
		{"1.234,56", 123456, true},
		{"1,234.56", 123456, true},
		{"1.234.567", 123456700, true},
		{"€ 12,5", 1250, true},
		{"$1,000,000", 100000000, true},
		{"0.005", 1, true},
		{"0.004", 0, true},
		{"10", 1000, true},
		{"", 0, true},
		{"abc", 0, false},
		{"-3.00", 0, false},
		{"1.2.3,4,5", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			cents, ok := ParsePriceCents(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.cents, cents)
		})
	}
}

func TestParseStock(t *testing.T) {
	cases := []struct {
		in  string
		qty int
		ok  bool
	}{
		{"5", 5, true},
		{"", 0, true},
		{"0", 0, true},
		{"3.0", 3, true},
		{"-4", 0, false},
		{"lots", 0, false},
		{"2.5", 0, false},
		{"2147483647", 2147483647, true},
		{"2147483648", 0, false},
		{"3000000000", 0, false},
		{"4294967301", 0, false},
	}
	for _, tc := range cases {
		qty, ok := ParseStock(tc.in)
		assert.Equal(t, tc.qty, qty, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

func TestRowParser_Parse(t *testing.T) {
	p := RowParser{Taxonomies: []string{"category", "brand"}, TermSeparators: "|", ImageSeparators: ",|"}
	row := SourceRow{Line: 7, Fields: map[string]string{
		"sku":            " A1 ",
		"name":           "Crème Brûlée",
		"price":          "12,50",
		"stock_quantity": "-2",
		"category":       "Desserts | Frozen|Desserts",
		"brand":          "Acme",
		"image_urls":     "http://x/1.jpg, http://x/2.jpg|http://x/1.jpg",
	}}

	got := p.Parse(row)
	assert.Equal(t, 7, got.Line)
	assert.Equal(t, "A1", got.Product.SKU)
	assert.Equal(t, "creme-brulee", got.Product.Slug)
	assert.Equal(t, int64(1250), got.Product.PriceCents)
	assert.Equal(t, 0, got.Product.StockQuantity)
	assert.True(t, got.Product.ManageStock)
	assert.Equal(t, domain.StockOutOfStock, got.Product.StockStatus)
	assert.Equal(t, []domain.TermRef{
		{Taxonomy: "category", Name: "Desserts"},
		{Taxonomy: "category", Name: "Frozen"},
		{Taxonomy: "brand", Name: "Acme"},
	}, got.Product.Terms)
	assert.Equal(t, []string{"http://x/1.jpg", "http://x/2.jpg"}, got.Product.ImageURLs)

	require.Len(t, got.Warnings, 1)
	assert.Equal(t, "stock_quantity", got.Warnings[0].Field)
	assert.Equal(t, "A1", got.Warnings[0].SKU)
}

func TestRowParser_EmptyStockIsUnmanaged(t *testing.T) {
	got := RowParser{}.Parse(SourceRow{Fields: map[string]string{"sku": "B", "name": "b", "price": "1", "stock_quantity": ""}})
	assert.False(t, got.Product.ManageStock)
	assert.Equal(t, domain.StockOutOfStock, got.Product.StockStatus)
	assert.Empty(t, got.Warnings)
}

func TestRowParser_SaleDescriptionAndAttributes(t *testing.T) {
	p := RowParser{}
	got := p.Parse(SourceRow{Line: 3, Fields: map[string]string{
		"sku":               "C1",
		"name":              "Chair",
		"price":             "",
		"regular_price":     "49.90",
		"sale_price":        "39,90",
		"short_description": "Stackable",
		"attributes":        "Color:Red, Blue|Size:L|Color:Red,Green|broken",
	}})
	assert.Equal(t, int64(4990), got.Product.PriceCents)
	assert.Equal(t, int64(3990), got.Product.SalePriceCents)
	assert.Equal(t, int64(3990), got.Product.ActivePriceCents())
	assert.Equal(t, "Stackable", got.Product.ShortDescription)
	assert.Equal(t, []domain.Attribute{
		{Name: "Color", Values: []string{"Red", "Blue", "Green"}},
		{Name: "Size", Values: []string{"L"}},
	}, got.Product.Attributes)
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, "attributes", got.Warnings[0].Field)
}

func TestRowParser_SalePriceRejected(t *testing.T) {
	cases := []struct {
		name, price, sale string
	}{
		{"not a number", "10", "cheap"},
		{"equal to regular", "10", "10.00"},
		{"above regular", "10", "12"},
		{"no regular price", "", "5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RowParser{}.Parse(SourceRow{Fields: map[string]string{
				"sku": "S", "name": "s", "price": tc.price, "sale_price": tc.sale,
			}})
			assert.Zero(t, got.Product.SalePriceCents)
			assert.Equal(t, got.Product.PriceCents, got.Product.ActivePriceCents())
			require.Len(t, got.Warnings, 1)
			assert.Equal(t, "sale_price", got.Warnings[0].Field)
		})
	}
}

func TestParseAttributes(t *testing.T) {
	attrs, bad := ParseAttributes("")
	assert.Nil(t, attrs)
	assert.Zero(t, bad)

	attrs, bad = ParseAttributes("Material:Oak| :x|Finish:|a:b:c")
	assert.Equal(t, []domain.Attribute{{Name: "Material", Values: []string{"Oak"}}}, attrs)
	assert.Equal(t, 3, bad)
}
