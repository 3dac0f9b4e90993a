package importer

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/slug"
)

// Column names understood by the row parser after header normalization.
const (
	ColumnSKU              = "sku"
	ColumnName             = "name"
	ColumnDescription      = "description"
	ColumnShortDescription = "short_description"
	ColumnPrice            = "price"
	ColumnRegularPrice     = "regular_price"
	ColumnSalePrice        = "sale_price"
	ColumnStock            = "stock_quantity"
	ColumnImages           = "image_urls"
	ColumnAttributes       = "attributes"
)

// RowParser turns SourceRows into typed products.
type RowParser struct {
	// Taxonomies lists managed taxonomies; each is read from the column of
	// the same name.
	Taxonomies      []string
	TermSeparators  string
	ImageSeparators string
}

// ParsedRow is a typed row plus the coercions applied to it.
type ParsedRow struct {
	Line     int
	Product  domain.Product
	Warnings []ValidationWarning
}

func (p RowParser) Parse(row SourceRow) ParsedRow {
	out := ParsedRow{Line: row.Line}
	sku := row.Get(ColumnSKU)
	warn := func(field, value, reason string) {
		out.Warnings = append(out.Warnings, ValidationWarning{
			Line: row.Line, SKU: sku, Field: field, Value: value, Reason: reason,
		})
	}

	name := row.Get(ColumnName)
	prod := domain.Product{
		SKU:              sku,
		Name:             name,
		Slug:             slug.Make(name),
		Description:      row.Get(ColumnDescription),
		ShortDescription: row.Get(ColumnShortDescription),
	}
	if prod.Slug == "" {
		prod.Slug = slug.Make(sku)
	}

	priceCol := ColumnPrice
	rawPrice := row.Get(ColumnPrice)
	if rawPrice == "" {
		priceCol, rawPrice = ColumnRegularPrice, row.Get(ColumnRegularPrice)
	}
	cents, ok := ParsePriceCents(rawPrice)
	if !ok {
		warn(priceCol, rawPrice, "invalid price, stored as 0")
	}
	prod.PriceCents = cents

	if rawSale := row.Get(ColumnSalePrice); rawSale != "" {
		sale, ok := ParsePriceCents(rawSale)
		switch {
		case !ok:
			warn(ColumnSalePrice, rawSale, "invalid sale price, ignored")
		case sale > 0 && sale >= prod.PriceCents:
			warn(ColumnSalePrice, rawSale, "sale price not below regular price, ignored")
		default:
			prod.SalePriceCents = sale
		}
	}

	rawStock := row.Get(ColumnStock)
	qty, ok := ParseStock(rawStock)
	if !ok {
		warn(ColumnStock, rawStock, "invalid stock quantity, stored as 0")
	}
	prod.StockQuantity = qty
	prod.ManageStock = rawStock != ""
	prod.StockStatus = domain.StockStatusFor(qty)

	for _, tax := range p.Taxonomies {
		for _, name := range splitUnique(row.Get(tax), p.TermSeparators) {
			prod.Terms = append(prod.Terms, domain.TermRef{Taxonomy: tax, Name: name})
		}
	}
	prod.ImageURLs = splitUnique(row.Get(ColumnImages), p.ImageSeparators)

	rawAttrs := row.Get(ColumnAttributes)
	attrs, bad := ParseAttributes(rawAttrs)
	if bad > 0 {
		warn(ColumnAttributes, rawAttrs, fmt.Sprintf("%d malformed attribute(s) ignored", bad))
	}
	prod.Attributes = attrs

	out.Product = prod
	return out
}

var priceContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfUp
	return c
}()

// ParsePriceCents converts a locale formatted price into minor units, rounded
// half-up to two decimals. Currency symbols and spaces are ignored. Both
// "1.234,56" and "1,234.56" are accepted; a lone comma is a decimal comma.
// Empty, negative or unparseable input yields (0, false), except that an
// empty cell is not reported.
func ParsePriceCents(raw string) (int64, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, true
	}
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := normalizeSeparators(b.String())
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, false
	}

	d, _, err := apd.NewFromString(s)
	if err != nil {
		return 0, false
	}
	var cents apd.Decimal
	if _, err := priceContext.Mul(&cents, d, apd.New(100, 0)); err != nil {
		return 0, false
	}
	if _, err := priceContext.Quantize(&cents, &cents, 0); err != nil {
		return 0, false
	}
	v, err := cents.Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}

func normalizeSeparators(s string) string {
	dot := strings.LastIndexByte(s, '.')
	comma := strings.LastIndexByte(s, ',')
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") == 1 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case dot >= 0 && strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// ParseStock coerces a stock cell to a non-negative int32-sized integer. Empty
// is 0 and valid; negative, oversized or non-numeric input is 0 and invalid.
func ParseStock(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 || n > math.MaxInt32 {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseAttributes reads "Color:Red,Blue|Size:M" into attributes, merging
// repeated names. It returns the number of pairs that were not name:values.
func ParseAttributes(raw string) ([]domain.Attribute, int) {
	var (
		out []domain.Attribute
		bad int
	)
	index := map[string]int{}
	for _, pair := range splitUnique(raw, "|") {
		name, values, found := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		vals := splitUnique(values, ",")
		if !found || name == "" || len(vals) == 0 || strings.Contains(values, ":") {
			bad++
			continue
		}
		i, ok := index[name]
		if !ok {
			index[name] = len(out)
			out = append(out, domain.Attribute{Name: name, Values: vals})
			continue
		}
		for _, v := range vals {
			if !slices.Contains(out[i].Values, v) {
				out[i].Values = append(out[i].Values, v)
			}
		}
	}
	return out, bad
}

// splitUnique splits s on any of seps, trims the parts and drops empty and
// repeated values, keeping first-seen order.
func splitUnique(s, seps string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return seps != "" && strings.ContainsRune(seps, r)
	})
	var out []string
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
