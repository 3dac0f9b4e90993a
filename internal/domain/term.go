package domain

import "time"

// Taxonomies managed by the importer.
const (
	TaxonomyCategory = "category"
	TaxonomyBrand    = "brand"
)

// Term is a classification label. Identity is (Taxonomy, Name).
type Term struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Taxonomy     string    `json:"taxonomy"`
	ProductCount int       `json:"productCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TermRef is an unresolved reference carried by a parsed row.
type TermRef struct {
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
}
