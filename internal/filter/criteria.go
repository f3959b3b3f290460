// Package filter implements the dynamic filter-clause builder shared by the
// product listing and every aggregation sub-query. A Criteria value is the
// caller's full filter state for one request; it is parsed once from the
// incoming query arguments and passed explicitly to everything that needs it.
package filter

// TaxonomyFilter selects a set of term slugs within one filter dimension.
// Taxonomy holds the caller-facing dimension identifier (e.g. "PRODUCT_CAT"
// or "PA_SIZE"), not the catalog taxonomy name.
type TaxonomyFilter struct {
	Taxonomy string
	Terms    []string
}

// RangeConstraint narrows the product set to products whose numeric
// attribute value lies within [Min, Max].
type RangeConstraint struct {
	Attribute string
	Min       float64
	Max       float64
}

// Criteria is the active filter state for one request. Nil price bounds mean
// the bound is absent. Criteria is never persisted and never shared across
// requests.
type Criteria struct {
	MinPrice        *float64
	MaxPrice        *float64
	TaxonomyFilters []TaxonomyFilter
	AttributeRanges []RangeConstraint
}

// HasPriceFilter reports whether at least one price bound is set.
func (c Criteria) HasPriceFilter() bool {
	return c.MinPrice != nil || c.MaxPrice != nil
}

// WithoutPrice returns a copy of the criteria with both price bounds removed.
func (c Criteria) WithoutPrice() Criteria {
	c.MinPrice = nil
	c.MaxPrice = nil
	return c
}

// Float64Ptr is a convenience helper for building criteria literals.
func Float64Ptr(v float64) *float64 {
	return &v
}
