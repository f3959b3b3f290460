// Package aggregation computes the filter aggregations (price range,
// attribute term counts, numeric attribute ranges, brand counts) for a
// product query, scoped to the query's active filters with per-dimension
// self-exclusion.
package aggregation

import "github.com/storegraph/storegraph/internal/catalog"

// PriceRange is the min/max price over the matching products. Both values
// are 0 when no products match.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AttributeRange is the min/max of an attribute's numeric term values.
type AttributeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AttributeAggregation is the facet data for one product attribute.
type AttributeAggregation struct {
	Name  string              `json:"name"`
	Slug  string              `json:"slug"`
	Type  string              `json:"type"`
	Range AttributeRange      `json:"range"`
	Terms []catalog.TermCount `json:"terms"`
}

// Result is the full aggregation response for one product query. It is
// assembled fresh per request and always well-formed: degraded fields hold
// their zero values.
type Result struct {
	PriceRange PriceRange             `json:"priceRange"`
	Attributes []AttributeAggregation `json:"attributes"`
	Brands     []catalog.TermCount    `json:"brands"`
}

// emptyResult is what the engine falls back to when aggregation as a whole
// cannot proceed.
func emptyResult() *Result {
	return &Result{
		Attributes: []AttributeAggregation{},
		Brands:     []catalog.TermCount{},
	}
}
