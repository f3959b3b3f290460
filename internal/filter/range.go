package filter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// RangeStore provides the two catalog lookups the range filter needs.
type RangeStore interface {
	// NumericTermIDs returns the IDs of terms in the taxonomy whose name is
	// a decimal numeral numerically within [min, max].
	NumericTermIDs(ctx context.Context, taxonomy string, min, max float64) ([]int64, error)
	// ProductIDsByTermIDs returns the IDs of published products related to
	// any of the given terms within the taxonomy.
	ProductIDsByTermIDs(ctx context.Context, taxonomy string, termIDs []int64) ([]int64, error)
}

// RangeFilter narrows the main product listing by numeric attribute-range
// constraints. Constraints intersect: a product must satisfy every one.
type RangeFilter struct {
	store RangeStore
}

// NewRangeFilter creates a range filter over the given store.
func NewRangeFilter(store RangeStore) *RangeFilter {
	return &RangeFilter{store: store}
}

// ProductIDs resolves the constraints to the set of matching product IDs.
// A constraint with zero qualifying terms short-circuits the whole result to
// empty. The returned slice is non-nil whenever constraints were applied, so
// callers can distinguish "no restriction" (nil) from "restricted to
// nothing" (empty).
func (f *RangeFilter) ProductIDs(ctx context.Context, constraints []RangeConstraint) ([]int64, error) {
	if len(constraints) == 0 {
		return nil, nil
	}

	var result []int64
	for _, constraint := range constraints {
		taxonomy := AttributeTaxonomyName(constraint.Attribute)

		termIDs, err := f.store.NumericTermIDs(ctx, taxonomy, constraint.Min, constraint.Max)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve numeric terms for %q: %w", taxonomy, err)
		}
		if len(termIDs) == 0 {
			log.Debug().
				Str("taxonomy", taxonomy).
				Float64("min", constraint.Min).
				Float64("max", constraint.Max).
				Msg("Range constraint matched no terms, result is empty")
			return []int64{}, nil
		}

		ids, err := f.store.ProductIDsByTermIDs(ctx, taxonomy, termIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve products for %q: %w", taxonomy, err)
		}

		if result == nil {
			result = ids
		} else {
			result = IntersectIDs(result, ids)
		}
		if len(result) == 0 {
			return []int64{}, nil
		}
	}

	return result, nil
}

// IntersectIDs returns the IDs present in both slices, preserving the order
// of the first.
func IntersectIDs(a, b []int64) []int64 {
	inB := make(map[int64]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	result := make([]int64, 0, len(a))
	for _, id := range a {
		if inB[id] {
			result = append(result, id)
		}
	}
	return result
}
