package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storegraph/storegraph/internal/filter"
)

func TestParseWhereArgs(t *testing.T) {
	t.Run("nil input yields empty criteria", func(t *testing.T) {
		criteria := ParseWhereArgs(nil)
		assert.Equal(t, filter.Criteria{}, criteria)
	})

	t.Run("parses price bounds", func(t *testing.T) {
		criteria := ParseWhereArgs(map[string]interface{}{
			"minPrice": 10.5,
			"maxPrice": 99,
		})

		require.NotNil(t, criteria.MinPrice)
		require.NotNil(t, criteria.MaxPrice)
		assert.Equal(t, 10.5, *criteria.MinPrice)
		assert.Equal(t, 99.0, *criteria.MaxPrice, "integer-typed variables are accepted")
	})

	t.Run("absent price bounds stay nil", func(t *testing.T) {
		criteria := ParseWhereArgs(map[string]interface{}{})
		assert.Nil(t, criteria.MinPrice)
		assert.Nil(t, criteria.MaxPrice)
	})

	t.Run("parses taxonomy filters", func(t *testing.T) {
		criteria := ParseWhereArgs(map[string]interface{}{
			"taxonomyFilter": map[string]interface{}{
				"filters": []interface{}{
					map[string]interface{}{
						"taxonomy": "PRODUCT_CAT",
						"terms":    []interface{}{"shoes", "hats"},
					},
					map[string]interface{}{
						"taxonomy": "PA_COLOR",
					},
				},
			},
		})

		require.Len(t, criteria.TaxonomyFilters, 2)
		assert.Equal(t, filter.TaxonomyFilter{Taxonomy: "PRODUCT_CAT", Terms: []string{"shoes", "hats"}}, criteria.TaxonomyFilters[0])
		assert.Equal(t, filter.TaxonomyFilter{Taxonomy: "PA_COLOR"}, criteria.TaxonomyFilters[1])
	})

	t.Run("skips malformed taxonomy filter entries", func(t *testing.T) {
		criteria := ParseWhereArgs(map[string]interface{}{
			"taxonomyFilter": map[string]interface{}{
				"filters": []interface{}{
					"not a map",
					map[string]interface{}{"terms": []interface{}{"orphaned"}},
					map[string]interface{}{"taxonomy": "PRODUCT_TAG"},
				},
			},
		})

		require.Len(t, criteria.TaxonomyFilters, 1)
		assert.Equal(t, "PRODUCT_TAG", criteria.TaxonomyFilters[0].Taxonomy)
	})

	t.Run("parses attribute range constraints", func(t *testing.T) {
		criteria := ParseWhereArgs(map[string]interface{}{
			"attributeRange": []interface{}{
				map[string]interface{}{"attribute": "size", "min": 38.0, "max": 42.0},
				map[string]interface{}{"attribute": "width", "min": 9, "max": 11},
			},
		})

		require.Len(t, criteria.AttributeRanges, 2)
		assert.Equal(t, filter.RangeConstraint{Attribute: "size", Min: 38, Max: 42}, criteria.AttributeRanges[0])
		assert.Equal(t, filter.RangeConstraint{Attribute: "width", Min: 9, Max: 11}, criteria.AttributeRanges[1])
	})

	t.Run("skips range entries without an attribute", func(t *testing.T) {
		criteria := ParseWhereArgs(map[string]interface{}{
			"attributeRange": []interface{}{
				map[string]interface{}{"min": 1.0, "max": 2.0},
			},
		})
		assert.Empty(t, criteria.AttributeRanges)
	})
}
