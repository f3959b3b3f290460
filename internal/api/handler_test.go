package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateQueryDepth(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{
			name:     "flat query",
			query:    `{ products { totalCount } }`,
			expected: 2,
		},
		{
			name: "nested aggregations query",
			query: `{
				products {
					aggregations {
						attributes {
							terms { name count }
						}
					}
				}
			}`,
			expected: 5,
		},
		{
			name:     "inline fragment counts toward depth",
			query:    `{ products { nodes { ... on Product { name } } } }`,
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth, err := calculateQueryDepth(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, depth)
		})
	}

	t.Run("empty query is an error", func(t *testing.T) {
		_, err := calculateQueryDepth("")
		assert.Error(t, err)
	})

	t.Run("invalid syntax is an error", func(t *testing.T) {
		_, err := calculateQueryDepth("{ products {")
		assert.Error(t, err)
	})
}
