package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTermSource serves a term hierarchy from memory and counts lookups so
// tests can assert memoization.
type fakeTermSource struct {
	// terms maps taxonomy -> slug -> term
	terms map[string]map[string]Term
	// children maps taxonomy -> parent ID -> child terms
	children map[string]map[int64][]Term

	lookups int
}

func (f *fakeTermSource) TermBySlug(_ context.Context, taxonomy, slug string) (*Term, error) {
	f.lookups++
	if byXSlug, ok := f.terms[taxonomy]; ok {
		if term, ok := byXSlug[slug]; ok {
			return &term, nil
		}
	}
	return nil, nil
}

func (f *fakeTermSource) ChildTerms(_ context.Context, taxonomy string, parentID int64) ([]Term, error) {
	if byParent, ok := f.children[taxonomy]; ok {
		return byParent[parentID], nil
	}
	return nil, nil
}

// newCategorySource builds: shoes(1) -> sneakers(2) -> running(3), boots(4).
func newCategorySource() *fakeTermSource {
	return &fakeTermSource{
		terms: map[string]map[string]Term{
			"product_cat": {
				"shoes":    {ID: 1, Slug: "shoes"},
				"sneakers": {ID: 2, Slug: "sneakers"},
				"running":  {ID: 3, Slug: "running"},
				"boots":    {ID: 4, Slug: "boots"},
			},
		},
		children: map[string]map[int64][]Term{
			"product_cat": {
				1: {{ID: 2, Slug: "sneakers"}, {ID: 4, Slug: "boots"}},
				2: {{ID: 3, Slug: "running"}},
			},
		},
	}
}

func TestResolveDimension(t *testing.T) {
	tests := []struct {
		name      string
		dimension string
		expected  string
	}{
		{"category mapping", "PRODUCT_CAT", "product_cat"},
		{"tag mapping", "PRODUCT_TAG", "product_tag"},
		{"brand mapping", "PRODUCT_BRAND", "product_brand"},
		{"attribute convention", "PA_SIZE", "pa_size"},
		{"attribute convention mixed case", "PA_Heel_Height", "pa_heel_height"},
		{"unknown falls back to lower case", "SOMETHING_ELSE", "something_else"},
		{"already lower case passes through", "custom_tax", "custom_tax"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveDimension(tt.dimension))
		})
	}
}

func TestAttributeTaxonomyName(t *testing.T) {
	assert.Equal(t, "pa_size", AttributeTaxonomyName("Size"))
	assert.Equal(t, "pa_color", AttributeTaxonomyName("color"))
}

func TestTermExpander_Expand(t *testing.T) {
	ctx := context.Background()

	t.Run("expands parent to all descendants", func(t *testing.T) {
		expander := NewTermExpander(newCategorySource())

		slugs, err := expander.Expand(ctx, "product_cat", "shoes")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"shoes", "sneakers", "running", "boots"}, slugs)
	})

	t.Run("leaf term expands to itself", func(t *testing.T) {
		expander := NewTermExpander(newCategorySource())

		slugs, err := expander.Expand(ctx, "product_cat", "running")
		require.NoError(t, err)
		assert.Equal(t, []string{"running"}, slugs)
	})

	t.Run("unknown slug expands to empty set", func(t *testing.T) {
		expander := NewTermExpander(newCategorySource())

		slugs, err := expander.Expand(ctx, "product_cat", "doesnotexist")
		require.NoError(t, err)
		assert.Empty(t, slugs)
	})

	t.Run("unknown taxonomy expands to empty set", func(t *testing.T) {
		expander := NewTermExpander(newCategorySource())

		slugs, err := expander.Expand(ctx, "color", "shoes")
		require.NoError(t, err)
		assert.Empty(t, slugs)
	})

	t.Run("parent expansion is a superset of each child expansion", func(t *testing.T) {
		expander := NewTermExpander(newCategorySource())

		parent, err := expander.Expand(ctx, "product_cat", "shoes")
		require.NoError(t, err)

		for _, child := range []string{"sneakers", "boots", "running"} {
			childSlugs, err := expander.Expand(ctx, "product_cat", child)
			require.NoError(t, err)
			assert.Subset(t, parent, childSlugs, "expansion of %q must be contained in the parent's", child)
		}
	})

	t.Run("memoizes repeated expansions", func(t *testing.T) {
		source := newCategorySource()
		expander := NewTermExpander(source)

		_, err := expander.Expand(ctx, "product_cat", "shoes")
		require.NoError(t, err)
		lookupsAfterFirst := source.lookups

		_, err = expander.Expand(ctx, "product_cat", "shoes")
		require.NoError(t, err)
		assert.Equal(t, lookupsAfterFirst, source.lookups, "second expansion must hit the cache")
	})

	t.Run("survives a cycle in the hierarchy", func(t *testing.T) {
		source := newCategorySource()
		// Point running back at shoes.
		source.children["product_cat"][3] = []Term{{ID: 1, Slug: "shoes"}}
		expander := NewTermExpander(source)

		slugs, err := expander.Expand(ctx, "product_cat", "shoes")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"shoes", "sneakers", "running", "boots"}, slugs)
	})
}
