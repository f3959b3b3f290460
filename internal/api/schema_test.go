package api

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storegraph/storegraph/internal/aggregation"
	"github.com/storegraph/storegraph/internal/catalog"
	"github.com/storegraph/storegraph/internal/filter"
)

var schemaTestTables = filter.TableNames{
	PostMeta:          "wp_postmeta",
	Terms:             "wp_terms",
	TermTaxonomy:      "wp_term_taxonomy",
	TermRelationships: "wp_term_relationships",
}

// fakeCatalog satisfies CatalogStore with canned data and records the
// criteria-derived inputs it sees.
type fakeCatalog struct {
	products []catalog.Product
	total    int
	attrs    []catalog.AttributeTaxonomy

	// rangeTerms maps taxonomy -> term IDs returned for any range lookup
	rangeTerms map[string][]int64
	// rangeProducts maps taxonomy -> product IDs for those terms
	rangeProducts map[string][]int64

	lastRestrict []int64
	lastClause   filter.Clause
}

func (f *fakeCatalog) TermBySlug(_ context.Context, _, _ string) (*filter.Term, error) {
	return nil, nil
}

func (f *fakeCatalog) ChildTerms(_ context.Context, _ string, _ int64) ([]filter.Term, error) {
	return nil, nil
}

func (f *fakeCatalog) NumericTermIDs(_ context.Context, taxonomy string, _, _ float64) ([]int64, error) {
	return f.rangeTerms[taxonomy], nil
}

func (f *fakeCatalog) ProductIDsByTermIDs(_ context.Context, taxonomy string, _ []int64) ([]int64, error) {
	return f.rangeProducts[taxonomy], nil
}

func (f *fakeCatalog) SelectProducts(_ context.Context, clause filter.Clause, restrictIDs []int64, _, _ int) ([]catalog.Product, error) {
	f.lastClause = clause
	f.lastRestrict = restrictIDs
	if restrictIDs != nil && len(restrictIDs) == 0 {
		return nil, nil
	}
	return f.products, nil
}

func (f *fakeCatalog) CountProducts(_ context.Context, _ filter.Clause, restrictIDs []int64) (int, error) {
	if restrictIDs != nil && len(restrictIDs) == 0 {
		return 0, nil
	}
	return f.total, nil
}

func (f *fakeCatalog) AttributeTaxonomies(_ context.Context) ([]catalog.AttributeTaxonomy, error) {
	return f.attrs, nil
}

// fakeAggregator returns a fixed result and records the criteria it saw.
type fakeAggregator struct {
	result       *aggregation.Result
	seenCriteria filter.Criteria
	calls        int
}

func (f *fakeAggregator) Aggregate(_ context.Context, criteria filter.Criteria) *aggregation.Result {
	f.calls++
	f.seenCriteria = criteria
	return f.result
}

func buildTestSchema(t *testing.T, store *fakeCatalog, agg *fakeAggregator) graphql.Schema {
	t.Helper()
	builder := NewSchemaBuilder(store, agg, filter.NewRangeFilter(store), schemaTestTables, "_price")
	schema, err := builder.Build(context.Background())
	require.NoError(t, err)
	return schema
}

func price(v float64) *float64 { return &v }

func TestSchema_ProductsQuery(t *testing.T) {
	store := &fakeCatalog{
		products: []catalog.Product{
			{ID: 1, Name: "Runner", Slug: "runner", Price: price(59.99)},
			{ID: 2, Name: "Boot", Slug: "boot"},
		},
		total: 2,
		attrs: []catalog.AttributeTaxonomy{{Name: "color", Label: "Color"}},
	}
	agg := &fakeAggregator{result: &aggregation.Result{
		PriceRange: aggregation.PriceRange{Min: 10, Max: 99},
		Attributes: []aggregation.AttributeAggregation{},
		Brands:     []catalog.TermCount{{Name: "Acme", Slug: "acme", Count: 2}},
	}}
	schema := buildTestSchema(t, store, agg)

	query := `{
		products(where: {minPrice: 10, maxPrice: 100, taxonomyFilter: {filters: [{taxonomy: PA_COLOR, terms: ["red"]}]}}) {
			totalCount
			nodes { id name slug price }
			aggregations {
				priceRange { min max }
				brands { name slug count }
			}
		}
	}`

	result := graphql.Do(graphql.Params{Schema: schema, RequestString: query, Context: context.Background()})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	products := data["products"].(map[string]interface{})
	assert.Equal(t, 2, products["totalCount"])

	nodes := products["nodes"].([]interface{})
	require.Len(t, nodes, 2)
	first := nodes[0].(map[string]interface{})
	assert.Equal(t, "Runner", first["name"])

	aggregations := products["aggregations"].(map[string]interface{})
	priceRange := aggregations["priceRange"].(map[string]interface{})
	assert.Equal(t, 10.0, priceRange["min"])
	assert.Equal(t, 99.0, priceRange["max"])

	brands := aggregations["brands"].([]interface{})
	require.Len(t, brands, 1)

	// The aggregations resolver must see the same criteria the listing ran
	// under.
	require.Equal(t, 1, agg.calls)
	require.NotNil(t, agg.seenCriteria.MinPrice)
	assert.Equal(t, 10.0, *agg.seenCriteria.MinPrice)
	require.Len(t, agg.seenCriteria.TaxonomyFilters, 1)
	assert.Equal(t, "PA_COLOR", agg.seenCriteria.TaxonomyFilters[0].Taxonomy)
}

func TestSchema_AggregationsNotRequestedNotComputed(t *testing.T) {
	store := &fakeCatalog{total: 0}
	agg := &fakeAggregator{result: &aggregation.Result{}}
	schema := buildTestSchema(t, store, agg)

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ products { totalCount } }`,
		Context:       context.Background(),
	})
	require.Empty(t, result.Errors)
	assert.Equal(t, 0, agg.calls, "aggregations are computed only when selected")
}

func TestSchema_AttributeRangeRestrictsListing(t *testing.T) {
	store := &fakeCatalog{
		products:      []catalog.Product{{ID: 101, Name: "Runner", Slug: "runner"}},
		total:         1,
		attrs:         []catalog.AttributeTaxonomy{{Name: "size", Label: "Size"}},
		rangeTerms:    map[string][]int64{"pa_size": {7}},
		rangeProducts: map[string][]int64{"pa_size": {101}},
	}
	agg := &fakeAggregator{result: &aggregation.Result{}}
	schema := buildTestSchema(t, store, agg)

	query := `{
		products(where: {attributeRange: [{attribute: SIZE, min: 38, max: 42}]}) {
			totalCount
			nodes { id }
		}
	}`

	result := graphql.Do(graphql.Params{Schema: schema, RequestString: query, Context: context.Background()})
	require.Empty(t, result.Errors)

	assert.Equal(t, []int64{101}, store.lastRestrict, "listing is restricted to range-matched products")
}

func TestSchema_AttributeRangeWithNoQualifyingTermsEmptiesListing(t *testing.T) {
	store := &fakeCatalog{
		products: []catalog.Product{{ID: 1}},
		total:    1,
		attrs:    []catalog.AttributeTaxonomy{{Name: "size"}},
		// No entries in rangeTerms: every range lookup comes back empty.
	}
	agg := &fakeAggregator{result: &aggregation.Result{}}
	schema := buildTestSchema(t, store, agg)

	query := `{
		products(where: {attributeRange: [{attribute: SIZE, min: 1, max: 2}]}) {
			totalCount
		}
	}`

	result := graphql.Do(graphql.Params{Schema: schema, RequestString: query, Context: context.Background()})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	products := data["products"].(map[string]interface{})
	assert.Equal(t, 0, products["totalCount"])
	require.NotNil(t, store.lastRestrict)
	assert.Empty(t, store.lastRestrict)
}
