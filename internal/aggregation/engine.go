package aggregation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storegraph/storegraph/internal/catalog"
	"github.com/storegraph/storegraph/internal/filter"
)

// Store is the catalog access the engine needs. *catalog.Store implements
// it; tests substitute a fixture.
type Store interface {
	SelectProductIDs(ctx context.Context, clause filter.Clause) ([]int64, error)
	PriceRange(ctx context.Context, ids []int64) (float64, float64, error)
	TermCounts(ctx context.Context, taxonomy string, clause filter.Clause) ([]catalog.TermCount, error)
	NumericTermRange(ctx context.Context, taxonomy string, ids []int64) (float64, float64, error)
	AttributeTaxonomies(ctx context.Context) ([]catalog.AttributeTaxonomy, error)
}

// Engine orchestrates the aggregation sub-queries. Each sub-query is
// independently recoverable: a failure is logged, counted, and degraded to
// that field's zero value without failing the response.
type Engine struct {
	store         Store
	terms         filter.TermSource
	tables        filter.TableNames
	priceMetaKey  string
	brandTaxonomy string
}

// NewEngine creates an aggregation engine.
func NewEngine(store Store, terms filter.TermSource, tables filter.TableNames, priceMetaKey, brandTaxonomy string) *Engine {
	return &Engine{
		store:         store,
		terms:         terms,
		tables:        tables,
		priceMetaKey:  priceMetaKey,
		brandTaxonomy: brandTaxonomy,
	}
}

// Aggregate assembles the full aggregation result for the given criteria.
// It never fails: sub-query errors degrade the affected field, and any
// uncaught panic degrades the whole result to empty.
func (e *Engine) Aggregate(ctx context.Context, criteria filter.Criteria) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Aggregation panicked, returning empty result")
			degradedTotal.WithLabelValues("aggregate").Inc()
			result = emptyResult()
		}
	}()

	// One expander per request: the memoized term expansions must not
	// outlive the criteria they were computed under.
	builder := filter.NewClauseBuilder(e.tables, e.priceMetaKey, filter.NewTermExpander(e.terms))

	result = &Result{
		PriceRange: e.priceRange(ctx, builder, criteria),
		Attributes: e.attributeAggregations(ctx, builder, criteria),
		Brands:     e.brandAggregations(ctx, builder, criteria),
	}
	return result
}

// priceRange computes the min/max price over products matching every filter
// except the price filter itself.
func (e *Engine) priceRange(ctx context.Context, builder *filter.ClauseBuilder, criteria filter.Criteria) PriceRange {
	const op = "price_range"
	defer observe(op)()

	clause, err := builder.Build(ctx, criteria, filter.BuildOptions{ExcludePrice: true})
	if err != nil {
		return degradeZero(op, err, PriceRange{})
	}

	ids, err := e.store.SelectProductIDs(ctx, clause)
	if err != nil {
		return degradeZero(op, err, PriceRange{})
	}
	if len(ids) == 0 {
		return PriceRange{}
	}

	min, max, err := e.store.PriceRange(ctx, ids)
	if err != nil {
		return degradeZero(op, err, PriceRange{})
	}
	return PriceRange{Min: min, Max: max}
}

// attributeAggregations computes facet data for every registered attribute.
// An attribute is included when it has at least one counted term or a
// non-degenerate numeric range.
func (e *Engine) attributeAggregations(ctx context.Context, builder *filter.ClauseBuilder, criteria filter.Criteria) []AttributeAggregation {
	const op = "attributes"
	defer observe(op)()

	attrs, err := e.store.AttributeTaxonomies(ctx)
	if err != nil {
		return degradeZero(op, err, []AttributeAggregation{})
	}

	result := make([]AttributeAggregation, 0, len(attrs))
	for _, attr := range attrs {
		taxonomy := filter.AttributeTaxonomyName(attr.Name)

		terms := e.taxonomyTermCounts(ctx, builder, taxonomy, criteria)
		rng := e.attributeNumericRange(ctx, builder, taxonomy, criteria)

		if len(terms) == 0 && rng.Min == rng.Max {
			continue
		}

		name := attr.Label
		if name == "" {
			name = attr.Name
		}
		attrType := attr.Type
		if attrType == "" {
			attrType = "select"
		}

		result = append(result, AttributeAggregation{
			Name:  name,
			Slug:  taxonomy,
			Type:  attrType,
			Range: rng,
			Terms: terms,
		})
	}
	return result
}

// taxonomyTermCounts counts matching products per term in the taxonomy,
// excluding the taxonomy's own filter from the clause. Selecting "red" under
// color must not remove "blue" from the color facet, while every other
// active filter still applies.
func (e *Engine) taxonomyTermCounts(ctx context.Context, builder *filter.ClauseBuilder, taxonomy string, criteria filter.Criteria) []catalog.TermCount {
	const op = "term_counts"
	defer observe(op)()

	clause, err := builder.Build(ctx, criteria, filter.BuildOptions{ExcludeTaxonomy: taxonomy})
	if err != nil {
		return degradeTaxonomy(op, taxonomy, err)
	}

	counts, err := e.store.TermCounts(ctx, taxonomy, clause)
	if err != nil {
		return degradeTaxonomy(op, taxonomy, err)
	}
	if counts == nil {
		counts = []catalog.TermCount{}
	}
	return counts
}

// attributeNumericRange computes the numeric value range of the attribute's
// terms over products matching the criteria with this taxonomy excluded but
// the price filter still applied. Price stays in scope here, unlike the
// price facet's own computation.
func (e *Engine) attributeNumericRange(ctx context.Context, builder *filter.ClauseBuilder, taxonomy string, criteria filter.Criteria) AttributeRange {
	const op = "attribute_range"
	defer observe(op)()

	clause, err := builder.Build(ctx, criteria, filter.BuildOptions{ExcludeTaxonomy: taxonomy})
	if err != nil {
		return degradeZero(op, err, AttributeRange{})
	}

	ids, err := e.store.SelectProductIDs(ctx, clause)
	if err != nil {
		return degradeZero(op, err, AttributeRange{})
	}
	if len(ids) == 0 {
		return AttributeRange{}
	}

	min, max, err := e.store.NumericTermRange(ctx, taxonomy, ids)
	if err != nil {
		return degradeZero(op, err, AttributeRange{})
	}
	return AttributeRange{Min: min, Max: max}
}

// brandAggregations is the term-count facet fixed to the brand taxonomy.
func (e *Engine) brandAggregations(ctx context.Context, builder *filter.ClauseBuilder, criteria filter.Criteria) []catalog.TermCount {
	return e.taxonomyTermCounts(ctx, builder, e.brandTaxonomy, criteria)
}

func observe(op string) func() {
	start := time.Now()
	return func() {
		queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func degradeZero[T any](op string, err error, zero T) T {
	log.Error().Err(err).Str("operation", op).Msg("Aggregation sub-query failed, degrading to zero value")
	degradedTotal.WithLabelValues(op).Inc()
	return zero
}

func degradeTaxonomy(op, taxonomy string, err error) []catalog.TermCount {
	log.Error().Err(err).Str("operation", op).Str("taxonomy", taxonomy).Msg("Aggregation sub-query failed, degrading to zero value")
	degradedTotal.WithLabelValues(op).Inc()
	return []catalog.TermCount{}
}
