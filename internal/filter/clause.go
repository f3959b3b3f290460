package filter

import (
	"context"
	"fmt"
	"strings"
)

// TableNames holds the catalog table names the builder splices into join
// fragments. Names come from validated configuration, never from request
// data.
type TableNames struct {
	PostMeta          string
	Terms             string
	TermTaxonomy      string
	TermRelationships string
}

// Clause is the composable output of the builder: join fragments, predicate
// fragments, and the bound values their placeholders refer to. A clause is
// safe to concatenate into any SELECT over the products table aliased "p".
type Clause struct {
	Joins      []string
	Predicates []string
	Args       []any
}

// JoinSQL renders the join fragments as a single SQL snippet.
func (c Clause) JoinSQL() string {
	return strings.Join(c.Joins, " ")
}

// WhereSQL renders the predicates with a leading AND, or the empty string
// when there are none, so the caller can append it after its own fixed
// predicates.
func (c Clause) WhereSQL() string {
	if len(c.Predicates) == 0 {
		return ""
	}
	return "AND " + strings.Join(c.Predicates, " AND ")
}

// BuildOptions controls which filter dimensions the builder leaves out.
// Excluding a dimension is what lets that dimension's own aggregation see
// every other active filter but not its own.
type BuildOptions struct {
	// ExcludePrice drops the price bounds from the clause.
	ExcludePrice bool
	// ExcludeTaxonomy drops the taxonomy filter whose resolved catalog name
	// equals this value. Empty means exclude nothing.
	ExcludeTaxonomy string
	// StartArg is the placeholder number assigned to the first bound value
	// (default 1). Callers that bind their own parameters ahead of the
	// clause set this to compose without renumbering.
	StartArg int
}

// ClauseBuilder turns criteria into SQL fragments. It holds no per-request
// state itself; the per-request term expander it wraps owns the memoization
// cache.
type ClauseBuilder struct {
	tables       TableNames
	priceMetaKey string
	expander     *TermExpander
}

// NewClauseBuilder creates a builder over the given catalog tables. The
// expander must be scoped to the same request as the clauses being built.
func NewClauseBuilder(tables TableNames, priceMetaKey string, expander *TermExpander) *ClauseBuilder {
	return &ClauseBuilder{
		tables:       tables,
		priceMetaKey: priceMetaKey,
		expander:     expander,
	}
}

// Build produces the clause representing "products matching every active
// filter in criteria", minus the dimensions excluded by opts. Empty criteria
// produce an empty clause.
func (b *ClauseBuilder) Build(ctx context.Context, criteria Criteria, opts BuildOptions) (Clause, error) {
	clause := Clause{}
	next := opts.StartArg
	if next < 1 {
		next = 1
	}

	// placeholder appends an argument and returns its $n placeholder.
	placeholder := func(value any) string {
		clause.Args = append(clause.Args, value)
		p := fmt.Sprintf("$%d", next)
		next++
		return p
	}

	if !opts.ExcludePrice && criteria.HasPriceFilter() {
		clause.Joins = append(clause.Joins, fmt.Sprintf(
			"LEFT JOIN %s pm_price ON p.id = pm_price.post_id AND pm_price.meta_key = %s",
			b.tables.PostMeta, placeholder(b.priceMetaKey)))

		if criteria.MinPrice != nil {
			clause.Predicates = append(clause.Predicates,
				fmt.Sprintf("CAST(pm_price.meta_value AS NUMERIC) >= %s", placeholder(*criteria.MinPrice)))
		}
		if criteria.MaxPrice != nil {
			clause.Predicates = append(clause.Predicates,
				fmt.Sprintf("CAST(pm_price.meta_value AS NUMERIC) <= %s", placeholder(*criteria.MaxPrice)))
		}
	}

	joinIndex := 0
	for _, tf := range criteria.TaxonomyFilters {
		taxonomy := ResolveDimension(tf.Taxonomy)
		if opts.ExcludeTaxonomy != "" && taxonomy == opts.ExcludeTaxonomy {
			continue
		}

		// Fresh aliases per occurrence so repeated taxonomy filters never
		// collide within one query.
		trAlias := fmt.Sprintf("tr_filter_%d", joinIndex)
		ttAlias := fmt.Sprintf("tt_filter_%d", joinIndex)
		tAlias := fmt.Sprintf("t_filter_%d", joinIndex)

		clause.Joins = append(clause.Joins,
			fmt.Sprintf("INNER JOIN %s %s ON p.id = %s.object_id", b.tables.TermRelationships, trAlias, trAlias),
			fmt.Sprintf("INNER JOIN %s %s ON %s.term_taxonomy_id = %s.term_taxonomy_id", b.tables.TermTaxonomy, ttAlias, trAlias, ttAlias),
			fmt.Sprintf("INNER JOIN %s %s ON %s.term_id = %s.term_id", b.tables.Terms, tAlias, ttAlias, tAlias),
		)

		clause.Predicates = append(clause.Predicates,
			fmt.Sprintf("%s.taxonomy = %s", ttAlias, placeholder(taxonomy)))

		if len(tf.Terms) > 0 {
			expanded := []string{}
			for _, slug := range tf.Terms {
				slugs, err := b.expander.Expand(ctx, taxonomy, slug)
				if err != nil {
					return Clause{}, err
				}
				expanded = append(expanded, slugs...)
			}
			expanded = dedupeStrings(expanded)

			// An empty expansion (every requested slug unknown) emits no
			// slug predicate: the dimension constrains by taxonomy
			// membership only rather than forcing zero results.
			if len(expanded) > 0 {
				placeholders := make([]string, len(expanded))
				for i, slug := range expanded {
					placeholders[i] = placeholder(slug)
				}
				clause.Predicates = append(clause.Predicates,
					fmt.Sprintf("%s.slug IN (%s)", tAlias, strings.Join(placeholders, ",")))
			}
		}

		joinIndex++
	}

	clause.Joins = dedupeStrings(clause.Joins)
	return clause, nil
}
