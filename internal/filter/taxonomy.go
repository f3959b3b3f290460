package filter

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// dimensionTaxonomies maps the fixed caller-facing dimension identifiers to
// catalog taxonomy names. Attribute dimensions are derived by naming
// convention instead (see ResolveDimension).
var dimensionTaxonomies = map[string]string{
	"PRODUCT_CAT":   "product_cat",
	"PRODUCT_TAG":   "product_tag",
	"PRODUCT_BRAND": "product_brand",
}

const (
	dimensionAttributePrefix = "PA_"
	taxonomyAttributePrefix  = "pa_"
)

// ResolveDimension maps a dimension identifier to a catalog taxonomy name.
// It is total: unknown identifiers resolve to a lower-cased copy of the
// input, which simply matches no rows if no such taxonomy exists.
func ResolveDimension(dimension string) string {
	if taxonomy, ok := dimensionTaxonomies[dimension]; ok {
		return taxonomy
	}
	if strings.HasPrefix(dimension, dimensionAttributePrefix) {
		return taxonomyAttributePrefix + strings.ToLower(strings.TrimPrefix(dimension, dimensionAttributePrefix))
	}
	return strings.ToLower(dimension)
}

// AttributeTaxonomyName returns the generated taxonomy name for a product
// attribute, e.g. "Size" -> "pa_size".
func AttributeTaxonomyName(attribute string) string {
	return taxonomyAttributePrefix + strings.ToLower(attribute)
}

// Term is the minimal view of a catalog term the filter package needs.
type Term struct {
	ID   int64
	Slug string
}

// TermSource provides term lookups for hierarchy expansion. Implemented by
// the catalog store; tests substitute an in-memory fixture.
type TermSource interface {
	// TermBySlug returns the term with the given slug within the taxonomy,
	// or nil when no such term exists.
	TermBySlug(ctx context.Context, taxonomy, slug string) (*Term, error)
	// ChildTerms returns the direct children of the given term.
	ChildTerms(ctx context.Context, taxonomy string, parentID int64) ([]Term, error)
}

// TermExpander expands a term slug to itself plus all descendant slugs.
// Results are memoized per (taxonomy, slug) pair; an expander is scoped to a
// single request and discarded afterwards, so the cache never leaks between
// requests. The cache is mutex-guarded so aggregation sub-queries may share
// one expander across goroutines.
type TermExpander struct {
	source TermSource

	mu    sync.Mutex
	cache map[string][]string
}

// NewTermExpander creates an expander backed by the given term source.
func NewTermExpander(source TermSource) *TermExpander {
	return &TermExpander{
		source: source,
		cache:  make(map[string][]string),
	}
}

// Expand returns the slug plus the slugs of all descendant terms,
// deduplicated. An unknown slug expands to the empty set.
func (e *TermExpander) Expand(ctx context.Context, taxonomy, slug string) ([]string, error) {
	key := taxonomy + ":" + slug

	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return cached, nil
	}
	e.mu.Unlock()

	slugs, err := e.expand(ctx, taxonomy, slug, make(map[string]bool))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[key] = slugs
	e.mu.Unlock()

	return slugs, nil
}

// expand walks the hierarchy depth-first. seen guards against cycles in the
// parent/child relation, which the catalog does not promise to prevent.
func (e *TermExpander) expand(ctx context.Context, taxonomy, slug string, seen map[string]bool) ([]string, error) {
	if seen[slug] {
		return nil, nil
	}
	seen[slug] = true

	term, err := e.source.TermBySlug(ctx, taxonomy, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up term %q in %q: %w", slug, taxonomy, err)
	}
	if term == nil {
		return nil, nil
	}

	slugs := []string{term.Slug}

	children, err := e.source.ChildTerms(ctx, taxonomy, term.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of term %q in %q: %w", slug, taxonomy, err)
	}
	for _, child := range children {
		childSlugs, err := e.expand(ctx, taxonomy, child.Slug, seen)
		if err != nil {
			return nil, err
		}
		slugs = append(slugs, childSlugs...)
	}

	return dedupeStrings(slugs), nil
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
