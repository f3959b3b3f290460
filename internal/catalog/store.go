package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/storegraph/storegraph/internal/database"
	"github.com/storegraph/storegraph/internal/filter"
)

const (
	productPostType   = "product"
	productPostStatus = "publish"

	// numericNamePattern matches term names / meta values that are plain
	// decimal numerals. Values failing the pattern are excluded before any
	// numeric cast so malformed data never aborts a query.
	numericNamePattern = `^[0-9]+(\.[0-9]+)?$`
)

// Store executes the catalog queries. Clause arguments always occupy the
// leading placeholder positions; the store binds its own parameters after
// them.
type Store struct {
	db           *database.Connection
	tables       Tables
	priceMetaKey string
}

// NewStore creates a catalog store.
func NewStore(db *database.Connection, tables Tables, priceMetaKey string) *Store {
	return &Store{db: db, tables: tables, priceMetaKey: priceMetaKey}
}

// Tables returns the table-name resolver the store was built with.
func (s *Store) Tables() Tables {
	return s.tables
}

// SelectProductIDs returns the distinct IDs of published products matching
// the clause.
func (s *Store) SelectProductIDs(ctx context.Context, clause filter.Clause) ([]int64, error) {
	sql := fmt.Sprintf(`
		SELECT DISTINCT p.id
		FROM %s p
		%s
		WHERE p.post_type = '%s'
		AND p.post_status = '%s'
		%s`,
		s.tables.Posts(), clause.JoinSQL(), productPostType, productPostStatus, clause.WhereSQL())

	return s.selectIDs(ctx, sql, clause.Args...)
}

// PriceRange returns the min and max price over the given product IDs.
// Absent, empty, and non-numeric price values are excluded; zero matching
// values yield {0, 0}.
func (s *Store) PriceRange(ctx context.Context, ids []int64) (float64, float64, error) {
	sql := fmt.Sprintf(`
		SELECT COALESCE(MIN(CAST(meta_value AS NUMERIC)), 0),
		       COALESCE(MAX(CAST(meta_value AS NUMERIC)), 0)
		FROM %s
		WHERE post_id = ANY($1)
		AND meta_key = $2
		AND meta_value IS NOT NULL
		AND meta_value <> ''
		AND meta_value ~ '%s'`,
		s.tables.PostMeta(), numericNamePattern)

	var min, max float64
	if err := s.db.QueryRow(ctx, sql, ids, s.priceMetaKey).Scan(&min, &max); err != nil {
		return 0, 0, fmt.Errorf("failed to query price range: %w", err)
	}
	return min, max, nil
}

// TermCounts returns, for every term in the taxonomy, the number of distinct
// published products that match the clause and carry the term. Terms with no
// matching products are filtered out; results are ordered by term name.
func (s *Store) TermCounts(ctx context.Context, taxonomy string, clause filter.Clause) ([]TermCount, error) {
	taxonomyArg := len(clause.Args) + 1
	sql := fmt.Sprintf(`
		SELECT t.name, t.slug, COUNT(DISTINCT p.id) AS count
		FROM %s p
		INNER JOIN %s tr ON p.id = tr.object_id
		INNER JOIN %s tt ON tr.term_taxonomy_id = tt.term_taxonomy_id
		INNER JOIN %s t ON tt.term_id = t.term_id
		%s
		WHERE p.post_type = '%s'
		AND p.post_status = '%s'
		AND tt.taxonomy = $%d
		%s
		GROUP BY t.term_id, t.name, t.slug
		HAVING COUNT(DISTINCT p.id) > 0
		ORDER BY t.name ASC`,
		s.tables.Posts(), s.tables.TermRelationships(), s.tables.TermTaxonomy(), s.tables.Terms(),
		clause.JoinSQL(), productPostType, productPostStatus, taxonomyArg, clause.WhereSQL())

	args := append(append([]any{}, clause.Args...), taxonomy)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query term counts for %q: %w", taxonomy, err)
	}
	defer rows.Close()

	var counts []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Name, &tc.Slug, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan term count row: %w", err)
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

// NumericTermRange returns the min and max of the numeric term names in the
// taxonomy across the given product IDs. Non-numeric term names are
// excluded; zero numeric terms yield {0, 0}.
func (s *Store) NumericTermRange(ctx context.Context, taxonomy string, ids []int64) (float64, float64, error) {
	sql := fmt.Sprintf(`
		SELECT COALESCE(MIN(CAST(t.name AS NUMERIC)), 0),
		       COALESCE(MAX(CAST(t.name AS NUMERIC)), 0),
		       COUNT(DISTINCT t.term_id)
		FROM %s t
		INNER JOIN %s tt ON t.term_id = tt.term_id
		INNER JOIN %s tr ON tt.term_taxonomy_id = tr.term_taxonomy_id
		WHERE tr.object_id = ANY($1)
		AND tt.taxonomy = $2
		AND t.name ~ '%s'`,
		s.tables.Terms(), s.tables.TermTaxonomy(), s.tables.TermRelationships(), numericNamePattern)

	var min, max float64
	var numericTerms int
	if err := s.db.QueryRow(ctx, sql, ids, taxonomy).Scan(&min, &max, &numericTerms); err != nil {
		return 0, 0, fmt.Errorf("failed to query numeric range for %q: %w", taxonomy, err)
	}
	if numericTerms == 0 {
		return 0, 0, nil
	}
	return min, max, nil
}

// NumericTermIDs returns the IDs of terms in the taxonomy whose name is a
// decimal numeral within [min, max]. The cast is guarded by the pattern
// match inside a CASE so predicate reordering cannot cast a non-numeric
// name.
func (s *Store) NumericTermIDs(ctx context.Context, taxonomy string, min, max float64) ([]int64, error) {
	sql := fmt.Sprintf(`
		SELECT t.term_id
		FROM %s t
		INNER JOIN %s tt ON t.term_id = tt.term_id
		WHERE tt.taxonomy = $1
		AND (CASE WHEN t.name ~ '%s' THEN CAST(t.name AS NUMERIC) END) >= $2
		AND (CASE WHEN t.name ~ '%s' THEN CAST(t.name AS NUMERIC) END) <= $3`,
		s.tables.Terms(), s.tables.TermTaxonomy(), numericNamePattern, numericNamePattern)

	return s.selectIDs(ctx, sql, taxonomy, min, max)
}

// ProductIDsByTermIDs returns the distinct IDs of published products related
// to any of the given terms within the taxonomy.
func (s *Store) ProductIDsByTermIDs(ctx context.Context, taxonomy string, termIDs []int64) ([]int64, error) {
	sql := fmt.Sprintf(`
		SELECT DISTINCT p.id
		FROM %s p
		INNER JOIN %s tr ON p.id = tr.object_id
		INNER JOIN %s tt ON tr.term_taxonomy_id = tt.term_taxonomy_id
		WHERE p.post_type = '%s'
		AND p.post_status = '%s'
		AND tt.taxonomy = $1
		AND tt.term_id = ANY($2)`,
		s.tables.Posts(), s.tables.TermRelationships(), s.tables.TermTaxonomy(),
		productPostType, productPostStatus)

	return s.selectIDs(ctx, sql, taxonomy, termIDs)
}

// TermBySlug returns the term with the given slug within the taxonomy, or
// nil when absent.
func (s *Store) TermBySlug(ctx context.Context, taxonomy, slug string) (*filter.Term, error) {
	sql := fmt.Sprintf(`
		SELECT t.term_id, t.slug
		FROM %s t
		INNER JOIN %s tt ON t.term_id = tt.term_id
		WHERE tt.taxonomy = $1
		AND t.slug = $2`,
		s.tables.Terms(), s.tables.TermTaxonomy())

	var term filter.Term
	if err := s.db.QueryRow(ctx, sql, taxonomy, slug).Scan(&term.ID, &term.Slug); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up term %q: %w", slug, err)
	}
	return &term, nil
}

// ChildTerms returns the direct children of the given term within the
// taxonomy.
func (s *Store) ChildTerms(ctx context.Context, taxonomy string, parentID int64) ([]filter.Term, error) {
	sql := fmt.Sprintf(`
		SELECT t.term_id, t.slug
		FROM %s t
		INNER JOIN %s tt ON t.term_id = tt.term_id
		WHERE tt.taxonomy = $1
		AND tt.parent = $2
		ORDER BY t.term_id`,
		s.tables.Terms(), s.tables.TermTaxonomy())

	rows, err := s.db.Query(ctx, sql, taxonomy, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child terms: %w", err)
	}
	defer rows.Close()

	var terms []filter.Term
	for rows.Next() {
		var t filter.Term
		if err := rows.Scan(&t.ID, &t.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan term row: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// AttributeTaxonomies returns the registered product attributes from the
// catalog's attribute registry.
func (s *Store) AttributeTaxonomies(ctx context.Context) ([]AttributeTaxonomy, error) {
	sql := fmt.Sprintf(`
		SELECT attribute_name, COALESCE(attribute_label, ''), COALESCE(attribute_type, '')
		FROM %s
		ORDER BY attribute_name`,
		s.tables.AttributeTaxonomies())

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to list attribute taxonomies: %w", err)
	}
	defer rows.Close()

	var attrs []AttributeTaxonomy
	for rows.Next() {
		var a AttributeTaxonomy
		if err := rows.Scan(&a.Name, &a.Label, &a.Type); err != nil {
			return nil, fmt.Errorf("failed to scan attribute taxonomy row: %w", err)
		}
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

// SelectProducts returns the products matching the clause, optionally
// restricted to an ID set (nil means unrestricted; an empty non-nil set
// matches nothing). Results are ordered by ID.
func (s *Store) SelectProducts(ctx context.Context, clause filter.Clause, restrictIDs []int64, limit, offset int) ([]Product, error) {
	args := append([]any{}, clause.Args...)
	next := func(value any) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT DISTINCT p.id, p.post_title, p.post_name, pm_listing.meta_value
		FROM %s p
		LEFT JOIN %s pm_listing ON p.id = pm_listing.post_id AND pm_listing.meta_key = %s
		%s
		WHERE p.post_type = '%s'
		AND p.post_status = '%s'
		%s`,
		s.tables.Posts(), s.tables.PostMeta(), next(s.priceMetaKey),
		clause.JoinSQL(), productPostType, productPostStatus, clause.WhereSQL())

	if restrictIDs != nil {
		fmt.Fprintf(&sb, " AND p.id = ANY(%s)", next(restrictIDs))
	}

	sb.WriteString(" ORDER BY p.id")
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %s OFFSET %s", next(limit), next(offset))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var rawPrice *string
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &rawPrice); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		if rawPrice != nil && *rawPrice != "" {
			if price, err := strconv.ParseFloat(*rawPrice, 64); err == nil {
				p.Price = &price
			}
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountProducts returns the number of distinct products matching the clause
// and optional ID restriction.
func (s *Store) CountProducts(ctx context.Context, clause filter.Clause, restrictIDs []int64) (int, error) {
	args := append([]any{}, clause.Args...)

	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT COUNT(DISTINCT p.id)
		FROM %s p
		%s
		WHERE p.post_type = '%s'
		AND p.post_status = '%s'
		%s`,
		s.tables.Posts(), clause.JoinSQL(), productPostType, productPostStatus, clause.WhereSQL())

	if restrictIDs != nil {
		args = append(args, restrictIDs)
		fmt.Fprintf(&sb, " AND p.id = ANY($%d)", len(args))
	}

	var count int
	if err := s.db.QueryRow(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (s *Store) selectIDs(ctx context.Context, sql string, args ...any) ([]int64, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
