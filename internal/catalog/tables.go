// Package catalog provides read-only access to the storefront's relational
// product catalog (posts / postmeta / terms / term_taxonomy /
// term_relationships, with a per-deployment table prefix). This service
// never writes the catalog and does not own its schema.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/storegraph/storegraph/internal/filter"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Tables resolves logical catalog entities to physical table names. The
// prefix is spliced into SQL identifier position, so it is validated here
// even though config validates it too.
type Tables struct {
	prefix string
}

// NewTables validates the prefix and returns a table-name resolver. An empty
// prefix is allowed.
func NewTables(prefix string) (Tables, error) {
	if prefix != "" && !prefixPattern.MatchString(strings.TrimSuffix(prefix, "_")) {
		return Tables{}, fmt.Errorf("invalid table prefix %q", prefix)
	}
	return Tables{prefix: prefix}, nil
}

func (t Tables) Posts() string               { return t.prefix + "posts" }
func (t Tables) PostMeta() string            { return t.prefix + "postmeta" }
func (t Tables) Terms() string               { return t.prefix + "terms" }
func (t Tables) TermTaxonomy() string        { return t.prefix + "term_taxonomy" }
func (t Tables) TermRelationships() string   { return t.prefix + "term_relationships" }
func (t Tables) AttributeTaxonomies() string { return t.prefix + "attribute_taxonomies" }

// FilterTables returns the table names the clause builder needs.
func (t Tables) FilterTables() filter.TableNames {
	return filter.TableNames{
		PostMeta:          t.PostMeta(),
		Terms:             t.Terms(),
		TermTaxonomy:      t.TermTaxonomy(),
		TermRelationships: t.TermRelationships(),
	}
}
