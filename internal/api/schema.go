package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/storegraph/storegraph/internal/aggregation"
	"github.com/storegraph/storegraph/internal/catalog"
	"github.com/storegraph/storegraph/internal/filter"
)

const defaultPageSize = 20

// CatalogStore is the catalog access the resolvers need. *catalog.Store
// implements it.
type CatalogStore interface {
	filter.TermSource
	filter.RangeStore
	SelectProducts(ctx context.Context, clause filter.Clause, restrictIDs []int64, limit, offset int) ([]catalog.Product, error)
	CountProducts(ctx context.Context, clause filter.Clause, restrictIDs []int64) (int, error)
	AttributeTaxonomies(ctx context.Context) ([]catalog.AttributeTaxonomy, error)
}

// Aggregator computes the aggregation result for a set of criteria.
type Aggregator interface {
	Aggregate(ctx context.Context, criteria filter.Criteria) *aggregation.Result
}

// ProductConnection is the value returned by the products query. The parsed
// criteria ride along unexported so the aggregations field resolver reads
// exactly the filter state its own query ran under, with no process-global
// capture.
type ProductConnection struct {
	Nodes      []catalog.Product `json:"nodes"`
	TotalCount int               `json:"totalCount"`

	criteria filter.Criteria
}

// SchemaBuilder assembles the GraphQL schema over the catalog.
type SchemaBuilder struct {
	store        CatalogStore
	aggregator   Aggregator
	rangeFilter  *filter.RangeFilter
	tables       filter.TableNames
	priceMetaKey string
}

// NewSchemaBuilder creates a schema builder.
func NewSchemaBuilder(store CatalogStore, aggregator Aggregator, rangeFilter *filter.RangeFilter, tables filter.TableNames, priceMetaKey string) *SchemaBuilder {
	return &SchemaBuilder{
		store:        store,
		aggregator:   aggregator,
		rangeFilter:  rangeFilter,
		tables:       tables,
		priceMetaKey: priceMetaKey,
	}
}

// Build constructs the schema. The attribute registry is read once here so
// the taxonomy and attribute enums reflect the deployed catalog; restart the
// service after registering new attributes.
func (b *SchemaBuilder) Build(ctx context.Context) (graphql.Schema, error) {
	attrs, err := b.store.AttributeTaxonomies(ctx)
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to load attribute registry: %w", err)
	}

	priceRangeType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "ProductPriceRange",
		Description: "Price range data for products",
		Fields: graphql.Fields{
			"min": &graphql.Field{Type: graphql.Float},
			"max": &graphql.Field{Type: graphql.Float},
		},
	})

	attributeRangeType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "ProductAttributeRange",
		Description: "Range data for numeric attributes",
		Fields: graphql.Fields{
			"min": &graphql.Field{Type: graphql.Float},
			"max": &graphql.Field{Type: graphql.Float},
		},
	})

	attributeTermType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "ProductAttributeTermAggregation",
		Description: "Product attribute term with count",
		Fields: graphql.Fields{
			"name":  &graphql.Field{Type: graphql.String},
			"slug":  &graphql.Field{Type: graphql.String},
			"count": &graphql.Field{Type: graphql.Int},
		},
	})

	attributeAggregationType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "ProductAttributeAggregation",
		Description: "Product attribute aggregation with range and terms",
		Fields: graphql.Fields{
			"name":  &graphql.Field{Type: graphql.String},
			"slug":  &graphql.Field{Type: graphql.String},
			"type":  &graphql.Field{Type: graphql.String},
			"range": &graphql.Field{Type: attributeRangeType},
			"terms": &graphql.Field{Type: graphql.NewList(attributeTermType)},
		},
	})

	brandAggregationType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "ProductBrandAggregation",
		Description: "Product brand aggregation data",
		Fields: graphql.Fields{
			"name":  &graphql.Field{Type: graphql.String},
			"slug":  &graphql.Field{Type: graphql.String},
			"count": &graphql.Field{Type: graphql.Int},
		},
	})

	aggregationsType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "ProductFilterAggregations",
		Description: "Product filter aggregations with ranges and counts",
		Fields: graphql.Fields{
			"priceRange": &graphql.Field{Type: priceRangeType},
			"attributes": &graphql.Field{Type: graphql.NewList(attributeAggregationType)},
			"brands":     &graphql.Field{Type: graphql.NewList(brandAggregationType)},
		},
	})

	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.Int},
			"name":  &graphql.Field{Type: graphql.String},
			"slug":  &graphql.Field{Type: graphql.String},
			"price": &graphql.Field{Type: graphql.Float},
		},
	})

	connectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ProductConnection",
		Fields: graphql.Fields{
			"nodes":      &graphql.Field{Type: graphql.NewList(productType)},
			"totalCount": &graphql.Field{Type: graphql.Int},
			"aggregations": &graphql.Field{
				Type:        aggregationsType,
				Description: "Filter aggregations for the current product query",
				Resolve:     b.resolveAggregations,
			},
		},
	})

	taxonomyEnum := buildTaxonomyEnum(attrs)

	taxonomyFilterInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ProductTaxonomyFilterInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"taxonomy": &graphql.InputObjectFieldConfig{Type: taxonomyEnum},
			"terms":    &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
		},
	})

	taxonomyFilterListInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ProductTaxonomyInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"filters": &graphql.InputObjectFieldConfig{Type: graphql.NewList(taxonomyFilterInput)},
		},
	})

	attributeRangeInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:        "AttributeRangeFilter",
		Description: "Filter products by attribute range",
		Fields: graphql.InputObjectConfigFieldMap{
			"attribute": &graphql.InputObjectFieldConfig{Type: buildAttributeType(attrs)},
			"min":       &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"max":       &graphql.InputObjectFieldConfig{Type: graphql.Float},
		},
	})

	whereInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ProductsWhereInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"minPrice":       &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"maxPrice":       &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"taxonomyFilter": &graphql.InputObjectFieldConfig{Type: taxonomyFilterListInput},
			"attributeRange": &graphql.InputObjectFieldConfig{Type: graphql.NewList(attributeRangeInput)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type:        connectionType,
				Description: "Product listing with filter aggregations",
				Args: graphql.FieldConfigArgument{
					"where":  &graphql.ArgumentConfig{Type: whereInput},
					"first":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageSize},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: b.resolveProducts,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// resolveProducts parses the where arguments into criteria once, applies the
// range-filter restriction to the listing, and hands the criteria to the
// connection so the aggregations resolver sees the same filter state.
func (b *SchemaBuilder) resolveProducts(p graphql.ResolveParams) (interface{}, error) {
	ctx := p.Context
	criteria := ParseWhereArgs(p.Args["where"])

	first, _ := p.Args["first"].(int)
	if first <= 0 {
		first = defaultPageSize
	}
	offset, _ := p.Args["offset"].(int)
	if offset < 0 {
		offset = 0
	}

	builder := filter.NewClauseBuilder(b.tables, b.priceMetaKey, filter.NewTermExpander(b.store))
	clause, err := builder.Build(ctx, criteria, filter.BuildOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to build filter clause: %w", err)
	}

	// Numeric attribute-range constraints narrow the listing through a
	// separate ID-set pathway, intersected with everything else.
	restrict, err := b.rangeFilter.ProductIDs(ctx, criteria.AttributeRanges)
	if err != nil {
		return nil, fmt.Errorf("failed to apply attribute range filter: %w", err)
	}

	nodes, err := b.store.SelectProducts(ctx, clause, restrict, first, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if nodes == nil {
		nodes = []catalog.Product{}
	}

	total, err := b.store.CountProducts(ctx, clause, restrict)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	return &ProductConnection{
		Nodes:      nodes,
		TotalCount: total,
		criteria:   criteria,
	}, nil
}

// resolveAggregations reads the criteria captured by the products resolver
// and delegates to the aggregation engine, which never fails.
func (b *SchemaBuilder) resolveAggregations(p graphql.ResolveParams) (interface{}, error) {
	conn, ok := p.Source.(*ProductConnection)
	if !ok {
		return emptyAggregations(), nil
	}
	return b.aggregator.Aggregate(p.Context, conn.criteria), nil
}

func emptyAggregations() *aggregation.Result {
	return &aggregation.Result{
		Attributes: []aggregation.AttributeAggregation{},
		Brands:     []catalog.TermCount{},
	}
}

// buildTaxonomyEnum lists the fixed dimensions plus one PA_* value per
// registered attribute.
func buildTaxonomyEnum(attrs []catalog.AttributeTaxonomy) *graphql.Enum {
	values := graphql.EnumValueConfigMap{
		"PRODUCT_CAT":   &graphql.EnumValueConfig{Value: "PRODUCT_CAT", Description: "Product categories"},
		"PRODUCT_TAG":   &graphql.EnumValueConfig{Value: "PRODUCT_TAG", Description: "Product tags"},
		"PRODUCT_BRAND": &graphql.EnumValueConfig{Value: "PRODUCT_BRAND", Description: "Product brands"},
	}
	for _, attr := range attrs {
		name := "PA_" + strings.ToUpper(attr.Name)
		values[name] = &graphql.EnumValueConfig{Value: name, Description: attr.Label}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:        "ProductTaxonomyEnum",
		Description: "Filterable product taxonomies",
		Values:      values,
	})
}

// buildAttributeType returns an enum of the registered attribute names, or
// plain String when the registry is empty (an enum needs at least one
// value).
func buildAttributeType(attrs []catalog.AttributeTaxonomy) graphql.Input {
	if len(attrs) == 0 {
		return graphql.String
	}
	values := graphql.EnumValueConfigMap{}
	for _, attr := range attrs {
		description := attr.Label
		if description == "" {
			description = attr.Name
		}
		values[strings.ToUpper(attr.Name)] = &graphql.EnumValueConfig{Value: attr.Name, Description: description}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:        "ProductAttributeEnum",
		Description: "Available product attributes",
		Values:      values,
	})
}
