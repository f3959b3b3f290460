package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/rs/zerolog/log"

	"github.com/storegraph/storegraph/internal/config"
)

// GraphQLHandler handles GraphQL HTTP requests
type GraphQLHandler struct {
	schema graphql.Schema
	config *config.GraphQLConfig
}

// GraphQLRequest represents a GraphQL HTTP request body
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLResponse represents a GraphQL HTTP response body
type GraphQLResponse struct {
	Data   interface{}    `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message   string                 `json:"message"`
	Locations []GraphQLErrorLocation `json:"locations,omitempty"`
	Path      []interface{}          `json:"path,omitempty"`
}

// GraphQLErrorLocation represents the location of a GraphQL error in the query
type GraphQLErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// NewGraphQLHandler creates a handler serving the given schema.
func NewGraphQLHandler(schema graphql.Schema, cfg *config.GraphQLConfig) *GraphQLHandler {
	return &GraphQLHandler{schema: schema, config: cfg}
}

// RegisterRoutes registers GraphQL routes with the Fiber app
func (h *GraphQLHandler) RegisterRoutes(app *fiber.App) {
	group := app.Group("/api/v1/graphql")
	group.Post("/", h.HandleGraphQL)
	group.Get("/", h.HandleIntrospection)
}

// HandleGraphQL handles POST /api/v1/graphql requests
func (h *GraphQLHandler) HandleGraphQL(c fiber.Ctx) error {
	startTime := time.Now()
	ctx := c.Context()

	var req GraphQLRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(GraphQLResponse{
			Errors: []GraphQLError{{Message: "Invalid JSON in request body"}},
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(GraphQLResponse{
			Errors: []GraphQLError{{Message: "Query string is required"}},
		})
	}

	if h.config.MaxDepth > 0 {
		depth, err := calculateQueryDepth(req.Query)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(GraphQLResponse{
				Errors: []GraphQLError{{Message: "Invalid query syntax"}},
			})
		}
		if depth > h.config.MaxDepth {
			return c.Status(fiber.StatusBadRequest).JSON(GraphQLResponse{
				Errors: []GraphQLError{{
					Message: fmt.Sprintf("query depth %d exceeds maximum allowed depth of %d", depth, h.config.MaxDepth),
				}},
			})
		}
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	log.Debug().
		Str("operation", req.OperationName).
		Int("errors", len(result.Errors)).
		Dur("duration", time.Since(startTime)).
		Msg("GraphQL query executed")

	return c.JSON(GraphQLResponse{
		Data:   result.Data,
		Errors: convertErrors(result.Errors),
	})
}

// HandleIntrospection handles GET /api/v1/graphql (returns introspection data)
func (h *GraphQLHandler) HandleIntrospection(c fiber.Ctx) error {
	if !h.config.Introspection {
		return c.Status(fiber.StatusForbidden).JSON(GraphQLResponse{
			Errors: []GraphQLError{{Message: "Introspection is disabled"}},
		})
	}

	result := graphql.Do(graphql.Params{
		Schema:        h.schema,
		RequestString: introspectionQuery,
		Context:       c.Context(),
	})

	return c.JSON(GraphQLResponse{
		Data:   result.Data,
		Errors: convertErrors(result.Errors),
	})
}

// convertErrors converts graphql-go errors to our format
func convertErrors(errors []gqlerrors.FormattedError) []GraphQLError {
	if len(errors) == 0 {
		return nil
	}

	result := make([]GraphQLError, len(errors))
	for i, err := range errors {
		gqlErr := GraphQLError{
			Message: err.Message,
			Path:    err.Path,
		}
		if len(err.Locations) > 0 {
			gqlErr.Locations = make([]GraphQLErrorLocation, len(err.Locations))
			for j, loc := range err.Locations {
				gqlErr.Locations[j] = GraphQLErrorLocation{
					Line:   loc.Line,
					Column: loc.Column,
				}
			}
		}
		result[i] = gqlErr
	}
	return result
}

// calculateQueryDepth returns the maximum depth of a GraphQL query
func calculateQueryDepth(query string) (int, error) {
	if query == "" {
		return 0, fmt.Errorf("query cannot be empty")
	}

	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return 0, err
	}

	var maxDepth int
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			depth := calculateSelectionSetDepth(op.SelectionSet, 0)
			if depth > maxDepth {
				maxDepth = depth
			}
		}
	}
	return maxDepth, nil
}

// calculateSelectionSetDepth recursively calculates the depth of a selection set
func calculateSelectionSetDepth(selSet *ast.SelectionSet, currentDepth int) int {
	if selSet == nil || len(selSet.Selections) == 0 {
		return currentDepth
	}

	maxDepth := currentDepth + 1
	for _, sel := range selSet.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			depth := calculateSelectionSetDepth(s.SelectionSet, currentDepth+1)
			if depth > maxDepth {
				maxDepth = depth
			}
		case *ast.InlineFragment:
			depth := calculateSelectionSetDepth(s.SelectionSet, currentDepth+1)
			if depth > maxDepth {
				maxDepth = depth
			}
		case *ast.FragmentSpread:
			// Fragment spreads need document context to resolve; count as +1.
			if currentDepth+1 > maxDepth {
				maxDepth = currentDepth + 1
			}
		}
	}
	return maxDepth
}

const introspectionQuery = `
query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    types {
      kind
      name
      description
      fields(includeDeprecated: true) {
        name
        description
        args { name description type { ...TypeRef } defaultValue }
        type { ...TypeRef }
        isDeprecated
        deprecationReason
      }
      inputFields { name description type { ...TypeRef } defaultValue }
      interfaces { ...TypeRef }
      enumValues(includeDeprecated: true) {
        name
        description
        isDeprecated
        deprecationReason
      }
      possibleTypes { ...TypeRef }
    }
  }
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType { kind name }
    }
  }
}
`
