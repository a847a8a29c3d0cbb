package graphqlserver

import (
	gql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"backoffice.GO/graphql"
	"backoffice.GO/graphql/resolvers"
)

// RootResolver is the root for graphql-go. Query fields resolve on the
// embedded QueryResolver; the schema has no mutations.
type RootResolver struct {
	*resolvers.QueryResolver
}

// NewSchema parses the embedded schema against the given read services.
func NewSchema(s resolvers.Services) (*gql.Schema, error) {
	root := &RootResolver{QueryResolver: resolvers.NewQueryResolver(s)}
	return gql.ParseSchema(graphql.Schema(), root, gql.UseFieldResolvers(), gql.MaxDepth(6))
}

// Handler returns an http.Handler for GraphQL (relay format).
func Handler(schema *gql.Schema) *relay.Handler {
	return &relay.Handler{Schema: schema}
}
