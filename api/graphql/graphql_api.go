package graphql

import (
	"net/http"

	gql "github.com/graph-gophers/graphql-go"
	"github.com/labstack/echo/v4"

	"backoffice.GO/api"
	"backoffice.GO/core/auth"
	"backoffice.GO/graphql/resolvers"
	"backoffice.GO/graphqlserver"
	entity "backoffice.GO/model/entity"
)

// RegisterGraphQLRoutes mounts the read-only schema at /api/graphql. It panics
// when the embedded schema does not match the resolvers, which only a broken
// build can cause.
func RegisterGraphQLRoutes(apiGroup *echo.Group, d *api.Deps) {
	schema, err := graphqlserver.NewSchema(resolvers.Services{
		Ledger:       d.Ledger,
		Availability: d.Availability,
		Catalog:      d.Catalog,
		Reservations: d.Reservations,
		Invoices:     d.Invoices,
	})
	if err != nil {
		panic("graphql schema: " + err.Error())
	}
	RegisterGraphQLRoutesWithSchema(apiGroup, schema)
}

// RegisterGraphQLRoutesWithSchema registers /graphql with a prepared schema.
func RegisterGraphQLRoutesWithSchema(apiGroup *echo.Group, schema *gql.Schema) {
	h := echo.WrapHandler(graphqlserver.Handler(schema))
	apiGroup.POST("/graphql", h, auth.RequirePermission(entity.PermInventoryRead))
}

// PlaygroundRoute serves the GraphQL playground at /playground. The page is
// static; queries it sends still pass /api authentication.
func PlaygroundRoute(e *echo.Echo, _ *api.Deps) {
	e.GET("/playground", func(c echo.Context) error {
		return c.HTML(http.StatusOK, playgroundHTML)
	})
}

const playgroundHTML = `<!DOCTYPE html>
<html>
<head>
	<title>GraphQL Playground</title>
	<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css"/>
</head>
<body>
	<div id="root"/>
	<script src="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/js/middleware.js"></script>
	<script>window.addEventListener('load', function() {
		GraphQLPlayground.init(document.getElementById('root'), { endpoint: '/api/graphql' });
	})</script>
</body>
</html>`
