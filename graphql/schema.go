// Package graphql holds the read-only reporting schema served at /api/graphql.
package graphql

import (
	_ "embed"
)

//go:embed schema.graphqls
var schema string

// Schema returns the SDL parsed by graphqlserver.
func Schema() string {
	return schema
}
