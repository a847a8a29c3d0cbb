package resolvers

import (
	"errors"
	"strconv"

	gql "github.com/graph-gophers/graphql-go"

	"backoffice.GO/core/apperr"
	"backoffice.GO/service/catalog"
	"backoffice.GO/service/invoice"
	"backoffice.GO/service/ledger"
	"backoffice.GO/service/reservation"
)

const maxRows = 500

// Services are the read paths the schema exposes. Nothing here writes.
type Services struct {
	Ledger       *ledger.Ledger
	Availability *ledger.AvailabilityReader
	Catalog      *catalog.Service
	Reservations *reservation.Manager
	Invoices     *invoice.Engine
}

// QueryResolver resolves every Query field. Methods live in movement.go,
// stock.go and billing.go.
type QueryResolver struct {
	s Services
}

func NewQueryResolver(s Services) *QueryResolver {
	return &QueryResolver{s: s}
}

func parseID(id gql.ID) (uint, error) {
	v, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.Validation("invalid id %q", string(id))
	}
	return uint(v), nil
}

func optionalID(id *gql.ID) (*uint, error) {
	if id == nil {
		return nil, nil
	}
	v, err := parseID(*id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func toID(id uint) gql.ID {
	return gql.ID(strconv.FormatUint(uint64(id), 10))
}

func toOptionalID(id *uint) *gql.ID {
	if id == nil {
		return nil
	}
	v := toID(*id)
	return &v
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clampLimit(limit int32, def int) int {
	switch {
	case limit <= 0:
		return def
	case int(limit) > maxRows:
		return maxRows
	}
	return int(limit)
}

// public keeps internal failure details out of GraphQL error messages.
func public(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(apperr.PublicMessage(err))
}
