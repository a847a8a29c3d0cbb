package report

import (
	"strings"

	"backoffice.GO/core/apperr"
)

// Kind names one report handler.
type Kind string

const (
	KindInventory    Kind = "inventory"
	KindMovements    Kind = "movements"
	KindSales        Kind = "sales"
	KindTopProducts  Kind = "top_products"
	KindReservations Kind = "reservations"
	KindAudit        Kind = "audit"
	KindCategories   Kind = "categories"
	KindDaily        Kind = "daily"
	KindMonthly      Kind = "monthly"
)

func AllKinds() []Kind {
	return []Kind{
		KindInventory, KindMovements, KindSales, KindTopProducts,
		KindReservations, KindAudit, KindCategories, KindDaily, KindMonthly,
	}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds() {
		if k == known {
			return k, nil
		}
	}
	return "", apperr.Validation("unknown report kind %q", s)
}
