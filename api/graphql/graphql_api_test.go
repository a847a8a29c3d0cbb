package graphql

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"backoffice.GO/api/apitest"
	"backoffice.GO/core/testdb"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/ledger"
)

type gqlResponse struct {
	Data struct {
		Movements []struct {
			ID           string `json:"id"`
			MovementType string `json:"movementType"`
			SignedEffect int    `json:"signedEffect"`
			TotalAmount  string `json:"totalAmount"`
		} `json:"movements"`
		Availability *struct {
			Physical  int `json:"physical"`
			Available int `json:"available"`
		} `json:"availability"`
		LowStock []struct {
			SKU   string `json:"sku"`
			Stock int    `json:"stock"`
		} `json:"lowStock"`
		Invoice *struct {
			Code string `json:"code"`
		} `json:"invoice"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func query(t *testing.T, s *apitest.Server, q string) gqlResponse {
	t.Helper()
	rec := s.Do(t, http.MethodPost, "/api/graphql", map[string]interface{}{"query": q})
	apitest.Expect(t, rec, http.StatusOK)
	var out gqlResponse
	apitest.Decode(t, rec, &out)
	return out
}

func TestGraphQL_StockQueries(t *testing.T) {
	s := apitest.New(t, RegisterGraphQLRoutes)
	low := testdb.Product(t, s.DB, "BEANIE", "12", false)
	full := testdb.Product(t, s.DB, "SCARF", "30", false)
	ctx := context.Background()
	for _, req := range []ledger.MovementRequest{
		{Target: ledger.ProductTarget(low.ID), Type: inventoryEntity.MovementIn, Quantity: 3},
		{Target: ledger.ProductTarget(full.ID), Type: inventoryEntity.MovementIn, Quantity: 20},
		{Target: ledger.ProductTarget(full.ID), Type: inventoryEntity.MovementReserve, Quantity: 4},
	} {
		if _, err := s.Deps.Ledger.Record(ctx, req, audit.System()); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	out := query(t, s, fmt.Sprintf(`{
		movements(productId: "%d") { id movementType signedEffect totalAmount }
		availability(productId: "%d") { physical available }
		lowStock { sku stock }
	}`, full.ID, full.ID))
	if len(out.Errors) > 0 {
		t.Fatalf("errors: %+v", out.Errors)
	}
	if len(out.Data.Movements) != 2 {
		t.Fatalf("movements = %+v, want 2", out.Data.Movements)
	}
	if out.Data.Movements[1].MovementType != "reserve" || out.Data.Movements[1].SignedEffect != 0 {
		t.Errorf("reserve movement = %+v", out.Data.Movements[1])
	}
	if out.Data.Movements[0].TotalAmount != "200.00" {
		t.Errorf("in total = %s, want 200.00", out.Data.Movements[0].TotalAmount)
	}
	if av := out.Data.Availability; av == nil || av.Physical != 20 || av.Available != 16 {
		t.Errorf("availability = %+v, want physical 20 available 16", av)
	}
	if len(out.Data.LowStock) != 1 || out.Data.LowStock[0].SKU != "BEANIE" || out.Data.LowStock[0].Stock != 3 {
		t.Errorf("lowStock = %+v", out.Data.LowStock)
	}
}

func TestGraphQL_ErrorsAndMissingRecords(t *testing.T) {
	s := apitest.New(t, RegisterGraphQLRoutes)

	out := query(t, s, `{ invoice(code: "NOPE") { code } }`)
	if len(out.Errors) > 0 || out.Data.Invoice != nil {
		t.Errorf("unknown invoice = %+v", out)
	}

	out = query(t, s, `{ availability { physical } }`)
	if len(out.Errors) != 1 || out.Errors[0].Message != "productId or variantId is required" {
		t.Errorf("errors = %+v", out.Errors)
	}

	out = query(t, s, `{ movements(types: ["sideways"]) { id } }`)
	if len(out.Errors) != 1 {
		t.Errorf("unknown type errors = %+v", out.Errors)
	}
}
