package inventory

import (
	"fmt"
	"net/http"
	"testing"

	"backoffice.GO/api/apitest"
	"backoffice.GO/core/testdb"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	"backoffice.GO/service/ledger"
)

func TestMovements_RecordListAvailability(t *testing.T) {
	s := apitest.New(t, RegisterInventoryRoutes)
	p := testdb.Product(t, s.DB, "CAP", "25", false)

	rec := s.Do(t, http.MethodPost, "/api/inventory/movements", map[string]interface{}{
		"product_id": p.ID, "movement_type": "in", "quantity": 20,
	})
	apitest.Expect(t, rec, http.StatusCreated)
	if rec.Header().Get("X-Request-Duration-ms") == "" {
		t.Error("missing duration header")
	}

	rec = s.Do(t, http.MethodPost, "/api/inventory/movements", map[string]interface{}{
		"product_id": p.ID, "movement_type": "reserve", "quantity": 5,
	})
	apitest.Expect(t, rec, http.StatusCreated)

	rec = s.Do(t, http.MethodGet, fmt.Sprintf("/api/inventory/availability?product_id=%d", p.ID), nil)
	apitest.Expect(t, rec, http.StatusOK)
	var av struct {
		Availability ledger.Availability `json:"availability"`
	}
	apitest.Decode(t, rec, &av)
	if av.Availability.Physical != 20 || av.Availability.Available != 15 {
		t.Errorf("availability = %+v, want physical 20 available 15", av.Availability)
	}

	rec = s.Do(t, http.MethodGet, fmt.Sprintf("/api/inventory/movements?product_id=%d&type=in", p.ID), nil)
	apitest.Expect(t, rec, http.StatusOK)
	var list struct {
		Movements []inventoryEntity.Movement `json:"movements"`
		Count     int                        `json:"count"`
	}
	apitest.Decode(t, rec, &list)
	if list.Count != 1 || list.Movements[0].Quantity != 20 {
		t.Errorf("list = %+v", list)
	}
}

func TestMovements_ValidationIs422(t *testing.T) {
	s := apitest.New(t, RegisterInventoryRoutes)
	p := testdb.Product(t, s.DB, "CAP", "25", false)

	rec := s.Do(t, http.MethodPost, "/api/inventory/movements", map[string]interface{}{
		"product_id": p.ID, "movement_type": "out", "quantity": 1,
	})
	apitest.Expect(t, rec, http.StatusUnprocessableEntity)

	rec = s.Do(t, http.MethodPost, "/api/inventory/movements", map[string]interface{}{
		"product_id": 999, "movement_type": "in", "quantity": 1,
	})
	apitest.Expect(t, rec, http.StatusNotFound)

	rec = s.Do(t, http.MethodGet, "/api/inventory/movements?type=teleport", nil)
	apitest.Expect(t, rec, http.StatusUnprocessableEntity)

	rec = s.Do(t, http.MethodGet, "/api/inventory/availability", nil)
	apitest.Expect(t, rec, http.StatusUnprocessableEntity)
}

func TestMovements_BulkIsAllOrNothing(t *testing.T) {
	s := apitest.New(t, RegisterInventoryRoutes)
	a := testdb.Product(t, s.DB, "A", "10", false)
	b := testdb.Product(t, s.DB, "B", "10", false)

	rec := s.Do(t, http.MethodPost, "/api/inventory/movements/bulk", map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": a.ID, "movement_type": "in", "quantity": 3},
			{"product_id": b.ID, "movement_type": "out", "quantity": 1},
		},
	})
	apitest.Expect(t, rec, http.StatusUnprocessableEntity)
	if got := testdb.Stock(t, s.DB, a.ID, 0); got != 0 {
		t.Errorf("stock A = %d, want 0 after rejected batch", got)
	}

	rec = s.Do(t, http.MethodPost, "/api/inventory/movements/bulk", map[string]interface{}{"items": []interface{}{}})
	apitest.Expect(t, rec, http.StatusBadRequest)
}

func TestMovements_UpdateDeleteReconcile(t *testing.T) {
	s := apitest.New(t, RegisterInventoryRoutes)
	p := testdb.Product(t, s.DB, "HOOD", "80", true)
	v := testdb.Variant(t, s.DB, p.ID, "M", "BLACK")

	in := s.Do(t, http.MethodPost, "/api/inventory/movements", map[string]interface{}{
		"product_id": p.ID, "variant_id": v.ID, "movement_type": "in", "quantity": 10,
	})
	apitest.Expect(t, in, http.StatusCreated)
	out := s.Do(t, http.MethodPost, "/api/inventory/movements", map[string]interface{}{
		"product_id": p.ID, "variant_id": v.ID, "movement_type": "out", "quantity": 4,
	})
	apitest.Expect(t, out, http.StatusCreated)
	var created struct {
		Movement inventoryEntity.Movement `json:"movement"`
	}
	apitest.Decode(t, out, &created)

	rec := s.Do(t, http.MethodPatch, fmt.Sprintf("/api/inventory/movements/%d", created.Movement.ID), map[string]interface{}{"quantity": 2})
	apitest.Expect(t, rec, http.StatusOK)
	if got := testdb.Stock(t, s.DB, p.ID, v.ID); got != 8 {
		t.Errorf("variant stock = %d, want 8", got)
	}

	rec = s.Do(t, http.MethodDelete, fmt.Sprintf("/api/inventory/movements/%d", created.Movement.ID), nil)
	apitest.Expect(t, rec, http.StatusOK)
	rec = s.Do(t, http.MethodGet, fmt.Sprintf("/api/inventory/movements/%d", created.Movement.ID), nil)
	apitest.Expect(t, rec, http.StatusNotFound)

	rec = s.Do(t, http.MethodGet, fmt.Sprintf("/api/inventory/reconcile?variant_id=%d", v.ID), nil)
	apitest.Expect(t, rec, http.StatusOK)
	var rc struct {
		Balanced bool `json:"balanced"`
	}
	apitest.Decode(t, rec, &rc)
	if !rc.Balanced {
		t.Errorf("reconcile not balanced: %s", rec.Body.String())
	}
}
