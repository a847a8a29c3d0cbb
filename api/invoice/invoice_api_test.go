package invoice

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"backoffice.GO/api/apitest"
	"backoffice.GO/core/testdb"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/ledger"
	reservationService "backoffice.GO/service/reservation"
)

type invoiceResponse struct {
	Invoice struct {
		ID     uint   `json:"id"`
		Code   string `json:"code"`
		Total  string `json:"total"`
		Paid   bool   `json:"paid"`
		Status string `json:"status"`
	} `json:"invoice"`
	RemainingDue string `json:"remaining_due"`
}

func stocked(t *testing.T, s *apitest.Server, sku, price string, qty int) uint {
	t.Helper()
	p := testdb.Product(t, s.DB, sku, price, false)
	if _, err := s.Deps.Ledger.Record(context.Background(), ledger.MovementRequest{
		Target: ledger.ProductTarget(p.ID), Type: inventoryEntity.MovementIn, Quantity: qty,
	}, audit.System()); err != nil {
		t.Fatalf("stock: %v", err)
	}
	return p.ID
}

func TestInvoice_DirectSaleThenPayment(t *testing.T) {
	s := apitest.New(t, RegisterInvoiceRoutes)
	pid := stocked(t, s, "SHIRT", "50", 10)

	rec := s.Do(t, http.MethodPost, "/api/invoices", map[string]interface{}{
		"client_name":         "Marta",
		"discount_percentage": "10",
		"payment_method":      "ef",
		"amount_paid":         "40",
		"items":               []map[string]interface{}{{"product_id": pid, "quantity": 2}},
	})
	apitest.Expect(t, rec, http.StatusCreated)
	var created invoiceResponse
	apitest.Decode(t, rec, &created)
	if created.Invoice.Total != "90" || created.Invoice.Paid || created.RemainingDue != "50" {
		t.Fatalf("created = %+v", created)
	}
	if got := testdb.Stock(t, s.DB, pid, 0); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}

	rec = s.Do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/payments", created.Invoice.ID), map[string]interface{}{
		"amount": "50", "payment_method": "DI", "payment_provider": "nequi",
	})
	apitest.Expect(t, rec, http.StatusOK)
	var paid invoiceResponse
	apitest.Decode(t, rec, &paid)
	if !paid.Invoice.Paid || paid.Invoice.Status != "completed" || paid.RemainingDue != "0" {
		t.Errorf("paid = %+v", paid)
	}

	rec = s.Do(t, http.MethodGet, "/api/invoices/code/"+created.Invoice.Code, nil)
	apitest.Expect(t, rec, http.StatusOK)

	rec = s.Do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/inventory", created.Invoice.ID), nil)
	apitest.Expect(t, rec, http.StatusOK)
	var applied struct {
		Count int `json:"count"`
	}
	apitest.Decode(t, rec, &applied)
	if applied.Count != 0 {
		t.Errorf("re-applying moved %d movements, want 0", applied.Count)
	}
	if got := testdb.Stock(t, s.DB, pid, 0); got != 8 {
		t.Errorf("stock after retry = %d, want 8", got)
	}
}

func TestInvoice_FromReservation(t *testing.T) {
	s := apitest.New(t, RegisterInvoiceRoutes)
	pid := stocked(t, s, "COAT", "50", 10)
	res, err := s.Deps.Reservations.Create(context.Background(), reservationService.CreateInput{
		ClientName: "Ana",
		Deposit:    decimal.NewFromInt(30),
		Items:      []reservationService.ItemInput{{ProductID: pid, Quantity: 3}},
	}, audit.System())
	if err != nil {
		t.Fatalf("reservation: %v", err)
	}

	rec := s.Do(t, http.MethodPost, "/api/invoices", map[string]interface{}{
		"reservation_id": res.ID,
		"payment_method": "EF",
		"amount_paid":    "120",
	})
	apitest.Expect(t, rec, http.StatusCreated)
	var created invoiceResponse
	apitest.Decode(t, rec, &created)
	if !created.Invoice.Paid || created.RemainingDue != "0" {
		t.Errorf("created = %+v", created)
	}
	if got := testdb.Stock(t, s.DB, pid, 0); got != 7 {
		t.Errorf("stock = %d, want 7", got)
	}

	rec = s.Do(t, http.MethodPost, "/api/invoices", map[string]interface{}{
		"reservation_id": res.ID,
		"payment_method": "EF",
	})
	apitest.Expect(t, rec, http.StatusUnprocessableEntity)
}

func TestInvoice_Rejections(t *testing.T) {
	s := apitest.New(t, RegisterInvoiceRoutes)
	pid := stocked(t, s, "SHIRT", "50", 1)

	cases := []map[string]interface{}{
		{"client_name": "X", "payment_method": "EF", "items": []map[string]interface{}{{"product_id": pid, "quantity": 2}}},
		{"client_name": "X", "payment_method": "DI", "items": []map[string]interface{}{{"product_id": pid, "quantity": 1}}},
		{"client_name": "X", "payment_method": "CC", "items": []map[string]interface{}{{"product_id": pid, "quantity": 1}}},
		{"client_name": "X", "payment_method": "EF"},
	}
	for i, body := range cases {
		rec := s.Do(t, http.MethodPost, "/api/invoices", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("case %d: status = %d, body = %s", i, rec.Code, rec.Body.String())
		}
	}
	apitest.Expect(t, s.Do(t, http.MethodGet, "/api/invoices/77", nil), http.StatusNotFound)
}
