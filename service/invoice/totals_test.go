package invoice

import (
	"testing"

	"github.com/shopspring/decimal"

	billingEntity "backoffice.GO/model/entity/billing"
)

func item(price string, qty int) billingEntity.InvoiceItem {
	return billingEntity.InvoiceItem{UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		name                      string
		items                     []billingEntity.InvoiceItem
		discount                  string
		subtotal, amount, wantTot string
	}{
		{"ten percent", []billingEntity.InvoiceItem{item("100.00", 1)}, "10", "100.00", "10.00", "90.00"},
		{"no discount", []billingEntity.InvoiceItem{item("19.99", 3), item("0.01", 1)}, "0", "59.98", "0.00", "59.98"},
		{"half even discount", []billingEntity.InvoiceItem{item("10.05", 1)}, "50", "10.05", "5.02", "5.03"},
		{"half even line", []billingEntity.InvoiceItem{item("0.125", 1)}, "0", "0.12", "0.00", "0.12"},
		{"full discount", []billingEntity.InvoiceItem{item("42.00", 2)}, "100", "84.00", "84.00", "0.00"},
		{"empty", nil, "15", "0", "0", "0"},
	}
	for _, tc := range cases {
		got := ComputeTotals(tc.items, decimal.RequireFromString(tc.discount))
		if !got.Subtotal.Equal(decimal.RequireFromString(tc.subtotal)) ||
			!got.DiscountAmount.Equal(decimal.RequireFromString(tc.amount)) ||
			!got.Total.Equal(decimal.RequireFromString(tc.wantTot)) {
			t.Errorf("%s: totals = %s/%s/%s, want %s/%s/%s", tc.name,
				got.Subtotal, got.DiscountAmount, got.Total, tc.subtotal, tc.amount, tc.wantTot)
		}
	}
}

func TestGenerateCode(t *testing.T) {
	if got := GenerateCode("FAC", 2025, 42); got != "FAC-2025-000042" {
		t.Errorf("GenerateCode = %q", got)
	}
	if got := GenerateCode("FAC", 2026, 1234567); got != "FAC-2026-1234567" {
		t.Errorf("GenerateCode wide id = %q", got)
	}
}
