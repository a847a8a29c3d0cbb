package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	billingEntity "backoffice.GO/model/entity/billing"
)

var hundred = decimal.NewFromInt(100)

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// ComputeTotals sums item subtotals and applies the discount percentage,
// rounding half-even to cents after every step.
func ComputeTotals(items []billingEntity.InvoiceItem, discountPercentage decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(billingEntity.LineSubtotal(it.UnitPrice, it.Quantity))
	}
	subtotal = subtotal.RoundBank(2)
	discount := subtotal.Mul(discountPercentage).Div(hundred).RoundBank(2)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          subtotal.Sub(discount).RoundBank(2),
	}
}

// GenerateCode formats an invoice code such as FAC-2025-000042.
func GenerateCode(prefix string, year int, id uint) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, id)
}
