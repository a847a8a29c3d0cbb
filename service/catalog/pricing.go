package catalog

import (
	"github.com/shopspring/decimal"

	"backoffice.GO/core/apperr"
	catalogEntity "backoffice.GO/model/entity/catalog"
)

var hundred = decimal.NewFromInt(100)

// Percent turns 19 into 0.19.
func Percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(hundred)
}

// CostWithTax is cost x (1 + tax%), rounded half-even to cents.
func CostWithTax(cost, taxPct decimal.Decimal) decimal.Decimal {
	return cost.Mul(decimal.NewFromInt(1).Add(Percent(taxPct))).RoundBank(2)
}

// SuggestedPrice applies the markup on top of the taxed cost.
func SuggestedPrice(cost, taxPct, markupPct decimal.Decimal) decimal.Decimal {
	return CostWithTax(cost, taxPct).Mul(decimal.NewFromInt(1).Add(Percent(markupPct))).RoundBank(2)
}

// ResolveUnitPrice is the selling price of p, or of variant v when given.
// A product without a price is a configuration error; it is never defaulted.
func ResolveUnitPrice(p *catalogEntity.Product, v *catalogEntity.Variant) (decimal.Decimal, error) {
	if !p.Price.Valid {
		return decimal.Zero, apperr.Configuration("product %d (%s) has no price", p.ID, p.SKU)
	}
	price := p.Price.Decimal
	if v != nil {
		price = price.Add(v.PriceModifier)
	}
	if price.IsNegative() {
		return decimal.Zero, apperr.Configuration("product %d resolves to a negative price %s", p.ID, price)
	}
	return price.RoundBank(2), nil
}
