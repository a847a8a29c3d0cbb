package testdb

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	catalogEntity "backoffice.GO/model/entity/catalog"
)

// Product inserts an active product with cost 10 and zero stock. An empty
// price leaves the price column NULL.
func Product(t testing.TB, db *gorm.DB, sku, price string, hasVariants bool) *catalogEntity.Product {
	t.Helper()
	p := &catalogEntity.Product{
		SKU:              sku,
		Name:             "Product " + sku,
		Cost:             decimal.NewFromInt(10),
		TaxPercentage:    decimal.NewFromInt(19),
		MarkupPercentage: decimal.NewFromInt(30),
		MinStock:         5,
		Status:           catalogEntity.StatusActive,
		HasVariants:      hasVariants,
	}
	if price != "" {
		p.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create product %s: %v", sku, err)
	}
	return p
}

// Variant inserts an active variant of productID with no price modifier.
func Variant(t testing.TB, db *gorm.DB, productID uint, size, color string) *catalogEntity.Variant {
	t.Helper()
	v := &catalogEntity.Variant{
		ProductID:     productID,
		SKU:           "V-" + size + "-" + color,
		Size:          size,
		Color:         color,
		PriceModifier: decimal.Zero,
		IsActive:      true,
	}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return v
}

// Stock reads the stored stock of a product (variantID 0) or variant.
func Stock(t testing.TB, db *gorm.DB, productID, variantID uint) int {
	t.Helper()
	if variantID != 0 {
		var v catalogEntity.Variant
		if err := db.First(&v, variantID).Error; err != nil {
			t.Fatalf("load variant %d: %v", variantID, err)
		}
		return v.Stock
	}
	var p catalogEntity.Product
	if err := db.First(&p, productID).Error; err != nil {
		t.Fatalf("load product %d: %v", productID, err)
	}
	return p.Stock
}
