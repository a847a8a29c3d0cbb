package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	StatusActive   ProductStatus = "active"
	StatusInactive ProductStatus = "inactive"
	StatusDraft    ProductStatus = "draft"
)

// Product holds pricing inputs and, when HasVariants is false, its own stock counter.
// Stock is written only by the inventory ledger.
type Product struct {
	ID               uint                `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SKU              string              `gorm:"column:sku;type:varchar(64);not null;uniqueIndex" json:"sku"`
	Name             string              `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Description      string              `gorm:"column:description;type:text" json:"description,omitempty"`
	Cost             decimal.Decimal     `gorm:"column:cost;type:decimal(12,2);not null" json:"cost"`
	TaxPercentage    decimal.Decimal     `gorm:"column:tax_percentage;type:decimal(5,2);not null" json:"tax_percentage"`
	MarkupPercentage decimal.Decimal     `gorm:"column:markup_percentage;type:decimal(5,2);not null" json:"markup_percentage"`
	Price            decimal.NullDecimal `gorm:"column:price;type:decimal(12,2)" json:"price"`
	Stock            int                 `gorm:"column:stock;not null" json:"stock"`
	MinStock         int                 `gorm:"column:min_stock;not null" json:"min_stock"`
	Status           ProductStatus       `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	HasVariants      bool                `gorm:"column:has_variants;not null" json:"has_variants"`
	Categories       []Category          `gorm:"many2many:product_categories;" json:"categories,omitempty"`
	Variants         []Variant           `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// EffectiveStock is the manual counter, or the sum of active variant stock when
// the product has variants. Variants must be preloaded.
func (p *Product) EffectiveStock() int {
	if !p.HasVariants {
		return p.Stock
	}
	total := 0
	for _, v := range p.Variants {
		if v.IsActive {
			total += v.Stock
		}
	}
	return total
}

func (p *Product) IsLowStock() bool {
	return p.EffectiveStock() <= p.MinStock
}

type Variant struct {
	ID            uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID     uint            `gorm:"column:product_id;not null;uniqueIndex:idx_variant_attrs" json:"product_id"`
	Product       *Product        `gorm:"foreignKey:ProductID" json:"-"`
	SKU           string          `gorm:"column:sku;type:varchar(80);not null;uniqueIndex" json:"sku"`
	Size          string          `gorm:"column:size;type:varchar(20);not null;uniqueIndex:idx_variant_attrs" json:"size"`
	Color         string          `gorm:"column:color;type:varchar(30);not null;uniqueIndex:idx_variant_attrs" json:"color"`
	Stock         int             `gorm:"column:stock;not null" json:"stock"`
	PriceModifier decimal.Decimal `gorm:"column:price_modifier;type:decimal(12,2);not null" json:"price_modifier"`
	IsActive      bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Variant) TableName() string {
	return "product_variants"
}
