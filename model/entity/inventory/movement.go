package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIn      MovementType = "in"
	MovementOut     MovementType = "out"
	MovementAdjust  MovementType = "adjust"
	MovementReserve MovementType = "reserve"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementReserve:
		return true
	}
	return false
}

// Movement is one immutable entry of the stock ledger. VariantID set means the
// movement targets that variant only; ProductID is then its parent.
type Movement struct {
	ID                 uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID          uint            `gorm:"column:product_id;not null;index:idx_movement_target" json:"product_id"`
	VariantID          *uint           `gorm:"column:variant_id;index:idx_movement_target" json:"variant_id,omitempty"`
	MovementType       MovementType    `gorm:"column:movement_type;type:varchar(16);not null;index" json:"movement_type"`
	Quantity           int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice          decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null" json:"unit_price"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:decimal(5,2);not null" json:"discount_percentage"`
	FinalUnitPrice     decimal.Decimal `gorm:"column:final_unit_price;type:decimal(12,2);not null" json:"final_unit_price"`
	TotalAmount        decimal.Decimal `gorm:"column:total_amount;type:decimal(14,2);not null" json:"total_amount"`
	Reason             string          `gorm:"column:reason;type:varchar(255)" json:"reason,omitempty"`
	Notes              string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
	ReservationID      *uint           `gorm:"column:reservation_id;index" json:"reservation_id,omitempty"`
	InvoiceID          *uint           `gorm:"column:invoice_id;index" json:"invoice_id,omitempty"`
	UserID             *uint           `gorm:"column:user_id;index" json:"user_id,omitempty"`
	CreatedAt          time.Time       `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Movement) TableName() string {
	return "inventory_movements"
}

// SignedEffect is the movement's contribution to physical stock.
func (m *Movement) SignedEffect() int {
	switch m.MovementType {
	case MovementIn:
		return m.Quantity
	case MovementOut:
		return -m.Quantity
	case MovementAdjust:
		return m.Quantity
	default:
		return 0
	}
}
