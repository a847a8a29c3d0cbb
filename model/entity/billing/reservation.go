package billing

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

type Reservation struct {
	ID              uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ClientName      string            `gorm:"column:client_name;type:varchar(120);not null" json:"client_name"`
	ClientDocument  string            `gorm:"column:client_document;type:varchar(40)" json:"client_document,omitempty"`
	ClientPhone     string            `gorm:"column:client_phone;type:varchar(30)" json:"client_phone,omitempty"`
	ClientEmail     string            `gorm:"column:client_email;type:varchar(120)" json:"client_email,omitempty"`
	Deposit         decimal.Decimal   `gorm:"column:deposit;type:decimal(12,2);not null" json:"deposit"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:decimal(14,2);not null" json:"subtotal"`
	DueDate         time.Time         `gorm:"column:due_date;not null;index" json:"due_date"`
	Status          ReservationStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	MovementCreated bool              `gorm:"column:movement_created;not null" json:"movement_created"`
	Notes           string            `gorm:"column:notes;type:text" json:"notes,omitempty"`
	UserID          *uint             `gorm:"column:user_id;index" json:"user_id,omitempty"`
	Items           []ReservationItem `gorm:"foreignKey:ReservationID" json:"items,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// IsTerminal reports whether no further transition is allowed.
func (r *Reservation) IsTerminal() bool {
	return r.Status != ReservationActive
}

func (r *Reservation) RemainingDue() decimal.Decimal {
	return r.Subtotal.Sub(r.Deposit).RoundBank(2)
}

// DaysRemaining counts calendar days until the due date, zero once overdue.
func (r *Reservation) DaysRemaining(now time.Time) int {
	due := time.Date(r.DueDate.Year(), r.DueDate.Month(), r.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(due.Sub(today).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

type ReservationItem struct {
	ID            uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ReservationID uint            `gorm:"column:reservation_id;not null;index" json:"reservation_id"`
	ProductID     uint            `gorm:"column:product_id;not null;index" json:"product_id"`
	VariantID     *uint           `gorm:"column:variant_id;index" json:"variant_id,omitempty"`
	Quantity      int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null" json:"unit_price"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:decimal(14,2);not null" json:"subtotal"`
}

func (ReservationItem) TableName() string {
	return "reservation_items"
}

func (i *ReservationItem) BeforeSave(tx *gorm.DB) error {
	i.Subtotal = LineSubtotal(i.UnitPrice, i.Quantity)
	return nil
}

// LineSubtotal is unit_price x quantity rounded half-even to cents.
func LineSubtotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).RoundBank(2)
}
