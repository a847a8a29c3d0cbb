package billing

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoiceCompleted InvoiceStatus = "completed"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "EF"
	PaymentDigital PaymentMethod = "DI"
)

// Digital payment providers accepted with PaymentDigital.
const (
	ProviderNequi     = "NEQUI"
	ProviderDaviplata = "DAVIPLATA"
)

type Invoice struct {
	ID                 uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Code               string          `gorm:"column:code;type:varchar(32);index" json:"code"`
	ClientName         string          `gorm:"column:client_name;type:varchar(120)" json:"client_name"`
	ClientDocument     string          `gorm:"column:client_document;type:varchar(40)" json:"client_document,omitempty"`
	ClientPhone        string          `gorm:"column:client_phone;type:varchar(30)" json:"client_phone,omitempty"`
	ClientEmail        string          `gorm:"column:client_email;type:varchar(120)" json:"client_email,omitempty"`
	ReservationID      *uint           `gorm:"column:reservation_id;index" json:"reservation_id,omitempty"`
	Reservation        *Reservation    `gorm:"foreignKey:ReservationID" json:"-"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:decimal(5,2);not null" json:"discount_percentage"`
	Subtotal           decimal.Decimal `gorm:"column:subtotal;type:decimal(14,2);not null" json:"subtotal"`
	DiscountAmount     decimal.Decimal `gorm:"column:discount_amount;type:decimal(14,2);not null" json:"discount_amount"`
	Total              decimal.Decimal `gorm:"column:total;type:decimal(14,2);not null" json:"total"`
	PaymentMethod      PaymentMethod   `gorm:"column:payment_method;type:varchar(2);not null" json:"payment_method"`
	PaymentProvider    string          `gorm:"column:payment_provider;type:varchar(16)" json:"payment_provider,omitempty"`
	AmountPaid         decimal.Decimal `gorm:"column:amount_paid;type:decimal(14,2);not null" json:"amount_paid"`
	Paid               bool            `gorm:"column:paid;not null" json:"paid"`
	PaymentDate        *time.Time      `gorm:"column:payment_date" json:"payment_date,omitempty"`
	Status             InvoiceStatus   `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	InventoryMoved     bool            `gorm:"column:inventory_moved;not null" json:"inventory_moved"`
	Notes              string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
	UserID             *uint           `gorm:"column:user_id;index" json:"user_id,omitempty"`
	Items              []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentDigital
}

type InvoiceItem struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	InvoiceID uint            `gorm:"column:invoice_id;not null;index" json:"invoice_id"`
	ProductID uint            `gorm:"column:product_id;not null;index" json:"product_id"`
	VariantID *uint           `gorm:"column:variant_id;index" json:"variant_id,omitempty"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:decimal(14,2);not null" json:"subtotal"`
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}

func (i *InvoiceItem) BeforeSave(tx *gorm.DB) error {
	i.Subtotal = LineSubtotal(i.UnitPrice, i.Quantity)
	return nil
}
