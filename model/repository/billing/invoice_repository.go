package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	billingEntity "backoffice.GO/model/entity/billing"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// InvoiceFilter narrows List. Zero values are ignored.
type InvoiceFilter struct {
	Status     billingEntity.InvoiceStatus
	Code       string
	ClientName string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id uint) (*billingEntity.Invoice, error) {
	var inv billingEntity.Invoice
	if err := r.db.WithContext(ctx).Preload("Items").First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) FindByCode(ctx context.Context, code string) (*billingEntity.Invoice, error) {
	var inv billingEntity.Invoice
	if err := r.db.WithContext(ctx).Preload("Items").Where("code = ?", code).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// LockInvoice loads an invoice FOR UPDATE inside tx, then its items.
func LockInvoice(tx *gorm.DB, id uint) (*billingEntity.Invoice, error) {
	var inv billingEntity.Invoice
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, id).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("invoice_id = ?", id).Order("id").Find(&inv.Items).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) List(ctx context.Context, f InvoiceFilter) ([]billingEntity.Invoice, error) {
	q := r.db.WithContext(ctx).Model(&billingEntity.Invoice{}).Preload("Items")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Code != "" {
		q = q.Where("code = ?", f.Code)
	}
	if f.ClientName != "" {
		q = q.Where("client_name LIKE ?", "%"+f.ClientName+"%")
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var out []billingEntity.Invoice
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}
