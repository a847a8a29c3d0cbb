package inventory

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	inventoryEntity "backoffice.GO/model/entity/inventory"
)

type MovementRepository struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

func NewMovementRepository(db *gorm.DB) (*MovementRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &MovementRepository{db: db, sqlDB: sqlDB}, nil
}

// MovementFilter narrows List and Count. Zero values are ignored.
type MovementFilter struct {
	ProductIDs    []uint
	VariantID     *uint
	Types         []inventoryEntity.MovementType
	ReservationID *uint
	InvoiceID     *uint
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

func (r *MovementRepository) scoped(ctx context.Context, f MovementFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&inventoryEntity.Movement{})
	if len(f.ProductIDs) > 0 {
		q = q.Where("product_id IN ?", f.ProductIDs)
	}
	if f.VariantID != nil {
		q = q.Where("variant_id = ?", *f.VariantID)
	}
	if len(f.Types) > 0 {
		q = q.Where("movement_type IN ?", f.Types)
	}
	if f.ReservationID != nil {
		q = q.Where("reservation_id = ?", *f.ReservationID)
	}
	if f.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *f.InvoiceID)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	return q
}

// List returns movement history ordered by creation time.
func (r *MovementRepository) List(ctx context.Context, f MovementFilter) ([]inventoryEntity.Movement, error) {
	q := r.scoped(ctx, f).Order("created_at, id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var out []inventoryEntity.Movement
	err := q.Find(&out).Error
	return out, err
}

func (r *MovementRepository) Count(ctx context.Context, f MovementFilter) (int64, error) {
	var n int64
	err := r.scoped(ctx, f).Count(&n).Error
	return n, err
}

func (r *MovementRepository) FindByID(ctx context.Context, id uint) (*inventoryEntity.Movement, error) {
	var m inventoryEntity.Movement
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

const signedEffectSQL = `COALESCE(SUM(CASE movement_type
	WHEN 'in' THEN quantity
	WHEN 'out' THEN -quantity
	WHEN 'adjust' THEN quantity
	ELSE 0 END), 0)`

// SumSignedEffect replays the ledger for one product (variantID nil) or one variant.
// Uses raw SQL for minimal overhead
func (r *MovementRepository) SumSignedEffect(ctx context.Context, productID uint, variantID *uint) (int64, error) {
	var total int64
	var err error
	if variantID != nil {
		err = r.sqlDB.QueryRowContext(ctx,
			`SELECT `+signedEffectSQL+` FROM inventory_movements WHERE variant_id = ?`, *variantID).Scan(&total)
	} else {
		err = r.sqlDB.QueryRowContext(ctx,
			`SELECT `+signedEffectSQL+` FROM inventory_movements WHERE product_id = ? AND variant_id IS NULL`, productID).Scan(&total)
	}
	return total, err
}

// TotalsByType sums quantities per movement type in [from, to).
func (r *MovementRepository) TotalsByType(ctx context.Context, from, to time.Time) (map[inventoryEntity.MovementType]int64, error) {
	rows, err := r.scoped(ctx, MovementFilter{From: from, To: to}).
		Select("movement_type, COALESCE(SUM(quantity), 0)").
		Group("movement_type").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[inventoryEntity.MovementType]int64)
	for rows.Next() {
		var t string
		var qty int64
		if err := rows.Scan(&t, &qty); err != nil {
			return nil, err
		}
		out[inventoryEntity.MovementType(t)] = qty
	}
	return out, rows.Err()
}
