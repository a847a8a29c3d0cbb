package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"backoffice.GO/core/apperr"
	catalogEntity "backoffice.GO/model/entity/catalog"
)

// Availability is physical stock next to what active reservations hold.
// It is computed on demand and never stored.
type Availability struct {
	Target    string `json:"target"`
	Physical  int    `json:"physical"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

// AvailabilityReader answers stock questions without taking locks.
type AvailabilityReader struct {
	db *gorm.DB
}

func NewAvailabilityReader(db *gorm.DB) *AvailabilityReader {
	return &AvailabilityReader{db: db}
}

// Of reports availability for t. For a product with variants the figures
// aggregate its active variants.
func (r *AvailabilityReader) Of(ctx context.Context, t Target) (Availability, error) {
	db := r.db.WithContext(ctx)
	out := Availability{Target: t.String()}
	var reserved int64
	var err error

	if t.IsVariant() {
		var v catalogEntity.Variant
		if err := db.First(&v, t.ID()).Error; err != nil {
			return out, notFound(t, err)
		}
		out.Physical = v.Stock
		reserved, err = reservedQuantity(db, t)
	} else {
		var p catalogEntity.Product
		if err := db.Preload("Variants").First(&p, t.ID()).Error; err != nil {
			return out, notFound(t, err)
		}
		out.Physical = p.EffectiveStock()
		if p.HasVariants {
			reserved, err = reservedForProduct(db, p.ID)
		} else {
			reserved, err = reservedQuantity(db, t)
		}
	}
	if err != nil {
		return out, err
	}
	out.Reserved = int(reserved)
	out.Available = out.Physical - out.Reserved
	return out, nil
}

// ReservedByProduct sums active holds per product, active variants included.
func (r *AvailabilityReader) ReservedByProduct(ctx context.Context) (map[uint]int, error) {
	rows, err := onActiveVariants(activeHolds(r.db.WithContext(ctx))).
		Select("m.product_id, COALESCE(SUM(m.quantity), 0)").
		Group("m.product_id").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("reserved by product: %w", err)
	}
	defer rows.Close()

	out := make(map[uint]int)
	for rows.Next() {
		var productID uint
		var qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		out[productID] = int(qty)
	}
	return out, rows.Err()
}

// onActiveVariants drops holds on inactive variants, which physical stock
// of the parent no longer counts either.
func onActiveVariants(q *gorm.DB) *gorm.DB {
	return q.Joins("LEFT JOIN product_variants pv ON pv.id = m.variant_id").
		Where("(m.variant_id IS NULL OR pv.is_active = ?)", true)
}

func reservedForProduct(db *gorm.DB, productID uint) (int64, error) {
	var total int64
	err := onActiveVariants(activeHolds(db)).Where("m.product_id = ?", productID).
		Select("COALESCE(SUM(m.quantity), 0)").Row().Scan(&total)
	return total, err
}

func notFound(t Target, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", t)
	}
	return err
}
