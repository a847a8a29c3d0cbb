package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"backoffice.GO/core/apperr"
	billingEntity "backoffice.GO/model/entity/billing"
	catalogEntity "backoffice.GO/model/entity/catalog"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	"backoffice.GO/service/catalog"
)

// stockSet holds the product and variant rows locked by one transaction
// together with their pending stock values.
type stockSet struct {
	products map[uint]*catalogEntity.Product
	variants map[uint]*catalogEntity.Variant
	parents  map[uint]*catalogEntity.Product // read, not locked
	touched  []Target
}

func lockTargets(tx *gorm.DB, targets []Target) (*stockSet, error) {
	s := &stockSet{
		products: make(map[uint]*catalogEntity.Product),
		variants: make(map[uint]*catalogEntity.Variant),
		parents:  make(map[uint]*catalogEntity.Product),
	}
	for _, t := range lockOrder(targets) {
		if !t.Valid() {
			return nil, apperr.Validation("movement target is required")
		}
		if t.IsVariant() {
			var v catalogEntity.Variant
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, t.ID()).Error; err != nil {
				return nil, lockError(t, err)
			}
			s.variants[v.ID] = &v
			continue
		}
		var p catalogEntity.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, t.ID()).Error; err != nil {
			return nil, lockError(t, err)
		}
		s.products[p.ID] = &p
	}
	for _, v := range s.variants {
		if _, ok := s.products[v.ProductID]; ok {
			continue
		}
		if _, ok := s.parents[v.ProductID]; ok {
			continue
		}
		var p catalogEntity.Product
		if err := tx.First(&p, v.ProductID).Error; err != nil {
			return nil, lockError(ProductTarget(v.ProductID), err)
		}
		s.parents[p.ID] = &p
	}
	return s, nil
}

func lockError(t Target, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Consistency("%s no longer exists", t)
	}
	return fmt.Errorf("lock %s: %w", t, err)
}

func (s *stockSet) product(id uint) *catalogEntity.Product {
	if p, ok := s.products[id]; ok {
		return p
	}
	return s.parents[id]
}

// checkShape enforces that variant stock lives on variants and product stock
// only on products without variants.
func (s *stockSet) checkShape(t Target, declaredProductID uint) error {
	if t.IsVariant() {
		v := s.variants[t.ID()]
		if declaredProductID != 0 && v.ProductID != declaredProductID {
			return apperr.Validation("variant %d does not belong to product %d", v.ID, declaredProductID)
		}
		if parent := s.product(v.ProductID); parent == nil || !parent.HasVariants {
			return apperr.Validation("product %d does not have variants enabled", v.ProductID)
		}
		return nil
	}
	if p := s.products[t.ID()]; p.HasVariants {
		return apperr.Validation("product %d has variants; record the movement on a variant", p.ID)
	}
	return nil
}

func (s *stockSet) stock(t Target) int {
	if t.IsVariant() {
		return s.variants[t.ID()].Stock
	}
	return s.products[t.ID()].Stock
}

func (s *stockSet) add(t Target, delta int) {
	if t.IsVariant() {
		s.variants[t.ID()].Stock += delta
	} else {
		s.products[t.ID()].Stock += delta
	}
	for _, seen := range s.touched {
		if seen == t {
			return
		}
	}
	s.touched = append(s.touched, t)
}

// negative returns the first touched target whose pending stock is below zero.
func (s *stockSet) negative() (Target, int, bool) {
	for _, t := range s.touched {
		if v := s.stock(t); v < 0 {
			return t, v, true
		}
	}
	return Target{}, 0, false
}

func (s *stockSet) flush(tx *gorm.DB) error {
	for _, t := range s.touched {
		var err error
		if t.IsVariant() {
			err = tx.Model(&catalogEntity.Variant{}).Where("id = ?", t.ID()).Update("stock", s.stock(t)).Error
		} else {
			err = tx.Model(&catalogEntity.Product{}).Where("id = ?", t.ID()).Update("stock", s.stock(t)).Error
		}
		if err != nil {
			return fmt.Errorf("write stock of %s: %w", t, err)
		}
	}
	return nil
}

// build turns a validated request into a movement row. Sale-side movements
// (out, reserve) default to the selling price; stock entries default to cost.
func (s *stockSet) build(req MovementRequest) (*inventoryEntity.Movement, error) {
	if err := s.checkShape(req.Target, req.ProductID); err != nil {
		return nil, err
	}
	var variant *catalogEntity.Variant
	productID := req.Target.ID()
	if req.Target.IsVariant() {
		variant = s.variants[req.Target.ID()]
		productID = variant.ProductID
	}
	product := s.product(productID)

	var unit decimal.Decimal
	switch {
	case req.UnitPrice != nil:
		unit = req.UnitPrice.RoundBank(2)
	case req.Type == inventoryEntity.MovementOut || req.Type == inventoryEntity.MovementReserve:
		price, err := catalog.ResolveUnitPrice(product, variant)
		if err != nil {
			return nil, err
		}
		unit = price
	default:
		unit = product.Cost.RoundBank(2)
	}
	final := unit.Mul(decimal.NewFromInt(1).Sub(catalog.Percent(req.DiscountPercentage))).RoundBank(2)
	qty := req.Quantity
	if qty < 0 {
		qty = -qty
	}

	mv := &inventoryEntity.Movement{
		ProductID:          productID,
		MovementType:       req.Type,
		Quantity:           req.Quantity,
		UnitPrice:          unit,
		DiscountPercentage: req.DiscountPercentage,
		FinalUnitPrice:     final,
		TotalAmount:        final.Mul(decimal.NewFromInt(int64(qty))).RoundBank(2),
		Reason:             req.Reason,
		Notes:              req.Notes,
		ReservationID:      req.ReservationID,
		InvoiceID:          req.InvoiceID,
	}
	if variant != nil {
		id := variant.ID
		mv.VariantID = &id
	}
	return mv, nil
}

// requireAvailable fails when physical stock minus active holds drops below zero for any target.
func (s *stockSet) requireAvailable(tx *gorm.DB, targets []Target) error {
	for _, t := range lockOrder(targets) {
		reserved, err := reservedQuantity(tx, t)
		if err != nil {
			return err
		}
		onHand := s.stock(t)
		if int64(onHand)-reserved < 0 {
			return apperr.Validation("insufficient available stock for %s: %d on hand, %d reserved", t, onHand, reserved)
		}
	}
	return nil
}

// activeHolds selects reserve movements that still hold stock: those of active
// reservations, and standalone holds with no reservation.
func activeHolds(db *gorm.DB) *gorm.DB {
	return db.Table("inventory_movements AS m").
		Joins("LEFT JOIN reservations r ON r.id = m.reservation_id").
		Where("m.movement_type = ?", inventoryEntity.MovementReserve).
		Where("(m.reservation_id IS NULL OR r.status = ?)", billingEntity.ReservationActive)
}

func reservedQuantity(db *gorm.DB, t Target) (int64, error) {
	q := activeHolds(db)
	if t.IsVariant() {
		q = q.Where("m.variant_id = ?", t.ID())
	} else {
		q = q.Where("m.product_id = ? AND m.variant_id IS NULL", t.ID())
	}
	var total int64
	if err := q.Select("COALESCE(SUM(m.quantity), 0)").Row().Scan(&total); err != nil {
		return 0, fmt.Errorf("reserved quantity of %s: %w", t, err)
	}
	return total, nil
}
