// Package ledger is the single writer of product and variant stock. Every
// change is an append-only movement applied inside one transaction that locks
// the affected rows, so stock always equals the sum of signed movement effects.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"backoffice.GO/core/apperr"
	auditEntity "backoffice.GO/model/entity/audit"
	billingEntity "backoffice.GO/model/entity/billing"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	inventoryRepo "backoffice.GO/model/repository/inventory"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/catalog"
)

var hundred = decimal.NewFromInt(100)

type MovementRequest struct {
	Target Target
	// ProductID, when set for a variant target, must be the variant's parent.
	ProductID          uint
	Type               inventoryEntity.MovementType
	Quantity           int
	UnitPrice          *decimal.Decimal
	DiscountPercentage decimal.Decimal
	Reason             string
	Notes              string
	ReservationID      *uint
	InvoiceID          *uint
	// RequireAvailable also rejects the movement when on-hand stock minus
	// active holds would drop below zero.
	RequireAvailable bool
}

// MovementPatch changes an existing movement. Nil fields keep their value.
type MovementPatch struct {
	Target             *Target
	ProductID          uint
	Type               *inventoryEntity.MovementType
	Quantity           *int
	UnitPrice          *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	Reason             *string
	Notes              *string
}

func validateRequest(req MovementRequest) error {
	if !req.Target.Valid() {
		return apperr.Validation("movement target is required")
	}
	if !req.Type.Valid() {
		return apperr.Validation("unknown movement type %q", req.Type)
	}
	if req.Type == inventoryEntity.MovementAdjust {
		if req.Quantity == 0 {
			return apperr.Validation("adjust quantity must not be zero")
		}
		if strings.TrimSpace(req.Reason) == "" {
			return apperr.Validation("adjust movements require a reason")
		}
	} else if req.Quantity <= 0 {
		return apperr.Validation("%s quantity must be positive, got %d", req.Type, req.Quantity)
	}
	if req.DiscountPercentage.IsNegative() || req.DiscountPercentage.GreaterThan(hundred) {
		return apperr.Validation("discount must be between 0 and 100, got %s", req.DiscountPercentage)
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return apperr.Validation("unit price cannot be negative")
	}
	return nil
}

type Ledger struct {
	db        *gorm.DB
	catalog   catalog.Catalog
	movements *inventoryRepo.MovementRepository
	audit     *audit.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

func New(db *gorm.DB, cat catalog.Catalog, rec *audit.Recorder, logger *zap.Logger) (*Ledger, error) {
	movements, err := inventoryRepo.NewMovementRepository(db)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{db: db, catalog: cat, movements: movements, audit: rec, logger: logger, now: time.Now}, nil
}

// precheck resolves the target through the catalog before any lock is taken,
// so unknown ids surface as validation errors rather than consistency errors.
func (l *Ledger) precheck(ctx context.Context, t Target, declaredProductID uint) error {
	if t.IsVariant() {
		v, err := l.catalog.Variant(ctx, t.ID())
		if err != nil {
			return err
		}
		if declaredProductID != 0 && v.ProductID != declaredProductID {
			return apperr.Validation("variant %d does not belong to product %d", v.ID, declaredProductID)
		}
		return nil
	}
	_, err := l.catalog.Product(ctx, t.ID())
	return err
}

// Record appends one movement and applies its signed effect.
func (l *Ledger) Record(ctx context.Context, req MovementRequest, actor audit.Actor) (*inventoryEntity.Movement, error) {
	out, err := l.RecordBulk(ctx, []MovementRequest{req}, actor)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// RecordBulk appends several movements atomically: all succeed or none do.
func (l *Ledger) RecordBulk(ctx context.Context, reqs []MovementRequest, actor audit.Actor) ([]*inventoryEntity.Movement, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("no movements to record")
	}
	for _, req := range reqs {
		if err := validateRequest(req); err != nil {
			return nil, err
		}
		if err := l.precheck(ctx, req.Target, req.ProductID); err != nil {
			return nil, err
		}
	}

	var out []*inventoryEntity.Movement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = l.RecordTx(tx, reqs, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.audit.Record(ctx, actor, AuditEntries(auditEntity.ActionCreate, out...)...)
	l.logger.Info("movements recorded", zap.Int("count", len(out)), zap.String("actor", actor.Username))
	return out, nil
}

// RecordTx records reqs inside the caller's transaction. All targets are
// locked before the first insert. Auditing is left to the caller.
func (l *Ledger) RecordTx(tx *gorm.DB, reqs []MovementRequest, actor audit.Actor) ([]*inventoryEntity.Movement, error) {
	targets := make([]Target, 0, len(reqs))
	for _, req := range reqs {
		if err := validateRequest(req); err != nil {
			return nil, err
		}
		targets = append(targets, req.Target)
	}
	set, err := lockTargets(tx, targets)
	if err != nil {
		return nil, err
	}

	now := l.now()
	out := make([]*inventoryEntity.Movement, 0, len(reqs))
	var holds []Target
	for _, req := range reqs {
		mv, err := set.build(req)
		if err != nil {
			return nil, err
		}
		mv.UserID = actor.UserID
		mv.CreatedAt = now
		mv.UpdatedAt = now
		if err := tx.Create(mv).Error; err != nil {
			return nil, fmt.Errorf("insert movement: %w", err)
		}
		set.add(req.Target, mv.SignedEffect())
		if req.RequireAvailable {
			holds = append(holds, req.Target)
		}
		out = append(out, mv)
	}
	if t, v, ok := set.negative(); ok {
		return nil, apperr.Validation("insufficient stock for %s: result would be %d", t, v)
	}
	if err := set.flush(tx); err != nil {
		return nil, err
	}
	if len(holds) > 0 {
		if err := set.requireAvailable(tx, holds); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Count is a physical stock count for one target.
type Count struct {
	Target   Target
	Quantity int
	Notes    string
}

// Stocktake brings each target's stock to its counted quantity by recording an
// adjust movement for the difference. Targets already at their count get no
// movement. Counts are read under the row locks, so concurrent movements are
// never overwritten.
func (l *Ledger) Stocktake(ctx context.Context, counts []Count, reason string, actor audit.Actor) ([]*inventoryEntity.Movement, error) {
	if len(counts) == 0 {
		return nil, apperr.Validation("no counts to apply")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "stocktake"
	}
	seen := make(map[Target]bool, len(counts))
	targets := make([]Target, 0, len(counts))
	for _, c := range counts {
		if c.Quantity < 0 {
			return nil, apperr.Validation("counted quantity for %s cannot be negative", c.Target)
		}
		if seen[c.Target] {
			return nil, apperr.Validation("%s counted twice", c.Target)
		}
		seen[c.Target] = true
		if err := l.precheck(ctx, c.Target, 0); err != nil {
			return nil, err
		}
		targets = append(targets, c.Target)
	}

	var out []*inventoryEntity.Movement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		set, err := lockTargets(tx, targets)
		if err != nil {
			return err
		}
		var reqs []MovementRequest
		for _, c := range counts {
			if err := set.checkShape(c.Target, 0); err != nil {
				return err
			}
			delta := c.Quantity - set.stock(c.Target)
			if delta == 0 {
				continue
			}
			reqs = append(reqs, MovementRequest{
				Target:   c.Target,
				Type:     inventoryEntity.MovementAdjust,
				Quantity: delta,
				Reason:   reason,
				Notes:    c.Notes,
			})
		}
		if len(reqs) == 0 {
			return nil
		}
		out, err = l.RecordTx(tx, reqs, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		l.audit.Record(ctx, actor, AuditEntries(auditEntity.ActionCreate, out...)...)
	}
	l.logger.Info("stocktake applied", zap.Int("counted", len(counts)), zap.Int("adjusted", len(out)), zap.String("actor", actor.Username))
	return out, nil
}

// Update reverts the movement's old effect and applies the new one, possibly
// on a different target, in one transaction.
func (l *Ledger) Update(ctx context.Context, id uint, patch MovementPatch, actor audit.Actor) (*inventoryEntity.Movement, error) {
	if patch.Target != nil {
		if err := l.precheck(ctx, *patch.Target, patch.ProductID); err != nil {
			return nil, err
		}
	}
	var before inventoryEntity.Movement
	var after *inventoryEntity.Movement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		before, after, err = l.updateTx(tx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	entry := movementEntry(auditEntity.ActionUpdate, after)
	entry.Data["before"] = map[string]interface{}{
		"movement_type": string(before.MovementType),
		"quantity":      before.Quantity,
		"product_id":    before.ProductID,
		"variant_id":    before.VariantID,
	}
	l.audit.Record(ctx, actor, entry)
	return after, nil
}

// UpdateTx is Update inside the caller's transaction. Auditing is left to the caller.
func (l *Ledger) UpdateTx(tx *gorm.DB, id uint, patch MovementPatch) (*inventoryEntity.Movement, error) {
	_, after, err := l.updateTx(tx, id, patch)
	return after, err
}

func (l *Ledger) updateTx(tx *gorm.DB, id uint, patch MovementPatch) (inventoryEntity.Movement, *inventoryEntity.Movement, error) {
	mv, err := lockMovement(tx, id)
	if err != nil {
		return inventoryEntity.Movement{}, nil, err
	}
	before := *mv
	oldTarget := TargetOf(mv)
	oldEffect := mv.SignedEffect()

	unit := mv.UnitPrice
	req := MovementRequest{
		Target:             oldTarget,
		Type:               mv.MovementType,
		Quantity:           mv.Quantity,
		UnitPrice:          &unit,
		DiscountPercentage: mv.DiscountPercentage,
		Reason:             mv.Reason,
		Notes:              mv.Notes,
		ReservationID:      mv.ReservationID,
		InvoiceID:          mv.InvoiceID,
	}
	if patch.Target != nil {
		req.Target = *patch.Target
		req.ProductID = patch.ProductID
		if req.Target != oldTarget {
			req.UnitPrice = nil
		}
	}
	if patch.Type != nil {
		req.Type = *patch.Type
	}
	if patch.Quantity != nil {
		req.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		req.UnitPrice = patch.UnitPrice
	}
	if patch.DiscountPercentage != nil {
		req.DiscountPercentage = *patch.DiscountPercentage
	}
	if patch.Reason != nil {
		req.Reason = *patch.Reason
	}
	if patch.Notes != nil {
		req.Notes = *patch.Notes
	}
	if err := validateRequest(req); err != nil {
		return before, nil, err
	}

	set, err := lockTargets(tx, []Target{oldTarget, req.Target})
	if err != nil {
		return before, nil, err
	}
	next, err := set.build(req)
	if err != nil {
		return before, nil, err
	}

	mv.ProductID = next.ProductID
	mv.VariantID = next.VariantID
	mv.MovementType = next.MovementType
	mv.Quantity = next.Quantity
	mv.UnitPrice = next.UnitPrice
	mv.DiscountPercentage = next.DiscountPercentage
	mv.FinalUnitPrice = next.FinalUnitPrice
	mv.TotalAmount = next.TotalAmount
	mv.Reason = next.Reason
	mv.Notes = next.Notes
	mv.UpdatedAt = l.now()
	if err := tx.Save(mv).Error; err != nil {
		return before, nil, fmt.Errorf("save movement %d: %w", id, err)
	}

	set.add(oldTarget, -oldEffect)
	set.add(req.Target, mv.SignedEffect())
	if t, v, ok := set.negative(); ok {
		return before, nil, apperr.Validation("cannot update movement %d: stock of %s would be %d", id, t, v)
	}
	if err := set.flush(tx); err != nil {
		return before, nil, err
	}
	return before, mv, nil
}

// Delete removes a movement after reverting its effect. It fails when the
// reversal would drive stock negative or the movement still backs an active reservation.
func (l *Ledger) Delete(ctx context.Context, id uint, actor audit.Actor) error {
	var removed *inventoryEntity.Movement
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mv, err := lockMovement(tx, id)
		if err != nil {
			return err
		}
		if mv.MovementType == inventoryEntity.MovementReserve && mv.ReservationID != nil {
			var res billingEntity.Reservation
			if err := tx.Select("id", "status").First(&res, *mv.ReservationID).Error; err == nil && res.Status == billingEntity.ReservationActive {
				return apperr.Validation("movement %d backs active reservation %d; cancel the reservation instead", id, res.ID)
			}
		}
		target := TargetOf(mv)
		set, err := lockTargets(tx, []Target{target})
		if err != nil {
			return err
		}
		set.add(target, -mv.SignedEffect())
		if v := set.stock(target); v < 0 {
			return apperr.Validation("cannot delete movement %d: stock of %s would go negative (%d)", id, target, v)
		}
		if err := tx.Delete(mv).Error; err != nil {
			return fmt.Errorf("delete movement %d: %w", id, err)
		}
		if err := set.flush(tx); err != nil {
			return err
		}
		removed = mv
		return nil
	})
	if err != nil {
		return err
	}
	l.audit.Record(ctx, actor, movementEntry(auditEntity.ActionDelete, removed))
	return nil
}

func lockMovement(tx *gorm.DB, id uint) (*inventoryEntity.Movement, error) {
	var mv inventoryEntity.Movement
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&mv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("movement %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock movement %d: %w", id, err)
	}
	return &mv, nil
}

// Get returns one movement.
func (l *Ledger) Get(ctx context.Context, id uint) (*inventoryEntity.Movement, error) {
	mv, err := l.movements.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("movement %d not found", id)
	}
	return mv, err
}

// History lists movements in creation order.
func (l *Ledger) History(ctx context.Context, f inventoryRepo.MovementFilter) ([]inventoryEntity.Movement, error) {
	return l.movements.List(ctx, f)
}

// Reconciliation compares stored stock with the replayed movement history.
type Reconciliation struct {
	Target  string `json:"target"`
	Stored  int    `json:"stored"`
	Derived int64  `json:"derived"`
}

func (r Reconciliation) Balanced() bool { return int64(r.Stored) == r.Derived }

// Reconcile replays the ledger for t. A mismatch means stock was written outside the ledger.
func (l *Ledger) Reconcile(ctx context.Context, t Target) (Reconciliation, error) {
	rec := Reconciliation{Target: t.String()}
	var err error
	if t.IsVariant() {
		v, verr := l.catalog.Variant(ctx, t.ID())
		if verr != nil {
			return rec, verr
		}
		rec.Stored = v.Stock
		id := v.ID
		rec.Derived, err = l.movements.SumSignedEffect(ctx, v.ProductID, &id)
	} else {
		p, perr := l.catalog.Product(ctx, t.ID())
		if perr != nil {
			return rec, perr
		}
		rec.Stored = p.Stock
		rec.Derived, err = l.movements.SumSignedEffect(ctx, p.ID, nil)
	}
	return rec, err
}

func movementEntry(action auditEntity.Action, m *inventoryEntity.Movement) audit.Entry {
	return audit.Entry{
		Action:      action,
		Model:       "inventory_movement",
		ObjectID:    audit.ObjectID(m.ID),
		Description: fmt.Sprintf("%s %s x%d on %s", action, m.MovementType, m.Quantity, TargetOf(m)),
		Data: map[string]interface{}{
			"movement_type":  string(m.MovementType),
			"quantity":       m.Quantity,
			"product_id":     m.ProductID,
			"variant_id":     m.VariantID,
			"reservation_id": m.ReservationID,
			"invoice_id":     m.InvoiceID,
			"total_amount":   m.TotalAmount.String(),
		},
	}
}

// AuditEntries describes movements for callers that record them inside their own transaction.
func AuditEntries(action auditEntity.Action, mvs ...*inventoryEntity.Movement) []audit.Entry {
	entries := make([]audit.Entry, 0, len(mvs))
	for _, m := range mvs {
		entries = append(entries, movementEntry(action, m))
	}
	return entries
}
