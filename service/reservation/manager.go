// Package reservation manages layaway reservations: a client deposit holds
// stock through reserve movements until the reservation is completed by a
// sale, cancelled, or expires.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice.GO/config"
	"backoffice.GO/core/apperr"
	auditEntity "backoffice.GO/model/entity/audit"
	billingEntity "backoffice.GO/model/entity/billing"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	billingRepo "backoffice.GO/model/repository/billing"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/catalog"
	"backoffice.GO/service/ledger"
)

// ReleaseReason selects the terminal state Release moves to.
type ReleaseReason string

const (
	ReleaseExpired   ReleaseReason = "expired"
	ReleaseCancelled ReleaseReason = "cancelled"
)

type ItemInput struct {
	ProductID uint             `json:"product_id"`
	VariantID *uint            `json:"variant_id,omitempty"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type CreateInput struct {
	ClientName     string          `json:"client_name"`
	ClientDocument string          `json:"client_document"`
	ClientPhone    string          `json:"client_phone"`
	ClientEmail    string          `json:"client_email"`
	Deposit        decimal.Decimal `json:"deposit"`
	Notes          string          `json:"notes"`
	Items          []ItemInput     `json:"items"`
}

type Manager struct {
	db      *gorm.DB
	repo    *billingRepo.ReservationRepository
	catalog catalog.Catalog
	ledger  *ledger.Ledger
	audit   *audit.Recorder
	policy  config.ReservationPolicy
	logger  *zap.Logger
	now     func() time.Time
}

func NewManager(db *gorm.DB, cat catalog.Catalog, l *ledger.Ledger, rec *audit.Recorder, policy config.ReservationPolicy, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		db:      db,
		repo:    billingRepo.NewReservationRepository(db),
		catalog: cat,
		ledger:  l,
		audit:   rec,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// Create persists the reservation and marks its stock reserved in one
// transaction. Items without a unit price take the catalog price.
func (m *Manager) Create(ctx context.Context, in CreateInput, actor audit.Actor) (*billingEntity.Reservation, error) {
	if strings.TrimSpace(in.ClientName) == "" {
		return nil, apperr.Validation("client name is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("a reservation needs at least one item")
	}
	if in.Deposit.IsNegative() {
		return nil, apperr.Validation("deposit cannot be negative")
	}

	items := make([]billingEntity.ReservationItem, 0, len(in.Items))
	subtotal := decimal.Zero
	for i, it := range in.Items {
		item, err := m.resolveItem(ctx, it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		subtotal = subtotal.Add(billingEntity.LineSubtotal(item.UnitPrice, item.Quantity))
		items = append(items, item)
	}
	subtotal = subtotal.RoundBank(2)
	deposit := in.Deposit.RoundBank(2)
	if deposit.GreaterThan(subtotal) {
		return nil, apperr.Validation("deposit %s exceeds the reservation total %s", deposit, subtotal)
	}

	now := m.now()
	res := &billingEntity.Reservation{
		ClientName:     strings.TrimSpace(in.ClientName),
		ClientDocument: in.ClientDocument,
		ClientPhone:    in.ClientPhone,
		ClientEmail:    in.ClientEmail,
		Deposit:        deposit,
		Subtotal:       subtotal,
		DueDate:        DueDate(m.policy, now, deposit, subtotal),
		Status:         billingEntity.ReservationActive,
		Notes:          in.Notes,
		UserID:         actor.UserID,
		Items:          items,
	}

	var mvs []*inventoryEntity.Movement
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		var err error
		mvs, err = m.markReservedTx(tx, res, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := []audit.Entry{entry(auditEntity.ActionCreate, res,
		fmt.Sprintf("reservation #%d created for %s, due %s", res.ID, res.ClientName, res.DueDate.Format("2006-01-02")))}
	m.audit.Record(ctx, actor, append(entries, ledger.AuditEntries(auditEntity.ActionCreate, mvs...)...)...)
	m.logger.Info("reservation created", zap.Uint("id", res.ID), zap.String("subtotal", subtotal.String()), zap.Time("due", res.DueDate))
	return res, nil
}

func (m *Manager) resolveItem(ctx context.Context, it ItemInput) (billingEntity.ReservationItem, error) {
	item := billingEntity.ReservationItem{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	if it.Quantity <= 0 {
		return item, apperr.Validation("quantity must be positive, got %d", it.Quantity)
	}
	if it.UnitPrice != nil {
		if it.UnitPrice.IsNegative() {
			return item, apperr.Validation("unit price cannot be negative")
		}
		if err := m.checkTarget(ctx, it.ProductID, it.VariantID); err != nil {
			return item, err
		}
		item.UnitPrice = it.UnitPrice.RoundBank(2)
		return item, nil
	}
	price, err := m.catalog.UnitPrice(ctx, it.ProductID, it.VariantID)
	if err != nil {
		return item, err
	}
	item.UnitPrice = price
	return item, nil
}

func (m *Manager) checkTarget(ctx context.Context, productID uint, variantID *uint) error {
	if variantID == nil {
		_, err := m.catalog.Product(ctx, productID)
		return err
	}
	v, err := m.catalog.Variant(ctx, *variantID)
	if err != nil {
		return err
	}
	if v.ProductID != productID {
		return apperr.Validation("variant %d does not belong to product %d", v.ID, productID)
	}
	return nil
}

// MarkReserved records one reserve movement per item. It is a no-op once the
// reservation's movements exist.
func (m *Manager) MarkReserved(ctx context.Context, id uint, actor audit.Actor) error {
	var res *billingEntity.Reservation
	var mvs []*inventoryEntity.Movement
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if res, err = lock(tx, id); err != nil {
			return err
		}
		if res.MovementCreated {
			return nil
		}
		if res.IsTerminal() {
			return apperr.Validation("reservation %d is %s", id, res.Status)
		}
		mvs, err = m.markReservedTx(tx, res, actor)
		return err
	})
	if err != nil || len(mvs) == 0 {
		return err
	}
	entries := []audit.Entry{entry(auditEntity.ActionUpdate, res, fmt.Sprintf("stock reserved for reservation #%d", res.ID))}
	m.audit.Record(ctx, actor, append(entries, ledger.AuditEntries(auditEntity.ActionCreate, mvs...)...)...)
	return nil
}

func (m *Manager) markReservedTx(tx *gorm.DB, res *billingEntity.Reservation, actor audit.Actor) ([]*inventoryEntity.Movement, error) {
	reqs := make([]ledger.MovementRequest, 0, len(res.Items))
	for _, item := range res.Items {
		unit := item.UnitPrice
		reqs = append(reqs, ledger.MovementRequest{
			Target:           ledger.TargetFor(item.ProductID, item.VariantID),
			ProductID:        item.ProductID,
			Type:             inventoryEntity.MovementReserve,
			Quantity:         item.Quantity,
			UnitPrice:        &unit,
			ReservationID:    &res.ID,
			Notes:            fmt.Sprintf("reservation #%d", res.ID),
			RequireAvailable: true,
		})
	}
	mvs, err := m.ledger.RecordTx(tx, reqs, actor)
	if err != nil {
		return nil, err
	}
	if err := tx.Model(res).Update("movement_created", true).Error; err != nil {
		return nil, fmt.Errorf("flag reservation %d: %w", res.ID, err)
	}
	res.MovementCreated = true
	return mvs, nil
}

// Release moves an active reservation to expired or cancelled. Terminal
// reservations are returned unchanged. No compensating movement is written:
// reserve movements never touched physical stock.
func (m *Manager) Release(ctx context.Context, id uint, reason ReleaseReason, actor audit.Actor) (*billingEntity.Reservation, error) {
	status := billingEntity.ReservationCancelled
	if reason == ReleaseExpired {
		status = billingEntity.ReservationExpired
	}
	var res *billingEntity.Reservation
	changed := false
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if res, err = lock(tx, id); err != nil {
			return err
		}
		if res.IsTerminal() {
			return nil
		}
		if err := tx.Model(res).Update("status", status).Error; err != nil {
			return fmt.Errorf("release reservation %d: %w", id, err)
		}
		res.Status = status
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		m.audit.Record(ctx, actor, entry(auditEntity.ActionUpdate, res, fmt.Sprintf("reservation #%d released: %s", id, reason)))
	}
	return res, nil
}

func (m *Manager) Cancel(ctx context.Context, id uint, actor audit.Actor) (*billingEntity.Reservation, error) {
	return m.Release(ctx, id, ReleaseCancelled, actor)
}

// SweepExpired expires every active reservation past its due date and
// returns how many transitioned.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	ids, err := m.repo.OverdueIDs(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("find overdue reservations: %w", err)
	}
	moved, err := m.repo.Expire(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("expire reservations: %w", err)
	}
	if len(moved) == 0 {
		return 0, nil
	}
	entries := make([]audit.Entry, 0, len(moved))
	for _, id := range moved {
		entries = append(entries, audit.Entry{
			Action:      auditEntity.ActionUpdate,
			Model:       "reservation",
			ObjectID:    audit.ObjectID(id),
			Description: fmt.Sprintf("reservation #%d released: %s", id, ReleaseExpired),
			Data:        map[string]interface{}{"status": string(billingEntity.ReservationExpired)},
		})
	}
	m.audit.Record(ctx, audit.System(), entries...)
	m.logger.Info("reservations expired", zap.Int("count", len(moved)))
	return len(moved), nil
}

// CompleteTx closes res as part of a sale inside the caller's transaction.
// sold holds the quantity the sale takes per target. Reserve movements turn
// into out movements for at most that quantity, so the physical decrement
// happens here exactly once and only for what is sold. Holds with nothing
// sold stay reserve movements and stop counting once the reservation is
// completed. It returns the converted movements.
func (m *Manager) CompleteTx(tx *gorm.DB, id uint, sold map[ledger.Target]int) (*billingEntity.Reservation, []*inventoryEntity.Movement, error) {
	res, err := lock(tx, id)
	if err != nil {
		return nil, nil, err
	}
	if res.IsTerminal() {
		return nil, nil, apperr.Validation("reservation %d is %s and cannot be invoiced", id, res.Status)
	}
	var converted []*inventoryEntity.Movement
	if res.MovementCreated {
		var holds []inventoryEntity.Movement
		if err := tx.Where("reservation_id = ? AND movement_type = ?", id, inventoryEntity.MovementReserve).
			Order("id").Find(&holds).Error; err != nil {
			return nil, nil, fmt.Errorf("load reserve movements: %w", err)
		}
		left := make(map[ledger.Target]int, len(sold))
		for t, q := range sold {
			left[t] = q
		}
		outType := inventoryEntity.MovementOut
		for _, h := range holds {
			t := ledger.TargetFor(h.ProductID, h.VariantID)
			n := min(h.Quantity, left[t])
			if n <= 0 {
				continue
			}
			left[t] -= n
			mv, err := m.ledger.UpdateTx(tx, h.ID, ledger.MovementPatch{Type: &outType, Quantity: &n})
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, mv)
		}
	}
	if err := tx.Model(res).Update("status", billingEntity.ReservationCompleted).Error; err != nil {
		return nil, nil, fmt.Errorf("complete reservation %d: %w", id, err)
	}
	res.Status = billingEntity.ReservationCompleted
	return res, converted, nil
}

// CompletedEntry describes a reservation closed by CompleteTx for auditing after commit.
func CompletedEntry(res *billingEntity.Reservation, invoiceID uint) audit.Entry {
	return entry(auditEntity.ActionUpdate, res, fmt.Sprintf("reservation #%d completed by invoice %d", res.ID, invoiceID))
}

// UpdateDeposit changes the deposit and recomputes the due date from today.
func (m *Manager) UpdateDeposit(ctx context.Context, id uint, deposit decimal.Decimal, actor audit.Actor) (*billingEntity.Reservation, error) {
	if deposit.IsNegative() {
		return nil, apperr.Validation("deposit cannot be negative")
	}
	deposit = deposit.RoundBank(2)
	var res *billingEntity.Reservation
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if res, err = lock(tx, id); err != nil {
			return err
		}
		if res.IsTerminal() {
			return apperr.Validation("reservation %d is %s", id, res.Status)
		}
		if deposit.GreaterThan(res.Subtotal) {
			return apperr.Validation("deposit %s exceeds the reservation total %s", deposit, res.Subtotal)
		}
		res.Deposit = deposit
		res.DueDate = DueDate(m.policy, m.now(), deposit, res.Subtotal)
		return tx.Model(res).Updates(map[string]interface{}{"deposit": res.Deposit, "due_date": res.DueDate}).Error
	})
	if err != nil {
		return nil, err
	}
	m.audit.Record(ctx, actor, entry(auditEntity.ActionUpdate, res,
		fmt.Sprintf("reservation #%d deposit set to %s, due %s", id, deposit, res.DueDate.Format("2006-01-02"))))
	return res, nil
}

// Get expires overdue reservations before loading id.
func (m *Manager) Get(ctx context.Context, id uint) (*billingEntity.Reservation, error) {
	m.sweepQuietly(ctx)
	res, err := m.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("reservation %d not found", id)
	}
	return res, err
}

// List expires overdue reservations before listing.
func (m *Manager) List(ctx context.Context, f billingRepo.ReservationFilter) ([]billingEntity.Reservation, error) {
	m.sweepQuietly(ctx)
	return m.repo.List(ctx, f)
}

func (m *Manager) sweepQuietly(ctx context.Context) {
	if _, err := m.SweepExpired(ctx); err != nil {
		m.logger.Warn("lazy reservation sweep failed", zap.Error(err))
	}
}

func lock(tx *gorm.DB, id uint) (*billingEntity.Reservation, error) {
	res, err := billingRepo.LockByID(tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("reservation %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock reservation %d: %w", id, err)
	}
	return res, nil
}

func entry(action auditEntity.Action, res *billingEntity.Reservation, description string) audit.Entry {
	return audit.Entry{
		Action:      action,
		Model:       "reservation",
		ObjectID:    audit.ObjectID(res.ID),
		Description: description,
		Data: map[string]interface{}{
			"status":           string(res.Status),
			"deposit":          res.Deposit.String(),
			"subtotal":         res.Subtotal.String(),
			"due_date":         res.DueDate.Format(time.RFC3339),
			"movement_created": res.MovementCreated,
		},
	}
}
