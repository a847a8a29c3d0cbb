// Package invoice turns sales into invoices: totals, codes, payments and
// the out movements that take sold goods off the shelf.
package invoice

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
	"backoffice.GO/service/reservation"
)

type ItemInput struct {
	ProductID uint             `json:"product_id"`
	VariantID *uint            `json:"variant_id,omitempty"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type CreateInput struct {
	// ReservationID turns the sale into the completion of that reservation.
	// Client fields are then copied from it, and so are its items when Items is empty.
	ReservationID      *uint                       `json:"reservation_id,omitempty"`
	ClientName         string                      `json:"client_name"`
	ClientDocument     string                      `json:"client_document"`
	ClientPhone        string                      `json:"client_phone"`
	ClientEmail        string                      `json:"client_email"`
	DiscountPercentage decimal.Decimal             `json:"discount_percentage"`
	PaymentMethod      billingEntity.PaymentMethod `json:"payment_method"`
	PaymentProvider    string                      `json:"payment_provider"`
	AmountPaid         decimal.Decimal             `json:"amount_paid"`
	Notes              string                      `json:"notes"`
	Items              []ItemInput                 `json:"items"`
}

type Engine struct {
	db           *gorm.DB
	repo         *billingRepo.InvoiceRepository
	catalog      catalog.Catalog
	reservations *reservation.Manager
	ledger       *ledger.Ledger
	audit        *audit.Recorder
	settings     config.InvoiceSettings
	logger       *zap.Logger
	now          func() time.Time
}

func NewEngine(db *gorm.DB, cat catalog.Catalog, reservations *reservation.Manager, l *ledger.Ledger, rec *audit.Recorder, settings config.InvoiceSettings, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.CodePrefix == "" {
		settings.CodePrefix = "FAC"
	}
	return &Engine{
		db:           db,
		repo:         billingRepo.NewInvoiceRepository(db),
		catalog:      cat,
		reservations: reservations,
		ledger:       l,
		audit:        rec,
		settings:     settings,
		logger:       logger,
		now:          time.Now,
	}
}

func validatePayment(method billingEntity.PaymentMethod, provider string, amount decimal.Decimal) error {
	if !method.Valid() {
		return apperr.Validation("unknown payment method %q", method)
	}
	switch method {
	case billingEntity.PaymentDigital:
		if provider != billingEntity.ProviderNequi && provider != billingEntity.ProviderDaviplata {
			return apperr.Validation("digital payments need a provider (%s or %s)", billingEntity.ProviderNequi, billingEntity.ProviderDaviplata)
		}
	case billingEntity.PaymentCash:
		if provider != "" {
			return apperr.Validation("cash payments take no provider")
		}
	}
	if amount.IsNegative() {
		return apperr.Validation("amount paid cannot be negative")
	}
	return nil
}

// Create records a sale. With a reservation, the reservation is completed
// before inventory is moved so reserved quantities are decremented once.
func (e *Engine) Create(ctx context.Context, in CreateInput, actor audit.Actor) (*billingEntity.Invoice, error) {
	in.PaymentProvider = strings.ToUpper(strings.TrimSpace(in.PaymentProvider))
	if err := validatePayment(in.PaymentMethod, in.PaymentProvider, in.AmountPaid); err != nil {
		return nil, err
	}
	if in.DiscountPercentage.IsNegative() || in.DiscountPercentage.GreaterThan(hundred) {
		return nil, apperr.Validation("discount must be between 0 and 100, got %s", in.DiscountPercentage)
	}

	inv := &billingEntity.Invoice{
		ClientName:         strings.TrimSpace(in.ClientName),
		ClientDocument:     in.ClientDocument,
		ClientPhone:        in.ClientPhone,
		ClientEmail:        in.ClientEmail,
		DiscountPercentage: in.DiscountPercentage.RoundBank(2),
		PaymentMethod:      in.PaymentMethod,
		PaymentProvider:    in.PaymentProvider,
		AmountPaid:         in.AmountPaid.RoundBank(2),
		Status:             billingEntity.InvoicePending,
		Notes:              in.Notes,
		UserID:             actor.UserID,
	}

	inputs := in.Items
	if in.ReservationID != nil {
		res, err := e.reservations.Get(ctx, *in.ReservationID)
		if err != nil {
			return nil, err
		}
		if res.IsTerminal() {
			return nil, apperr.Validation("reservation %d is %s and cannot be invoiced", res.ID, res.Status)
		}
		inv.ReservationID = &res.ID
		inv.ClientName = res.ClientName
		inv.ClientDocument = res.ClientDocument
		inv.ClientPhone = res.ClientPhone
		inv.ClientEmail = res.ClientEmail
		if len(inputs) == 0 {
			for _, it := range res.Items {
				unit := it.UnitPrice
				inputs = append(inputs, ItemInput{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity, UnitPrice: &unit})
			}
		}
	}
	if len(inputs) == 0 {
		return nil, apperr.Validation("an invoice needs at least one item")
	}
	for i, it := range inputs {
		item, err := e.resolveItem(ctx, it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		inv.Items = append(inv.Items, item)
	}

	var (
		completed *billingEntity.Reservation
		converted []*inventoryEntity.Movement
		moved     []*inventoryEntity.Movement
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deposit := decimal.Zero
		if inv.ReservationID != nil {
			var err error
			completed, converted, err = e.reservations.CompleteTx(tx, *inv.ReservationID, soldByTarget(inv.Items))
			if err != nil {
				return err
			}
			deposit = completed.Deposit
		}

		totals := ComputeTotals(inv.Items, inv.DiscountPercentage)
		inv.Subtotal, inv.DiscountAmount, inv.Total = totals.Subtotal, totals.DiscountAmount, totals.Total
		if inv.Total.LessThan(deposit) {
			return apperr.Validation("invoice total %s is below the reservation deposit %s", inv.Total, deposit)
		}
		e.settle(inv, deposit)

		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if inv.Code == "" {
			inv.Code = GenerateCode(e.settings.CodePrefix, inv.CreatedAt.Year(), inv.ID)
			if err := tx.Model(inv).Update("code", inv.Code).Error; err != nil {
				return fmt.Errorf("set invoice code: %w", err)
			}
		}
		if len(converted) > 0 {
			ids := make([]uint, 0, len(converted))
			for _, mv := range converted {
				ids = append(ids, mv.ID)
				mv.InvoiceID = &inv.ID
			}
			if err := tx.Model(&inventoryEntity.Movement{}).Where("id IN ?", ids).Update("invoice_id", inv.ID).Error; err != nil {
				return fmt.Errorf("link reservation movements: %w", err)
			}
		}

		var err error
		moved, err = e.applyInventoryMovementsTx(tx, inv.ID, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	inv.InventoryMoved = true

	entries := []audit.Entry{invoiceEntry(auditEntity.ActionCreate, inv,
		fmt.Sprintf("invoice %s created (status=%s, paid=%t)", inv.Code, inv.Status, inv.Paid))}
	if completed != nil {
		entries = append(entries, reservation.CompletedEntry(completed, inv.ID))
		entries = append(entries, ledger.AuditEntries(auditEntity.ActionUpdate, converted...)...)
	}
	entries = append(entries, ledger.AuditEntries(auditEntity.ActionCreate, moved...)...)
	e.audit.Record(ctx, actor, entries...)
	e.logger.Info("invoice created", zap.String("code", inv.Code), zap.String("total", inv.Total.String()), zap.Int("movements", len(converted)+len(moved)))
	return inv, nil
}

func (e *Engine) resolveItem(ctx context.Context, it ItemInput) (billingEntity.InvoiceItem, error) {
	item := billingEntity.InvoiceItem{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	if it.Quantity <= 0 {
		return item, apperr.Validation("quantity must be positive, got %d", it.Quantity)
	}
	if it.UnitPrice == nil {
		price, err := e.catalog.UnitPrice(ctx, it.ProductID, it.VariantID)
		if err != nil {
			return item, err
		}
		item.UnitPrice = price
	} else {
		if it.UnitPrice.IsNegative() {
			return item, apperr.Validation("unit price cannot be negative")
		}
		item.UnitPrice = it.UnitPrice.RoundBank(2)
	}
	item.Subtotal = billingEntity.LineSubtotal(item.UnitPrice, item.Quantity)
	return item, nil
}

func soldByTarget(items []billingEntity.InvoiceItem) map[ledger.Target]int {
	out := make(map[ledger.Target]int, len(items))
	for _, it := range items {
		out[ledger.TargetFor(it.ProductID, it.VariantID)] += it.Quantity
	}
	return out
}

// settle marks the invoice paid once amount paid covers total minus deposit.
func (e *Engine) settle(inv *billingEntity.Invoice, deposit decimal.Decimal) {
	if inv.AmountPaid.GreaterThanOrEqual(inv.Total.Sub(deposit)) {
		now := e.now()
		inv.Paid = true
		inv.PaymentDate = &now
		inv.Status = billingEntity.InvoiceCompleted
		return
	}
	inv.Paid = false
	inv.PaymentDate = nil
	inv.Status = billingEntity.InvoicePending
}

// ApplyInventoryMovements writes the invoice's out movements. It is a no-op
// once they exist, so it is safe to retry.
func (e *Engine) ApplyInventoryMovements(ctx context.Context, id uint, actor audit.Actor) ([]*inventoryEntity.Movement, error) {
	var moved []*inventoryEntity.Movement
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		moved, err = e.applyInventoryMovementsTx(tx, id, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.audit.Record(ctx, actor, ledger.AuditEntries(auditEntity.ActionCreate, moved...)...)
	return moved, nil
}

// applyInventoryMovementsTx skips the quantity already moved for this
// invoice through its reservation and records out movements for the rest.
func (e *Engine) applyInventoryMovementsTx(tx *gorm.DB, id uint, actor audit.Actor) ([]*inventoryEntity.Movement, error) {
	inv, err := lockInvoice(tx, id)
	if err != nil {
		return nil, err
	}
	if inv.InventoryMoved {
		return nil, nil
	}

	covered := map[ledger.Target]int{}
	if inv.ReservationID != nil {
		var sold []inventoryEntity.Movement
		if err := tx.Where("invoice_id = ? AND reservation_id = ? AND movement_type = ?", inv.ID, *inv.ReservationID, inventoryEntity.MovementOut).
			Find(&sold).Error; err != nil {
			return nil, fmt.Errorf("load reservation sales for invoice %d: %w", inv.ID, err)
		}
		for _, mv := range sold {
			covered[ledger.TargetFor(mv.ProductID, mv.VariantID)] += mv.Quantity
		}
	}

	label := inv.Code
	if label == "" {
		label = fmt.Sprintf("#%d", inv.ID)
	}
	var reqs []ledger.MovementRequest
	for _, it := range inv.Items {
		target := ledger.TargetFor(it.ProductID, it.VariantID)
		qty := it.Quantity
		if c := covered[target]; c > 0 {
			take := min(c, qty)
			covered[target] -= take
			qty -= take
		}
		if qty == 0 {
			continue
		}
		unit := it.UnitPrice
		reqs = append(reqs, ledger.MovementRequest{
			Target:             target,
			ProductID:          it.ProductID,
			Type:               inventoryEntity.MovementOut,
			Quantity:           qty,
			UnitPrice:          &unit,
			DiscountPercentage: inv.DiscountPercentage,
			InvoiceID:          &inv.ID,
			Notes:              "sale invoice " + label,
		})
	}

	var moved []*inventoryEntity.Movement
	if len(reqs) > 0 {
		if moved, err = e.ledger.RecordTx(tx, reqs, actor); err != nil {
			return nil, err
		}
	}
	if err := tx.Model(inv).Update("inventory_moved", true).Error; err != nil {
		return nil, fmt.Errorf("flag invoice %d: %w", inv.ID, err)
	}
	return moved, nil
}

// RegisterPayment adds amount to what the client has paid and settles the
// invoice when the balance is covered.
func (e *Engine) RegisterPayment(ctx context.Context, id uint, amount decimal.Decimal, method billingEntity.PaymentMethod, provider string, actor audit.Actor) (*billingEntity.Invoice, error) {
	provider = strings.ToUpper(strings.TrimSpace(provider))
	if err := validatePayment(method, provider, amount); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperr.Validation("payment amount must be positive")
	}
	var inv *billingEntity.Invoice
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if inv, err = lockInvoice(tx, id); err != nil {
			return err
		}
		switch {
		case inv.Status == billingEntity.InvoiceCancelled:
			return apperr.Validation("invoice %s is cancelled", inv.Code)
		case inv.Paid:
			return apperr.Validation("invoice %s is already paid", inv.Code)
		}
		deposit := decimal.Zero
		if inv.ReservationID != nil {
			var res billingEntity.Reservation
			if err := tx.Select("id", "deposit").First(&res, *inv.ReservationID).Error; err == nil {
				deposit = res.Deposit
			}
		}
		inv.AmountPaid = inv.AmountPaid.Add(amount).RoundBank(2)
		inv.PaymentMethod = method
		inv.PaymentProvider = provider
		e.settle(inv, deposit)
		return tx.Model(inv).Updates(map[string]interface{}{
			"amount_paid":      inv.AmountPaid,
			"payment_method":   inv.PaymentMethod,
			"payment_provider": inv.PaymentProvider,
			"paid":             inv.Paid,
			"payment_date":     inv.PaymentDate,
			"status":           inv.Status,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	e.audit.Record(ctx, actor, invoiceEntry(auditEntity.ActionUpdate, inv,
		fmt.Sprintf("payment of %s registered on invoice %s (paid=%t)", amount, inv.Code, inv.Paid)))
	return inv, nil
}

// RemainingDue is what the client still owes: total minus any reservation
// deposit minus payments, never below zero.
func (e *Engine) RemainingDue(ctx context.Context, inv *billingEntity.Invoice) (decimal.Decimal, error) {
	due := inv.Total.Sub(inv.AmountPaid)
	if inv.ReservationID != nil {
		var res billingEntity.Reservation
		if err := e.db.WithContext(ctx).Select("id", "deposit").First(&res, *inv.ReservationID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, err
		}
		due = due.Sub(res.Deposit)
	}
	if due.IsNegative() {
		return decimal.Zero, nil
	}
	return due.RoundBank(2), nil
}

func (e *Engine) Get(ctx context.Context, id uint) (*billingEntity.Invoice, error) {
	inv, err := e.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("invoice %d not found", id)
	}
	return inv, err
}

func (e *Engine) GetByCode(ctx context.Context, code string) (*billingEntity.Invoice, error) {
	inv, err := e.repo.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("invoice %s not found", code)
	}
	return inv, err
}

func (e *Engine) List(ctx context.Context, f billingRepo.InvoiceFilter) ([]billingEntity.Invoice, error) {
	return e.repo.List(ctx, f)
}

func lockInvoice(tx *gorm.DB, id uint) (*billingEntity.Invoice, error) {
	inv, err := billingRepo.LockInvoice(tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("invoice %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock invoice %d: %w", id, err)
	}
	return inv, nil
}

func invoiceEntry(action auditEntity.Action, inv *billingEntity.Invoice, description string) audit.Entry {
	return audit.Entry{
		Action:      action,
		Model:       "invoice",
		ObjectID:    audit.ObjectID(inv.ID),
		Description: description,
		Data: map[string]interface{}{
			"code":            inv.Code,
			"total":           inv.Total.String(),
			"discount_amount": inv.DiscountAmount.String(),
			"amount_paid":     inv.AmountPaid.String(),
			"status":          string(inv.Status),
			"reservation_id":  inv.ReservationID,
		},
	}
}
