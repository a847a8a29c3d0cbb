package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice.GO/core/apperr"
	auditEntity "backoffice.GO/model/entity/audit"
	billingEntity "backoffice.GO/model/entity/billing"
	catalogEntity "backoffice.GO/model/entity/catalog"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	inventoryRepo "backoffice.GO/model/repository/inventory"
)

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func inRange(q *gorm.DB, column string, p Params) *gorm.DB {
	from, to := p.Range()
	if !from.IsZero() {
		q = q.Where(column+" >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where(column+" < ?", to)
	}
	return q
}

func (s *Service) inventory(ctx context.Context, p Params) (*Result, error) {
	q := s.db.WithContext(ctx).Model(&catalogEntity.Product{}).Preload("Variants").Preload("Categories")
	if p.CategoryID != 0 {
		q = q.Where("id IN (?)", s.db.Table("product_categories").Select("product_id").Where("category_id = ?", p.CategoryID))
	}
	if p.Status != "" {
		q = q.Where("status = ?", p.Status)
	}
	var products []catalogEntity.Product
	if err := q.Order("name, id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	reserved, err := s.availability.ReservedByProduct(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Kind:    KindInventory,
		Columns: []string{"id", "sku", "name", "category", "stock", "reserved_stock", "available_stock", "min_stock", "price", "stock_value", "low_stock"},
	}
	for _, pr := range products {
		stock := pr.EffectiveStock()
		if p.MinStock != nil && stock < *p.MinStock {
			continue
		}
		low := pr.IsLowStock()
		if p.LowStockOnly && !low {
			continue
		}
		category := ""
		if len(pr.Categories) > 0 {
			category = pr.Categories[0].Name
		}
		var price interface{}
		if pr.Price.Valid {
			price = pr.Price.Decimal
		}
		res.Rows = append(res.Rows, Row{
			"id":              pr.ID,
			"sku":             pr.SKU,
			"name":            pr.Name,
			"category":        category,
			"stock":           stock,
			"reserved_stock":  reserved[pr.ID],
			"available_stock": stock - reserved[pr.ID],
			"min_stock":       pr.MinStock,
			"price":           price,
			"stock_value":     pr.Cost.Mul(decimal.NewFromInt(int64(stock))).RoundBank(2),
			"low_stock":       low,
		})
	}
	return res, nil
}

func (s *Service) movementHistory(ctx context.Context, p Params) (*Result, error) {
	from, to := p.Range()
	f := inventoryRepo.MovementFilter{ProductIDs: p.ProductIDs, From: from, To: to, Limit: p.Limit}
	for _, t := range p.Types {
		mt := inventoryEntity.MovementType(t)
		if !mt.Valid() {
			return nil, apperr.Validation("unknown movement type %q", t)
		}
		f.Types = append(f.Types, mt)
	}
	mvs, err := s.movements.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}
	res := &Result{
		Kind: KindMovements,
		Columns: []string{"id", "created_at", "product_id", "variant_id", "movement_type", "quantity", "signed_effect",
			"unit_price", "discount_percentage", "final_unit_price", "total_amount", "reservation_id", "invoice_id", "reason", "notes"},
	}
	for _, m := range mvs {
		res.Rows = append(res.Rows, Row{
			"id":                  m.ID,
			"created_at":          ts(m.CreatedAt),
			"product_id":          m.ProductID,
			"variant_id":          m.VariantID,
			"movement_type":       string(m.MovementType),
			"quantity":            m.Quantity,
			"signed_effect":       m.SignedEffect(),
			"unit_price":          m.UnitPrice,
			"discount_percentage": m.DiscountPercentage,
			"final_unit_price":    m.FinalUnitPrice,
			"total_amount":        m.TotalAmount,
			"reservation_id":      m.ReservationID,
			"invoice_id":          m.InvoiceID,
			"reason":              m.Reason,
			"notes":               m.Notes,
		})
	}
	return res, nil
}

func (s *Service) sales(ctx context.Context, p Params) (*Result, error) {
	q := inRange(s.db.WithContext(ctx).Model(&billingEntity.Invoice{}).Preload("Items"), "created_at", p)
	if p.PaymentMethod != "" {
		q = q.Where("payment_method = ?", p.PaymentMethod)
	}
	if p.Status != "" {
		q = q.Where("status = ?", p.Status)
	}
	var invoices []billingEntity.Invoice
	if err := q.Order("created_at DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	res := &Result{
		Kind: KindSales,
		Columns: []string{"id", "code", "client", "subtotal", "discount_amount", "total", "amount_paid",
			"payment_method", "payment_provider", "paid", "status", "items_count", "reservation_id", "created_at"},
	}
	for _, inv := range invoices {
		res.Rows = append(res.Rows, Row{
			"id":               inv.ID,
			"code":             inv.Code,
			"client":           inv.ClientName,
			"subtotal":         inv.Subtotal,
			"discount_amount":  inv.DiscountAmount,
			"total":            inv.Total,
			"amount_paid":      inv.AmountPaid,
			"payment_method":   string(inv.PaymentMethod),
			"payment_provider": inv.PaymentProvider,
			"paid":             inv.Paid,
			"status":           string(inv.Status),
			"items_count":      len(inv.Items),
			"reservation_id":   inv.ReservationID,
			"created_at":       ts(inv.CreatedAt),
		})
	}
	return res, nil
}

type productSales struct {
	ProductID uint
	SKU       string
	Name      string
	QtySold   int64
	Revenue   decimal.Decimal
}

func (s *Service) productSales(ctx context.Context, p Params, ascending bool) ([]productSales, error) {
	q := s.db.WithContext(ctx).Table("invoice_items AS ii").
		Select("ii.product_id AS product_id, p.sku AS sku, p.name AS name, COALESCE(SUM(ii.quantity), 0) AS qty_sold, COALESCE(SUM(ii.subtotal), 0) AS revenue").
		Joins("JOIN invoices i ON i.id = ii.invoice_id").
		Joins("JOIN products p ON p.id = ii.product_id").
		Where("i.status <> ?", billingEntity.InvoiceCancelled)
	q = inRange(q, "i.created_at", p).Group("ii.product_id, p.sku, p.name")
	if ascending {
		q = q.Order("qty_sold ASC, ii.product_id")
	} else {
		q = q.Order("qty_sold DESC, ii.product_id")
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	var out []productSales
	err := q.Scan(&out).Error
	return out, err
}

func (s *Service) topProducts(ctx context.Context, p Params) (*Result, error) {
	if p.Mode != "" && p.Mode != "top" && p.Mode != "bottom" {
		return nil, apperr.Validation("mode must be top or bottom, got %q", p.Mode)
	}
	agg, err := s.productSales(ctx, p, p.Mode == "bottom")
	if err != nil {
		return nil, fmt.Errorf("aggregate product sales: %w", err)
	}
	res := &Result{Kind: KindTopProducts, Columns: []string{"product_id", "sku", "name", "qty_sold", "revenue"}}
	for _, a := range agg {
		res.Rows = append(res.Rows, Row{
			"product_id": a.ProductID,
			"sku":        a.SKU,
			"name":       a.Name,
			"qty_sold":   a.QtySold,
			"revenue":    a.Revenue.RoundBank(2),
		})
	}
	return res, nil
}

func (s *Service) reservations(ctx context.Context, p Params) (*Result, error) {
	if s.sweeper != nil {
		if _, err := s.sweeper.SweepExpired(ctx); err != nil {
			s.logger.Warn("reservation sweep before report failed", zap.Error(err))
		}
	}
	q := inRange(s.db.WithContext(ctx).Model(&billingEntity.Reservation{}).Preload("Items"), "created_at", p)
	if p.Status != "" {
		q = q.Where("status = ?", p.Status)
	}
	var list []billingEntity.Reservation
	if err := q.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	now := s.now()
	res := &Result{
		Kind: KindReservations,
		Columns: []string{"id", "client", "phone", "status", "deposit", "subtotal", "remaining_due",
			"movement_created", "items_count", "days_remaining", "created_at", "due_date"},
	}
	for _, r := range list {
		res.Rows = append(res.Rows, Row{
			"id":               r.ID,
			"client":           r.ClientName,
			"phone":            r.ClientPhone,
			"status":           string(r.Status),
			"deposit":          r.Deposit,
			"subtotal":         r.Subtotal,
			"remaining_due":    r.RemainingDue(),
			"movement_created": r.MovementCreated,
			"items_count":      len(r.Items),
			"days_remaining":   r.DaysRemaining(now),
			"created_at":       ts(r.CreatedAt),
			"due_date":         ts(r.DueDate),
		})
	}
	return res, nil
}

func (s *Service) auditTrail(ctx context.Context, p Params) (*Result, error) {
	q := inRange(s.db.WithContext(ctx).Model(&auditEntity.AuditLog{}), "created_at", p)
	if p.Status != "" {
		q = q.Where("action = ?", p.Status)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	var logs []auditEntity.AuditLog
	if err := q.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load audit logs: %w", err)
	}
	res := &Result{
		Kind:    KindAudit,
		Columns: []string{"id", "user", "action", "model", "object_id", "description", "data", "ip_address", "created_at"},
	}
	for _, l := range logs {
		res.Rows = append(res.Rows, Row{
			"id":          l.ID,
			"user":        l.Username,
			"action":      string(l.Action),
			"model":       l.Model,
			"object_id":   l.ObjectID,
			"description": l.Description,
			"data":        l.Data,
			"ip_address":  l.IPAddress,
			"created_at":  ts(l.CreatedAt),
		})
	}
	return res, nil
}

func (s *Service) categories(ctx context.Context, p Params) (*Result, error) {
	type categorySales struct {
		CategoryID   uint
		CategoryName string
		TotalQty     int64
		TotalRevenue decimal.Decimal
	}
	q := s.db.WithContext(ctx).Table("invoice_items AS ii").
		Select("c.id AS category_id, c.name AS category_name, COALESCE(SUM(ii.quantity), 0) AS total_qty, COALESCE(SUM(ii.subtotal), 0) AS total_revenue").
		Joins("JOIN invoices i ON i.id = ii.invoice_id").
		Joins("JOIN product_categories pc ON pc.product_id = ii.product_id").
		Joins("JOIN categories c ON c.id = pc.category_id").
		Where("i.status <> ?", billingEntity.InvoiceCancelled)
	q = inRange(q, "i.created_at", p).Group("c.id, c.name").Order("total_revenue DESC, c.id")
	var agg []categorySales
	if err := q.Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("aggregate category sales: %w", err)
	}
	res := &Result{Kind: KindCategories, Columns: []string{"category_id", "category_name", "total_qty", "total_revenue"}}
	for _, a := range agg {
		res.Rows = append(res.Rows, Row{
			"category_id":   a.CategoryID,
			"category_name": a.CategoryName,
			"total_qty":     a.TotalQty,
			"total_revenue": a.TotalRevenue.RoundBank(2),
		})
	}
	return res, nil
}
