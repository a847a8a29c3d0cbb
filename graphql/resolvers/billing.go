package resolvers

import (
	"context"
	"strings"
	"time"

	gql "github.com/graph-gophers/graphql-go"
	"github.com/shopspring/decimal"

	"backoffice.GO/core/apperr"
	billingEntity "backoffice.GO/model/entity/billing"
)

type ReservationArgs struct {
	ID gql.ID
}

// Reservation returns nil for an unknown id rather than an error.
func (r *QueryResolver) Reservation(ctx context.Context, args ReservationArgs) (*ReservationResolver, error) {
	id, err := parseID(args.ID)
	if err != nil {
		return nil, public(err)
	}
	res, err := r.s.Reservations.Get(ctx, id)
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, public(err)
	}
	return &ReservationResolver{r: res, now: time.Now()}, nil
}

type ReservationResolver struct {
	r   *billingEntity.Reservation
	now time.Time
}

func (r *ReservationResolver) ID() gql.ID             { return toID(r.r.ID) }
func (r *ReservationResolver) ClientName() string     { return r.r.ClientName }
func (r *ReservationResolver) Status() string         { return string(r.r.Status) }
func (r *ReservationResolver) Deposit() string        { return r.r.Deposit.StringFixed(2) }
func (r *ReservationResolver) Subtotal() string       { return r.r.Subtotal.StringFixed(2) }
func (r *ReservationResolver) RemainingDue() string   { return r.r.RemainingDue().StringFixed(2) }
func (r *ReservationResolver) DueDate() gql.Time      { return gql.Time{Time: r.r.DueDate} }
func (r *ReservationResolver) DaysRemaining() int32   { return int32(r.r.DaysRemaining(r.now)) }
func (r *ReservationResolver) MovementCreated() bool  { return r.r.MovementCreated }
func (r *ReservationResolver) Items() []*LineItemResolver {
	out := make([]*LineItemResolver, 0, len(r.r.Items))
	for _, it := range r.r.Items {
		out = append(out, &LineItemResolver{productID: it.ProductID, variantID: it.VariantID, quantity: it.Quantity, unitPrice: it.UnitPrice, subtotal: it.Subtotal})
	}
	return out
}

type InvoiceArgs struct {
	Code string
}

func (r *QueryResolver) Invoice(ctx context.Context, args InvoiceArgs) (*InvoiceResolver, error) {
	inv, err := r.s.Invoices.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(args.Code)))
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, public(err)
	}
	return &InvoiceResolver{inv: inv}, nil
}

type InvoiceResolver struct {
	inv *billingEntity.Invoice
}

func (r *InvoiceResolver) ID() gql.ID               { return toID(r.inv.ID) }
func (r *InvoiceResolver) Code() string             { return r.inv.Code }
func (r *InvoiceResolver) ClientName() string       { return r.inv.ClientName }
func (r *InvoiceResolver) ReservationID() *gql.ID   { return toOptionalID(r.inv.ReservationID) }
func (r *InvoiceResolver) Subtotal() string         { return r.inv.Subtotal.StringFixed(2) }
func (r *InvoiceResolver) DiscountAmount() string   { return r.inv.DiscountAmount.StringFixed(2) }
func (r *InvoiceResolver) Total() string            { return r.inv.Total.StringFixed(2) }
func (r *InvoiceResolver) AmountPaid() string       { return r.inv.AmountPaid.StringFixed(2) }
func (r *InvoiceResolver) PaymentMethod() string    { return string(r.inv.PaymentMethod) }
func (r *InvoiceResolver) Paid() bool               { return r.inv.Paid }
func (r *InvoiceResolver) Status() string           { return string(r.inv.Status) }
func (r *InvoiceResolver) InventoryMoved() bool     { return r.inv.InventoryMoved }
func (r *InvoiceResolver) CreatedAt() gql.Time      { return gql.Time{Time: r.inv.CreatedAt} }
func (r *InvoiceResolver) Items() []*LineItemResolver {
	out := make([]*LineItemResolver, 0, len(r.inv.Items))
	for _, it := range r.inv.Items {
		out = append(out, &LineItemResolver{productID: it.ProductID, variantID: it.VariantID, quantity: it.Quantity, unitPrice: it.UnitPrice, subtotal: it.Subtotal})
	}
	return out
}

// LineItemResolver serves both reservation and invoice items.
type LineItemResolver struct {
	productID uint
	variantID *uint
	quantity  int
	unitPrice decimal.Decimal
	subtotal  decimal.Decimal
}

func (r *LineItemResolver) ProductID() gql.ID   { return toID(r.productID) }
func (r *LineItemResolver) VariantID() *gql.ID  { return toOptionalID(r.variantID) }
func (r *LineItemResolver) Quantity() int32     { return int32(r.quantity) }
func (r *LineItemResolver) UnitPrice() string   { return r.unitPrice.StringFixed(2) }
func (r *LineItemResolver) Subtotal() string    { return r.subtotal.StringFixed(2) }
