package resolvers

import (
	"context"
	"strings"

	gql "github.com/graph-gophers/graphql-go"

	"backoffice.GO/core/apperr"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	inventoryRepo "backoffice.GO/model/repository/inventory"
)

type MovementsArgs struct {
	ProductID *gql.ID
	VariantID *gql.ID
	Types     *[]string
	From      *gql.Time
	To        *gql.Time
	Limit     int32
	Offset    int32
}

func (r *QueryResolver) Movements(ctx context.Context, args MovementsArgs) ([]*MovementResolver, error) {
	f := inventoryRepo.MovementFilter{Limit: clampLimit(args.Limit, 100), Offset: int(args.Offset)}
	productID, err := optionalID(args.ProductID)
	if err != nil {
		return nil, public(err)
	}
	if productID != nil {
		f.ProductIDs = []uint{*productID}
	}
	if f.VariantID, err = optionalID(args.VariantID); err != nil {
		return nil, public(err)
	}
	if args.Types != nil {
		for _, raw := range *args.Types {
			mt := inventoryEntity.MovementType(strings.ToLower(raw))
			if !mt.Valid() {
				return nil, public(apperr.Validation("unknown movement type %q", raw))
			}
			f.Types = append(f.Types, mt)
		}
	}
	if args.From != nil {
		f.From = args.From.Time
	}
	if args.To != nil {
		f.To = args.To.Time
	}
	mvs, err := r.s.Ledger.History(ctx, f)
	if err != nil {
		return nil, public(err)
	}
	out := make([]*MovementResolver, 0, len(mvs))
	for i := range mvs {
		out = append(out, &MovementResolver{m: &mvs[i]})
	}
	return out, nil
}

type MovementResolver struct {
	m *inventoryEntity.Movement
}

func (r *MovementResolver) ID() gql.ID              { return toID(r.m.ID) }
func (r *MovementResolver) ProductID() gql.ID       { return toID(r.m.ProductID) }
func (r *MovementResolver) VariantID() *gql.ID      { return toOptionalID(r.m.VariantID) }
func (r *MovementResolver) MovementType() string    { return string(r.m.MovementType) }
func (r *MovementResolver) Quantity() int32         { return int32(r.m.Quantity) }
func (r *MovementResolver) SignedEffect() int32     { return int32(r.m.SignedEffect()) }
func (r *MovementResolver) UnitPrice() string       { return r.m.UnitPrice.StringFixed(2) }
func (r *MovementResolver) FinalUnitPrice() string  { return r.m.FinalUnitPrice.StringFixed(2) }
func (r *MovementResolver) TotalAmount() string     { return r.m.TotalAmount.StringFixed(2) }
func (r *MovementResolver) Reason() *string         { return optionalString(r.m.Reason) }
func (r *MovementResolver) Notes() *string          { return optionalString(r.m.Notes) }
func (r *MovementResolver) ReservationID() *gql.ID  { return toOptionalID(r.m.ReservationID) }
func (r *MovementResolver) InvoiceID() *gql.ID      { return toOptionalID(r.m.InvoiceID) }
func (r *MovementResolver) CreatedAt() gql.Time     { return gql.Time{Time: r.m.CreatedAt} }
func (r *MovementResolver) DiscountPercentage() string {
	return r.m.DiscountPercentage.StringFixed(2)
}
