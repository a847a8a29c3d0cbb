package resolvers

import (
	"context"

	gql "github.com/graph-gophers/graphql-go"

	"backoffice.GO/core/apperr"
	catalogEntity "backoffice.GO/model/entity/catalog"
	catalogRepo "backoffice.GO/model/repository/catalog"
	"backoffice.GO/service/ledger"
)

type AvailabilityArgs struct {
	ProductID *gql.ID
	VariantID *gql.ID
}

func (r *QueryResolver) Availability(ctx context.Context, args AvailabilityArgs) (*AvailabilityResolver, error) {
	var t ledger.Target
	switch {
	case args.VariantID != nil:
		id, err := parseID(*args.VariantID)
		if err != nil {
			return nil, public(err)
		}
		t = ledger.VariantTarget(id)
	case args.ProductID != nil:
		id, err := parseID(*args.ProductID)
		if err != nil {
			return nil, public(err)
		}
		t = ledger.ProductTarget(id)
	default:
		return nil, public(apperr.Validation("productId or variantId is required"))
	}
	av, err := r.s.Availability.Of(ctx, t)
	if err != nil {
		return nil, public(err)
	}
	return &AvailabilityResolver{a: av}, nil
}

type AvailabilityResolver struct {
	a ledger.Availability
}

func (r *AvailabilityResolver) Target() string    { return r.a.Target }
func (r *AvailabilityResolver) Physical() int32   { return int32(r.a.Physical) }
func (r *AvailabilityResolver) Reserved() int32   { return int32(r.a.Reserved) }
func (r *AvailabilityResolver) Available() int32  { return int32(r.a.Available) }

type LowStockArgs struct {
	Limit int32
}

func (r *QueryResolver) LowStock(ctx context.Context, args LowStockArgs) ([]*StockLevelResolver, error) {
	products, err := r.s.Catalog.ListProducts(ctx, catalogRepo.ProductFilter{Status: catalogEntity.StatusActive})
	if err != nil {
		return nil, public(err)
	}
	reserved, err := r.s.Availability.ReservedByProduct(ctx)
	if err != nil {
		return nil, public(err)
	}
	limit := clampLimit(args.Limit, 50)
	out := []*StockLevelResolver{}
	for i := range products {
		p := &products[i]
		if !p.IsLowStock() {
			continue
		}
		out = append(out, &StockLevelResolver{p: p, reserved: reserved[p.ID]})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type StockLevelResolver struct {
	p        *catalogEntity.Product
	reserved int
}

func (r *StockLevelResolver) ProductID() gql.ID { return toID(r.p.ID) }
func (r *StockLevelResolver) SKU() string       { return r.p.SKU }
func (r *StockLevelResolver) Name() string      { return r.p.Name }
func (r *StockLevelResolver) Stock() int32      { return int32(r.p.EffectiveStock()) }
func (r *StockLevelResolver) MinStock() int32   { return int32(r.p.MinStock) }
func (r *StockLevelResolver) Reserved() int32   { return int32(r.reserved) }
func (r *StockLevelResolver) Available() int32 {
	return int32(r.p.EffectiveStock() - r.reserved)
}
