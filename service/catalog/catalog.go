// Package catalog owns products, variants and categories. The stock columns
// are read here but only ever written by the inventory ledger.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice.GO/core/apperr"
	"backoffice.GO/core/cache"
	auditEntity "backoffice.GO/model/entity/audit"
	catalogEntity "backoffice.GO/model/entity/catalog"
	catalogRepo "backoffice.GO/model/repository/catalog"
	"backoffice.GO/service/audit"
)

// Catalog is the read-only view the inventory, reservation and billing code depends on.
type Catalog interface {
	Product(ctx context.Context, id uint) (*catalogEntity.Product, error)
	Variant(ctx context.Context, id uint) (*catalogEntity.Variant, error)
	UnitPrice(ctx context.Context, productID uint, variantID *uint) (decimal.Decimal, error)
}

const (
	skuAttempts      = 10
	categoryCacheTTL = 300
	categoryTag      = "categories"
)

var (
	defaultTax    = decimal.NewFromInt(19)
	defaultMarkup = decimal.NewFromInt(30)
)

type Service struct {
	repo   *catalogRepo.CatalogRepository
	cache  *cache.Cache
	audit  *audit.Recorder
	logger *zap.Logger
	rnd    func(int) int
}

func NewService(db *gorm.DB, c *cache.Cache, rec *audit.Recorder, logger *zap.Logger) *Service {
	if c == nil {
		c = cache.GetInstance()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   catalogRepo.NewCatalogRepository(db),
		cache:  c,
		audit:  rec,
		logger: logger,
		rnd:    rand.Intn,
	}
}

func (s *Service) Product(ctx context.Context, id uint) (*catalogEntity.Product, error) {
	p, err := s.repo.FindProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product %d not found", id)
	}
	return p, err
}

func (s *Service) Variant(ctx context.Context, id uint) (*catalogEntity.Variant, error) {
	v, err := s.repo.FindVariant(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("variant %d not found", id)
	}
	return v, err
}

// UnitPrice resolves the selling price and checks that variantID belongs to productID.
func (s *Service) UnitPrice(ctx context.Context, productID uint, variantID *uint) (decimal.Decimal, error) {
	p, err := s.Product(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	var v *catalogEntity.Variant
	if variantID != nil {
		if v, err = s.Variant(ctx, *variantID); err != nil {
			return decimal.Zero, err
		}
		if v.ProductID != p.ID {
			return decimal.Zero, apperr.Validation("variant %d does not belong to product %d", v.ID, p.ID)
		}
	}
	return ResolveUnitPrice(p, v)
}

type ProductInput struct {
	SKU              string           `json:"sku"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Cost             decimal.Decimal  `json:"cost"`
	TaxPercentage    *decimal.Decimal `json:"tax_percentage"`
	MarkupPercentage *decimal.Decimal `json:"markup_percentage"`
	Price            *decimal.Decimal `json:"price"`
	MinStock         *int             `json:"min_stock"`
	Status           string           `json:"status"`
	HasVariants      bool             `json:"has_variants"`
	CategoryIDs      []uint           `json:"category_ids"`
}

// CreateProduct stores a new product with zero stock. Without an explicit
// price the suggested price (cost + tax + markup) is used when cost is known.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput, actor audit.Actor) (*catalogEntity.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("product name is required")
	}
	if in.Cost.IsNegative() {
		return nil, apperr.Validation("cost cannot be negative")
	}
	status := catalogEntity.StatusActive
	switch catalogEntity.ProductStatus(in.Status) {
	case "":
	case catalogEntity.StatusActive, catalogEntity.StatusInactive, catalogEntity.StatusDraft:
		status = catalogEntity.ProductStatus(in.Status)
	default:
		return nil, apperr.Validation("unknown product status %q", in.Status)
	}

	p := &catalogEntity.Product{
		Name:             name,
		Description:      in.Description,
		Cost:             in.Cost.RoundBank(2),
		TaxPercentage:    defaultTax,
		MarkupPercentage: defaultMarkup,
		MinStock:         5,
		Status:           status,
		HasVariants:      in.HasVariants,
	}
	if in.TaxPercentage != nil {
		p.TaxPercentage = *in.TaxPercentage
	}
	if in.MarkupPercentage != nil {
		p.MarkupPercentage = *in.MarkupPercentage
	}
	if in.MinStock != nil {
		if *in.MinStock < 0 {
			return nil, apperr.Validation("min_stock cannot be negative")
		}
		p.MinStock = *in.MinStock
	}
	switch {
	case in.Price != nil:
		if in.Price.IsNegative() {
			return nil, apperr.Validation("price cannot be negative")
		}
		p.Price = decimal.NewNullDecimal(in.Price.RoundBank(2))
	case p.Cost.IsPositive():
		p.Price = decimal.NewNullDecimal(SuggestedPrice(p.Cost, p.TaxPercentage, p.MarkupPercentage))
	}

	sku := strings.TrimSpace(in.SKU)
	if sku != "" {
		exists, err := s.repo.ProductSKUExists(ctx, sku)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperr.Validation("sku %q already exists", sku)
		}
	} else {
		var err error
		if sku, err = s.uniqueSKU(ctx, func() string { return ProductSKU(name, s.rnd) }, s.repo.ProductSKUExists); err != nil {
			return nil, err
		}
	}
	p.SKU = sku

	if len(in.CategoryIDs) > 0 {
		cats, err := s.repo.FindCategories(ctx, in.CategoryIDs)
		if err != nil {
			return nil, err
		}
		if len(cats) != len(in.CategoryIDs) {
			return nil, apperr.Validation("unknown category in %v", in.CategoryIDs)
		}
		p.Categories = cats
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:      auditEntity.ActionCreate,
		Model:       "product",
		ObjectID:    audit.ObjectID(p.ID),
		Description: fmt.Sprintf("product %s created", p.SKU),
		Data:        map[string]interface{}{"sku": p.SKU, "name": p.Name, "has_variants": p.HasVariants},
	})
	return p, nil
}

// UpdatePricing changes cost, tax, markup or price. Stock cannot be edited here.
func (s *Service) UpdatePricing(ctx context.Context, id uint, cost, tax, markup, price *decimal.Decimal, actor audit.Actor) (*catalogEntity.Product, error) {
	if _, err := s.Product(ctx, id); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	for col, v := range map[string]*decimal.Decimal{"cost": cost, "tax_percentage": tax, "markup_percentage": markup, "price": price} {
		if v == nil {
			continue
		}
		if v.IsNegative() {
			return nil, apperr.Validation("%s cannot be negative", col)
		}
		fields[col] = v.RoundBank(2)
	}
	if len(fields) == 0 {
		return nil, apperr.Validation("nothing to update")
	}
	if err := s.repo.UpdateProduct(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	data := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		data[k] = v.(decimal.Decimal).String()
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:      auditEntity.ActionUpdate,
		Model:       "product",
		ObjectID:    audit.ObjectID(id),
		Description: "product pricing updated",
		Data:        data,
	})
	return s.Product(ctx, id)
}

type VariantInput struct {
	SKU           string          `json:"sku"`
	Size          string          `json:"size"`
	Color         string          `json:"color"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// CreateVariant adds a variant to a product that declares has_variants.
func (s *Service) CreateVariant(ctx context.Context, productID uint, in VariantInput, actor audit.Actor) (*catalogEntity.Variant, error) {
	p, err := s.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.HasVariants {
		return nil, apperr.Validation("product %d does not have variants enabled", p.ID)
	}
	size, color := strings.TrimSpace(in.Size), strings.TrimSpace(in.Color)
	exists, err := s.repo.VariantExists(ctx, p.ID, size, color)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Validation("product %d already has a %s/%s variant", p.ID, size, color)
	}

	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		if sku, err = s.uniqueSKU(ctx, func() string { return VariantSKU(p.SKU, size, color, s.rnd) }, s.repo.VariantSKUExists); err != nil {
			return nil, err
		}
	} else if taken, err := s.repo.VariantSKUExists(ctx, sku); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Validation("variant sku %q already exists", sku)
	}

	v := &catalogEntity.Variant{
		ProductID:     p.ID,
		SKU:           sku,
		Size:          size,
		Color:         color,
		PriceModifier: in.PriceModifier.RoundBank(2),
		IsActive:      true,
	}
	if err := s.repo.CreateVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}
	s.audit.Record(ctx, actor, audit.Entry{
		Action:      auditEntity.ActionCreate,
		Model:       "product_variant",
		ObjectID:    audit.ObjectID(v.ID),
		Description: fmt.Sprintf("variant %s created for product %d", v.SKU, p.ID),
	})
	return v, nil
}

func (s *Service) uniqueSKU(ctx context.Context, gen func() string, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < skuAttempts; i++ {
		sku := gen()
		taken, err := exists(ctx, sku)
		if err != nil {
			return "", err
		}
		if !taken {
			return sku, nil
		}
	}
	return "", apperr.Consistency("could not generate a unique sku after %d attempts", skuAttempts)
}

func (s *Service) ListProducts(ctx context.Context, f catalogRepo.ProductFilter) ([]catalogEntity.Product, error) {
	if len(f.CategoryIDs) == 1 {
		ids, err := s.CategoryDescendants(ctx, f.CategoryIDs[0])
		if err != nil {
			return nil, err
		}
		f.CategoryIDs = ids
	}
	return s.repo.ListProducts(ctx, f)
}

func (s *Service) Categories(ctx context.Context) ([]catalogEntity.Category, error) {
	return s.repo.Categories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string, parentID *uint, actor audit.Actor) (*catalogEntity.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("category name is required")
	}
	if parentID != nil {
		parents, err := s.repo.FindCategories(ctx, []uint{*parentID})
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			return nil, apperr.NotFound("parent category %d not found", *parentID)
		}
	}
	c := &catalogEntity.Category{Name: name, ParentID: parentID, IsActive: true}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.cache.DeleteByTag(categoryTag)
	s.audit.Record(ctx, actor, audit.Entry{
		Action:      auditEntity.ActionCreate,
		Model:       "category",
		ObjectID:    audit.ObjectID(c.ID),
		Description: fmt.Sprintf("category %s created", c.Name),
	})
	return c, nil
}

// CategoryDescendants returns id and every category below it, breadth first.
func (s *Service) CategoryDescendants(ctx context.Context, id uint) ([]uint, error) {
	if v, ok := s.cache.GetN("category_descendants", id); ok {
		return v.([]uint), nil
	}
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	children := make(map[uint][]uint, len(cats))
	found := false
	for _, c := range cats {
		if c.ID == id {
			found = true
		}
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}
	if !found {
		return nil, apperr.NotFound("category %d not found", id)
	}
	ids := []uint{id}
	seen := map[uint]bool{id: true}
	for i := 0; i < len(ids); i++ {
		for _, child := range children[ids[i]] {
			if !seen[child] {
				seen[child] = true
				ids = append(ids, child)
			}
		}
	}
	s.cache.SetN([]interface{}{"category_descendants", id}, ids, categoryCacheTTL, []string{categoryTag})
	return ids, nil
}
