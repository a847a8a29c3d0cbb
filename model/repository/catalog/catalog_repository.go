package catalog

import (
	"context"

	"gorm.io/gorm"

	catalogEntity "backoffice.GO/model/entity/catalog"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ProductFilter narrows ListProducts. Zero values are ignored.
type ProductFilter struct {
	Status      catalogEntity.ProductStatus
	CategoryIDs []uint
	Search      string
	Limit       int
	Offset      int
}

// FindProduct loads a product with its variants and categories.
func (r *CatalogRepository) FindProduct(ctx context.Context, id uint) (*catalogEntity.Product, error) {
	var p catalogEntity.Product
	err := r.db.WithContext(ctx).Preload("Variants").Preload("Categories").First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) FindVariant(ctx context.Context, id uint) (*catalogEntity.Variant, error) {
	var v catalogEntity.Variant
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *CatalogRepository) ProductSKUExists(ctx context.Context, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalogEntity.Product{}).Where("sku = ?", sku).Count(&count).Error
	return count > 0, err
}

func (r *CatalogRepository) VariantSKUExists(ctx context.Context, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalogEntity.Variant{}).Where("sku = ?", sku).Count(&count).Error
	return count > 0, err
}

// VariantExists reports whether productID already has a variant with size and color.
func (r *CatalogRepository) VariantExists(ctx context.Context, productID uint, size, color string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalogEntity.Variant{}).
		Where("product_id = ? AND size = ? AND color = ?", productID, size, color).
		Count(&count).Error
	return count > 0, err
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, p *catalogEntity.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *CatalogRepository) CreateVariant(ctx context.Context, v *catalogEntity.Variant) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// UpdateProduct writes the given columns. Stock is never among them.
func (r *CatalogRepository) UpdateProduct(ctx context.Context, id uint, fields map[string]interface{}) error {
	delete(fields, "stock")
	return r.db.WithContext(ctx).Model(&catalogEntity.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *CatalogRepository) ListProducts(ctx context.Context, f ProductFilter) ([]catalogEntity.Product, error) {
	q := r.db.WithContext(ctx).Model(&catalogEntity.Product{}).Preload("Variants")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if len(f.CategoryIDs) > 0 {
		q = q.Where("id IN (?)", r.db.Table("product_categories").
			Select("product_id").Where("category_id IN ?", f.CategoryIDs))
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("name LIKE ? OR sku LIKE ?", like, like)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var products []catalogEntity.Product
	err := q.Order("id").Find(&products).Error
	return products, err
}

func (r *CatalogRepository) Categories(ctx context.Context) ([]catalogEntity.Category, error) {
	var cats []catalogEntity.Category
	err := r.db.WithContext(ctx).Order("id").Find(&cats).Error
	return cats, err
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c *catalogEntity.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CatalogRepository) FindCategories(ctx context.Context, ids []uint) ([]catalogEntity.Category, error) {
	var cats []catalogEntity.Category
	if len(ids) == 0 {
		return cats, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&cats).Error
	return cats, err
}
