package catalog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"backoffice.GO/api"
	"backoffice.GO/core/apperr"
	"backoffice.GO/core/auth"
	entity "backoffice.GO/model/entity"
	catalogEntity "backoffice.GO/model/entity/catalog"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	catalogRepo "backoffice.GO/model/repository/catalog"
	"backoffice.GO/service/audit"
	catalogService "backoffice.GO/service/catalog"
	"backoffice.GO/service/ledger"
)

const initialStockNote = "initial stock"

// productView adds derived pricing and stock figures to a product.
type productView struct {
	*catalogEntity.Product
	CostWithTax    decimal.Decimal `json:"cost_with_tax"`
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
	EffectiveStock int             `json:"effective_stock"`
	LowStock       bool            `json:"low_stock"`
}

func present(p *catalogEntity.Product) productView {
	return productView{
		Product:        p,
		CostWithTax:    catalogService.CostWithTax(p.Cost, p.TaxPercentage),
		SuggestedPrice: catalogService.SuggestedPrice(p.Cost, p.TaxPercentage, p.MarkupPercentage),
		EffectiveStock: p.EffectiveStock(),
		LowStock:       p.IsLowStock(),
	}
}

// RegisterCatalogRoutes mounts products, variants and categories under /catalog.
// Stock is never written here except through an initial ledger movement.
func RegisterCatalogRoutes(apiGroup *echo.Group, d *api.Deps) {
	g := apiGroup.Group("/catalog")
	write := auth.RequirePermission(entity.PermCatalogWrite)

	// stockIn records the opening quantity as an ordinary in movement.
	stockIn := func(ctx context.Context, t ledger.Target, productID uint, qty int, actor audit.Actor) (*inventoryEntity.Movement, error) {
		if qty <= 0 {
			return nil, nil
		}
		return d.Ledger.Record(ctx, ledger.MovementRequest{
			Target:    t,
			ProductID: productID,
			Type:      inventoryEntity.MovementIn,
			Quantity:  qty,
			Notes:     initialStockNote,
		}, actor)
	}

	g.GET("/products", func(c echo.Context) error {
		start := time.Now()
		f := catalogRepo.ProductFilter{
			Status: catalogEntity.ProductStatus(strings.ToLower(c.QueryParam("status"))),
			Search: strings.TrimSpace(c.QueryParam("q")),
		}
		categoryID, err := api.QueryUint(c, "category_id")
		if err != nil {
			return api.Fail(c, err)
		}
		if categoryID != nil {
			f.CategoryIDs = []uint{*categoryID}
		}
		f.Limit, f.Offset = api.Page(c)
		products, err := d.Catalog.ListProducts(c.Request().Context(), f)
		if err != nil {
			return api.Fail(c, err)
		}
		views := make([]productView, 0, len(products))
		for i := range products {
			views = append(views, present(&products[i]))
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"products": views, "count": len(views)})
	})

	g.POST("/products", func(c echo.Context) error {
		start := time.Now()
		var body struct {
			catalogService.ProductInput
			InitialStock int `json:"initial_stock"`
		}
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		if body.InitialStock < 0 {
			return api.Fail(c, apperr.Validation("initial stock cannot be negative"))
		}
		if body.InitialStock > 0 && body.HasVariants {
			return api.Fail(c, apperr.Validation("products with variants take stock per variant"))
		}
		ctx := c.Request().Context()
		actor := api.ActorFromContext(c)
		p, err := d.Catalog.CreateProduct(ctx, body.ProductInput, actor)
		if err != nil {
			return api.Fail(c, err)
		}
		mv, err := stockIn(ctx, ledger.ProductTarget(p.ID), p.ID, body.InitialStock, actor)
		if err != nil {
			return api.Fail(c, err)
		}
		if mv != nil {
			if p, err = d.Catalog.Product(ctx, p.ID); err != nil {
				return api.Fail(c, err)
			}
		}
		return api.Respond(c, http.StatusCreated, start, echo.Map{"product": present(p), "movement": mv})
	}, write)

	g.GET("/products/:id", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		ctx := c.Request().Context()
		p, err := d.Catalog.Product(ctx, id)
		if err != nil {
			return api.Fail(c, err)
		}
		av, err := d.Availability.Of(ctx, ledger.ProductTarget(id))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"product": present(p), "availability": av})
	}, auth.RequirePermission(entity.PermInventoryRead))

	g.PATCH("/products/:id/pricing", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		var body struct {
			Cost             *decimal.Decimal `json:"cost"`
			TaxPercentage    *decimal.Decimal `json:"tax_percentage"`
			MarkupPercentage *decimal.Decimal `json:"markup_percentage"`
			Price            *decimal.Decimal `json:"price"`
		}
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		p, err := d.Catalog.UpdatePricing(c.Request().Context(), id, body.Cost, body.TaxPercentage, body.MarkupPercentage, body.Price, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"product": present(p)})
	}, write)

	g.POST("/products/:id/variants", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		var body struct {
			catalogService.VariantInput
			InitialStock int `json:"initial_stock"`
		}
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		if body.InitialStock < 0 {
			return api.Fail(c, apperr.Validation("initial stock cannot be negative"))
		}
		ctx := c.Request().Context()
		actor := api.ActorFromContext(c)
		v, err := d.Catalog.CreateVariant(ctx, id, body.VariantInput, actor)
		if err != nil {
			return api.Fail(c, err)
		}
		mv, err := stockIn(ctx, ledger.VariantTarget(v.ID), id, body.InitialStock, actor)
		if err != nil {
			return api.Fail(c, err)
		}
		if mv != nil {
			v.Stock = body.InitialStock
		}
		return api.Respond(c, http.StatusCreated, start, echo.Map{"variant": v, "movement": mv})
	}, write)

	g.GET("/categories", func(c echo.Context) error {
		start := time.Now()
		cats, err := d.Catalog.Categories(c.Request().Context())
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"categories": cats, "count": len(cats)})
	})

	g.POST("/categories", func(c echo.Context) error {
		start := time.Now()
		var body struct {
			Name     string `json:"name"`
			ParentID *uint  `json:"parent_id"`
		}
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		cat, err := d.Catalog.CreateCategory(c.Request().Context(), body.Name, body.ParentID, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusCreated, start, echo.Map{"category": cat})
	}, write)
}
