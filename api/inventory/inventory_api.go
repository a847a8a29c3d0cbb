package inventory

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"backoffice.GO/api"
	"backoffice.GO/core/apperr"
	"backoffice.GO/core/auth"
	entity "backoffice.GO/model/entity"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	inventoryRepo "backoffice.GO/model/repository/inventory"
	"backoffice.GO/service/ledger"
)

type movementBody struct {
	ProductID          uint             `json:"product_id"`
	VariantID          *uint            `json:"variant_id"`
	MovementType       string           `json:"movement_type"`
	Quantity           int              `json:"quantity"`
	UnitPrice          *decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	Reason             string           `json:"reason"`
	Notes              string           `json:"notes"`
}

func (b movementBody) request() ledger.MovementRequest {
	return ledger.MovementRequest{
		Target:             ledger.TargetFor(b.ProductID, b.VariantID),
		ProductID:          b.ProductID,
		Type:               inventoryEntity.MovementType(strings.ToLower(b.MovementType)),
		Quantity:           b.Quantity,
		UnitPrice:          b.UnitPrice,
		DiscountPercentage: b.DiscountPercentage,
		Reason:             b.Reason,
		Notes:              b.Notes,
	}
}

type patchBody struct {
	ProductID          *uint            `json:"product_id"`
	VariantID          *uint            `json:"variant_id"`
	MovementType       *string          `json:"movement_type"`
	Quantity           *int             `json:"quantity"`
	UnitPrice          *decimal.Decimal `json:"unit_price"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	Reason             *string          `json:"reason"`
	Notes              *string          `json:"notes"`
}

func (b patchBody) patch() ledger.MovementPatch {
	p := ledger.MovementPatch{
		Quantity:           b.Quantity,
		UnitPrice:          b.UnitPrice,
		DiscountPercentage: b.DiscountPercentage,
		Reason:             b.Reason,
		Notes:              b.Notes,
	}
	if b.VariantID != nil || b.ProductID != nil {
		var productID uint
		if b.ProductID != nil {
			productID = *b.ProductID
		}
		t := ledger.TargetFor(productID, b.VariantID)
		p.Target = &t
		p.ProductID = productID
	}
	if b.MovementType != nil {
		mt := inventoryEntity.MovementType(strings.ToLower(*b.MovementType))
		p.Type = &mt
	}
	return p
}

// RegisterInventoryRoutes mounts the stock ledger under /inventory.
func RegisterInventoryRoutes(apiGroup *echo.Group, d *api.Deps) {
	g := apiGroup.Group("/inventory")
	write := auth.RequirePermission(entity.PermInventoryWrite)
	read := auth.RequirePermission(entity.PermInventoryRead)

	// POST /api/inventory/movements – record one movement
	g.POST("/movements", func(c echo.Context) error {
		start := time.Now()
		var body movementBody
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		mv, err := d.Ledger.Record(c.Request().Context(), body.request(), api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusCreated, start, echo.Map{"movement": mv})
	}, write)

	// POST /api/inventory/movements/bulk – all-or-nothing batch
	g.POST("/movements/bulk", func(c echo.Context) error {
		start := time.Now()
		var body struct {
			Items []movementBody `json:"items"`
		}
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		if len(body.Items) == 0 {
			return api.BadRequest(c, "items array is required and must not be empty")
		}
		reqs := make([]ledger.MovementRequest, 0, len(body.Items))
		for _, it := range body.Items {
			reqs = append(reqs, it.request())
		}
		mvs, err := d.Ledger.RecordBulk(c.Request().Context(), reqs, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusCreated, start, echo.Map{"movements": mvs, "count": len(mvs)})
	}, write)

	g.GET("/movements", func(c echo.Context) error {
		start := time.Now()
		f, err := movementFilter(c)
		if err != nil {
			return api.Fail(c, err)
		}
		mvs, err := d.Ledger.History(c.Request().Context(), f)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"movements": mvs, "count": len(mvs)})
	}, read)

	g.GET("/movements/:id", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		mv, err := d.Ledger.Get(c.Request().Context(), id)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"movement": mv})
	}, read)

	g.PATCH("/movements/:id", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		var body patchBody
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		mv, err := d.Ledger.Update(c.Request().Context(), id, body.patch(), api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"movement": mv})
	}, write)

	g.DELETE("/movements/:id", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		if err := d.Ledger.Delete(c.Request().Context(), id, api.ActorFromContext(c)); err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"deleted": id})
	}, write)

	// GET /api/inventory/availability?product_id=1[&variant_id=2]
	g.GET("/availability", func(c echo.Context) error {
		start := time.Now()
		t, err := targetFromQuery(c)
		if err != nil {
			return api.Fail(c, err)
		}
		av, err := d.Availability.Of(c.Request().Context(), t)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"availability": av})
	}, read)

	g.GET("/reconcile", func(c echo.Context) error {
		start := time.Now()
		t, err := targetFromQuery(c)
		if err != nil {
			return api.Fail(c, err)
		}
		rec, err := d.Ledger.Reconcile(c.Request().Context(), t)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"reconciliation": rec, "balanced": rec.Balanced()})
	}, read)
}

func targetFromQuery(c echo.Context) (ledger.Target, error) {
	variantID, err := api.QueryUint(c, "variant_id")
	if err != nil {
		return ledger.Target{}, err
	}
	productID, err := api.QueryUint(c, "product_id")
	if err != nil {
		return ledger.Target{}, err
	}
	if variantID != nil {
		return ledger.VariantTarget(*variantID), nil
	}
	if productID == nil {
		return ledger.Target{}, apperr.Validation("product_id or variant_id is required")
	}
	return ledger.ProductTarget(*productID), nil
}

func movementFilter(c echo.Context) (inventoryRepo.MovementFilter, error) {
	var f inventoryRepo.MovementFilter
	productID, err := api.QueryUint(c, "product_id")
	if err != nil {
		return f, err
	}
	if productID != nil {
		f.ProductIDs = []uint{*productID}
	}
	if f.VariantID, err = api.QueryUint(c, "variant_id"); err != nil {
		return f, err
	}
	if f.ReservationID, err = api.QueryUint(c, "reservation_id"); err != nil {
		return f, err
	}
	if f.InvoiceID, err = api.QueryUint(c, "invoice_id"); err != nil {
		return f, err
	}
	for _, raw := range strings.Split(c.QueryParam("type"), ",") {
		mt := inventoryEntity.MovementType(strings.ToLower(strings.TrimSpace(raw)))
		if mt == "" {
			continue
		}
		if !mt.Valid() {
			return f, apperr.Validation("unknown movement type %q", raw)
		}
		f.Types = append(f.Types, mt)
	}
	if f.From, err = api.QueryTime(c, "from", false); err != nil {
		return f, err
	}
	if f.To, err = api.QueryTime(c, "to", true); err != nil {
		return f, err
	}
	f.Limit, f.Offset = api.Page(c)
	return f, nil
}
