package invoice

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"backoffice.GO/api"
	"backoffice.GO/core/auth"
	entity "backoffice.GO/model/entity"
	billingEntity "backoffice.GO/model/entity/billing"
	billingRepo "backoffice.GO/model/repository/billing"
	invoiceService "backoffice.GO/service/invoice"
)

type paymentBody struct {
	Amount          decimal.Decimal             `json:"amount"`
	PaymentMethod   billingEntity.PaymentMethod `json:"payment_method"`
	PaymentProvider string                      `json:"payment_provider"`
}

// RegisterInvoiceRoutes mounts the sale engine under /invoices.
func RegisterInvoiceRoutes(apiGroup *echo.Group, d *api.Deps) {
	g := apiGroup.Group("/invoices")
	write := auth.RequirePermission(entity.PermInvoiceWrite)

	respond := func(c echo.Context, status int, start time.Time, inv *billingEntity.Invoice) error {
		due, err := d.Invoices.RemainingDue(c.Request().Context(), inv)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, status, start, echo.Map{"invoice": inv, "remaining_due": due})
	}

	// POST /api/invoices – direct sale, or sale from reservation_id
	g.POST("", func(c echo.Context) error {
		start := time.Now()
		var body invoiceService.CreateInput
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		body.PaymentMethod = billingEntity.PaymentMethod(strings.ToUpper(string(body.PaymentMethod)))
		inv, err := d.Invoices.Create(c.Request().Context(), body, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return respond(c, http.StatusCreated, start, inv)
	}, write)

	g.GET("", func(c echo.Context) error {
		start := time.Now()
		f := billingRepo.InvoiceFilter{
			Status:     billingEntity.InvoiceStatus(strings.ToLower(c.QueryParam("status"))),
			Code:       strings.TrimSpace(c.QueryParam("code")),
			ClientName: strings.TrimSpace(c.QueryParam("client")),
		}
		var err error
		if f.From, err = api.QueryTime(c, "from", false); err != nil {
			return api.Fail(c, err)
		}
		if f.To, err = api.QueryTime(c, "to", true); err != nil {
			return api.Fail(c, err)
		}
		f.Limit, f.Offset = api.Page(c)
		list, err := d.Invoices.List(c.Request().Context(), f)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"invoices": list, "count": len(list)})
	})

	g.GET("/:id", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		inv, err := d.Invoices.Get(c.Request().Context(), id)
		if err != nil {
			return api.Fail(c, err)
		}
		return respond(c, http.StatusOK, start, inv)
	})

	g.GET("/code/:code", func(c echo.Context) error {
		start := time.Now()
		inv, err := d.Invoices.GetByCode(c.Request().Context(), strings.ToUpper(c.Param("code")))
		if err != nil {
			return api.Fail(c, err)
		}
		return respond(c, http.StatusOK, start, inv)
	})

	// POST /api/invoices/:id/inventory – post stock movements; safe to repeat
	g.POST("/:id/inventory", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		mvs, err := d.Invoices.ApplyInventoryMovements(c.Request().Context(), id, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"movements": mvs, "count": len(mvs)})
	}, write)

	g.POST("/:id/payments", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		var body paymentBody
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		method := billingEntity.PaymentMethod(strings.ToUpper(string(body.PaymentMethod)))
		inv, err := d.Invoices.RegisterPayment(c.Request().Context(), id, body.Amount, method, body.PaymentProvider, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return respond(c, http.StatusOK, start, inv)
	}, write)
}
