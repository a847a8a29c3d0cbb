package reservation

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
	reservationService "backoffice.GO/service/reservation"
)

// view adds the derived figures clients display next to a reservation.
type view struct {
	*billingEntity.Reservation
	RemainingDue  decimal.Decimal `json:"remaining_due"`
	DaysRemaining int             `json:"days_remaining"`
}

func present(r *billingEntity.Reservation, now time.Time) view {
	return view{Reservation: r, RemainingDue: r.RemainingDue(), DaysRemaining: r.DaysRemaining(now)}
}

// RegisterReservationRoutes mounts reservation commands under /reservations.
func RegisterReservationRoutes(apiGroup *echo.Group, d *api.Deps) {
	g := apiGroup.Group("/reservations")
	write := auth.RequirePermission(entity.PermReservationWrite)

	g.POST("", func(c echo.Context) error {
		start := time.Now()
		var body reservationService.CreateInput
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		res, err := d.Reservations.Create(c.Request().Context(), body, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusCreated, start, echo.Map{"reservation": present(res, start)})
	}, write)

	// GET /api/reservations?status=active&client=ana&from=2025-03-01&to=2025-03-31
	g.GET("", func(c echo.Context) error {
		start := time.Now()
		f := billingRepo.ReservationFilter{
			Status:     billingEntity.ReservationStatus(strings.ToLower(c.QueryParam("status"))),
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
		list, err := d.Reservations.List(c.Request().Context(), f)
		if err != nil {
			return api.Fail(c, err)
		}
		views := make([]view, 0, len(list))
		for i := range list {
			views = append(views, present(&list[i], start))
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"reservations": views, "count": len(views)})
	})

	g.GET("/:id", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		res, err := d.Reservations.Get(c.Request().Context(), id)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"reservation": present(res, start)})
	})

	// POST /api/reservations/:id/reserve – retry stock holds; safe to repeat
	g.POST("/:id/reserve", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		ctx := c.Request().Context()
		if err := d.Reservations.MarkReserved(ctx, id, api.ActorFromContext(c)); err != nil {
			return api.Fail(c, err)
		}
		res, err := d.Reservations.Get(ctx, id)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"reservation": present(res, start)})
	}, write)

	g.POST("/:id/cancel", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		res, err := d.Reservations.Cancel(c.Request().Context(), id, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"reservation": present(res, start)})
	}, write)

	g.PATCH("/:id/deposit", func(c echo.Context) error {
		start := time.Now()
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Fail(c, err)
		}
		var body struct {
			Deposit decimal.Decimal `json:"deposit"`
		}
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		res, err := d.Reservations.UpdateDeposit(c.Request().Context(), id, body.Deposit, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"reservation": present(res, start)})
	}, write)

	g.POST("/sweep", func(c echo.Context) error {
		start := time.Now()
		n, err := d.Reservations.SweepExpired(c.Request().Context())
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"expired": n})
	}, write)
}
