// Package server assembles the Echo instance: middleware, health, GraphQL
// playground and the authenticated /api group.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"backoffice.GO/api"
	catalogApi "backoffice.GO/api/catalog"
	graphqlApi "backoffice.GO/api/graphql"
	inventoryApi "backoffice.GO/api/inventory"
	invoiceApi "backoffice.GO/api/invoice"
	reportApi "backoffice.GO/api/report"
	reservationApi "backoffice.GO/api/reservation"
	stockApi "backoffice.GO/api/stock"
	"backoffice.GO/core/auth"
)

// Modules lists every /api module in mount order.
func Modules() []api.Module {
	return []api.Module{
		catalogApi.RegisterCatalogRoutes,
		inventoryApi.RegisterInventoryRoutes,
		stockApi.RegisterStockRoutes,
		reservationApi.RegisterReservationRoutes,
		invoiceApi.RegisterInvoiceRoutes,
		reportApi.RegisterReportRoutes,
		graphqlApi.RegisterGraphQLRoutes,
	}
}

// New builds the server. Auth mode is read from AUTH_TYPE when New runs.
func New(d *api.Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.HTTPErrorHandler(d.Logger)

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.Decompress())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestDuration(d.Logger))

	api.MountRoutes(e, d, api.GET("/health", health(d)), graphqlApi.PlaygroundRoute)

	apiGroup := e.Group("/api")
	apiGroup.Use(auth.Middleware(d.DB))
	api.Mount(apiGroup, d, Modules()...)
	return e
}

func requestDuration(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start).Milliseconds()
			// handlers that already wrote their body set the header themselves
			if !c.Response().Committed {
				c.Response().Header().Set(api.DurationHeader, strconv.FormatInt(duration, 10))
			}
			logger.Debug("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int64("duration_ms", duration),
			)
			return err
		}
	}
}

func health(d *api.Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			d.Logger.Warn("health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": "down"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "ok", "app": d.Config.AppName})
	}
}
