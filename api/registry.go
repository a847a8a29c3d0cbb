package api

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice.GO/config"
	"backoffice.GO/core/cache"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/catalog"
	"backoffice.GO/service/invoice"
	"backoffice.GO/service/ledger"
	"backoffice.GO/service/report"
	"backoffice.GO/service/reservation"
	"backoffice.GO/service/stockimport"
)

// Deps carries the services shared by every /api module. It is built once at
// startup and never mutated afterwards.
type Deps struct {
	DB           *gorm.DB
	Logger       *zap.Logger
	Config       *config.Config
	Audit        *audit.Recorder
	Catalog      *catalog.Service
	Ledger       *ledger.Ledger
	Availability *ledger.AvailabilityReader
	Reservations *reservation.Manager
	Invoices     *invoice.Engine
	Reports      *report.Service
	StockImport  *stockimport.Importer
}

// NewDeps builds every service on db. A nil logger disables logging and a nil
// cache uses the process-wide instance.
func NewDeps(db *gorm.DB, cfg *config.Config, rec *audit.Recorder, c *cache.Cache, logger *zap.Logger) (*Deps, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.FromEnv()
	}
	cat := catalog.NewService(db, c, rec, logger.Named("catalog"))
	l, err := ledger.New(db, cat, rec, logger.Named("ledger"))
	if err != nil {
		return nil, err
	}
	reservations := reservation.NewManager(db, cat, l, rec, cfg.Reservation, logger.Named("reservation"))
	reports, err := report.NewService(db, reservations, rec, logger.Named("report"))
	if err != nil {
		return nil, err
	}
	return &Deps{
		DB:           db,
		Logger:       logger,
		Config:       cfg,
		Audit:        rec,
		Catalog:      cat,
		Ledger:       l,
		Availability: ledger.NewAvailabilityReader(db),
		Reservations: reservations,
		Invoices:     invoice.NewEngine(db, cat, reservations, l, rec, cfg.Invoice, logger.Named("invoice")),
		Reports:      reports,
		StockImport:  stockimport.NewImporter(db, l, logger.Named("stockimport")),
	}, nil
}

// Module registers routes on the /api group.
type Module func(g *echo.Group, d *Deps)

// Mount calls modules on g in order.
func Mount(g *echo.Group, d *Deps, modules ...Module) {
	for _, fn := range modules {
		fn(g, d)
	}
}

// RouteFunc registers routes on the root Echo instance (health, GraphQL).
type RouteFunc func(e *echo.Echo, d *Deps)

// MountRoutes calls root-level route modules in order.
func MountRoutes(e *echo.Echo, d *Deps, routes ...RouteFunc) {
	for _, fn := range routes {
		fn(e, d)
	}
}

// GET is shorthand for a root route module serving a single GET handler.
func GET(path string, handler echo.HandlerFunc) RouteFunc {
	return func(e *echo.Echo, _ *Deps) {
		e.GET(path, handler)
	}
}
