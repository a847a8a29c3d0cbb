// Package report builds read-only reports over the ledger, billing and audit
// tables. Every run is persisted with its parameters and a preview.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"backoffice.GO/core/apperr"
	auditEntity "backoffice.GO/model/entity/audit"
	reportEntity "backoffice.GO/model/entity/report"
	inventoryRepo "backoffice.GO/model/repository/inventory"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/ledger"
)

const defaultPreviewRows = 20

// Row is one report line keyed by column name.
type Row map[string]interface{}

type Result struct {
	Kind    Kind     `json:"kind"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Sweeper expires overdue reservations so reservation reports read current state.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

type handler func(ctx context.Context, p Params) (*Result, error)

type Service struct {
	db           *gorm.DB
	movements    *inventoryRepo.MovementRepository
	availability *ledger.AvailabilityReader
	sweeper      Sweeper
	audit        *audit.Recorder
	logger       *zap.Logger
	handlers     map[Kind]handler
	previewRows  int
	now          func() time.Time
}

// NewService resolves one handler per Kind. sweeper may be nil.
func NewService(db *gorm.DB, sweeper Sweeper, rec *audit.Recorder, logger *zap.Logger) (*Service, error) {
	movements, err := inventoryRepo.NewMovementRepository(db)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:           db,
		movements:    movements,
		availability: ledger.NewAvailabilityReader(db),
		sweeper:      sweeper,
		audit:        rec,
		logger:       logger,
		previewRows:  defaultPreviewRows,
		now:          time.Now,
	}
	s.handlers = make(map[Kind]handler, len(AllKinds()))
	for _, k := range AllKinds() {
		h := s.handlerFor(k)
		if h == nil {
			return nil, apperr.Configuration("no handler for report kind %q", k)
		}
		s.handlers[k] = h
	}
	return s, nil
}

func (s *Service) handlerFor(k Kind) handler {
	switch k {
	case KindInventory:
		return s.inventory
	case KindMovements:
		return s.movementHistory
	case KindSales:
		return s.sales
	case KindTopProducts:
		return s.topProducts
	case KindReservations:
		return s.reservations
	case KindAudit:
		return s.auditTrail
	case KindCategories:
		return s.categories
	case KindDaily:
		return s.daily
	case KindMonthly:
		return s.monthly
	}
	return nil
}

// RunRequest selects a report by kind or by saved definition. Params
// override the definition's defaults, which override the kind's defaults.
type RunRequest struct {
	Kind         string                 `json:"kind"`
	DefinitionID *uint                  `json:"definition_id,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty"`
}

// Run executes a report and persists the run. A failing handler still leaves
// a failed run row behind.
func (s *Service) Run(ctx context.Context, req RunRequest, actor audit.Actor) (*reportEntity.Generated, *Result, error) {
	layers := []map[string]interface{}{}
	kindName := req.Kind
	var def *reportEntity.Definition
	if req.DefinitionID != nil {
		var err error
		if def, err = s.Definition(ctx, *req.DefinitionID); err != nil {
			return nil, nil, err
		}
		if !def.IsActive {
			return nil, nil, apperr.Validation("report definition %q is inactive", def.Name)
		}
		kindName = def.Kind
	}
	kind, err := ParseKind(kindName)
	if err != nil {
		return nil, nil, err
	}
	layers = append(layers, defaultParams(kind, s.now()))
	if def != nil {
		layers = append(layers, map[string]interface{}(def.DefaultParams))
	}
	layers = append(layers, req.Params)
	merged := mergeParams(layers...)
	params, err := decodeParams(merged)
	if err != nil {
		return nil, nil, err
	}

	run := &reportEntity.Generated{
		RunToken:    uuid.NewString(),
		Kind:        string(kind),
		Params:      datatypes.JSONMap(merged),
		Status:      reportEntity.RunPending,
		GeneratedBy: actor.UserID,
		StartedAt:   s.now(),
	}
	if def != nil {
		run.DefinitionID = &def.ID
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, nil, fmt.Errorf("create report run: %w", err)
	}

	result, runErr := s.handlers[kind](ctx, params)
	finished := s.now()
	run.FinishedAt = &finished
	if runErr != nil {
		run.Status = reportEntity.RunFailed
		run.ErrorMessage = runErr.Error()
	} else {
		run.Status = reportEntity.RunDone
		run.RowsCount = len(result.Rows)
		run.Preview = s.preview(result)
	}
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		s.logger.Error("persist report run failed", zap.String("run", run.RunToken), zap.Error(err))
	}
	if runErr != nil {
		s.logger.Warn("report failed", zap.String("kind", string(kind)), zap.Error(runErr))
		return run, nil, runErr
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:      auditEntity.ActionOther,
		Model:       "generated_report",
		ObjectID:    audit.ObjectID(run.ID),
		Description: fmt.Sprintf("%s report generated with %d rows", kind, run.RowsCount),
		Data:        map[string]interface{}{"run_token": run.RunToken, "params": merged},
	})
	s.logger.Info("report generated", zap.String("kind", string(kind)), zap.Int("rows", run.RowsCount), zap.Duration("took", finished.Sub(run.StartedAt)))
	return run, result, nil
}

func (s *Service) preview(r *Result) datatypes.JSON {
	rows := r.Rows
	if len(rows) > s.previewRows {
		rows = rows[:s.previewRows]
	}
	b, err := json.Marshal(rows)
	if err != nil {
		s.logger.Warn("report preview encode failed", zap.Error(err))
		return nil
	}
	return datatypes.JSON(b)
}

func (s *Service) Runs(ctx context.Context, limit int) ([]reportEntity.Generated, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []reportEntity.Generated
	err := s.db.WithContext(ctx).Order("started_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Service) RunByToken(ctx context.Context, token string) (*reportEntity.Generated, error) {
	var run reportEntity.Generated
	err := s.db.WithContext(ctx).Where("run_token = ?", token).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("report run %s not found", token)
	}
	return &run, err
}

func (s *Service) Definition(ctx context.Context, id uint) (*reportEntity.Definition, error) {
	var def reportEntity.Definition
	err := s.db.WithContext(ctx).First(&def, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("report definition %d not found", id)
	}
	return &def, err
}

func (s *Service) Definitions(ctx context.Context) ([]reportEntity.Definition, error) {
	var out []reportEntity.Definition
	err := s.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

func (s *Service) CreateDefinition(ctx context.Context, def *reportEntity.Definition) error {
	if def.Name == "" {
		return apperr.Validation("report definition needs a name")
	}
	if _, err := ParseKind(def.Kind); err != nil {
		return err
	}
	if _, err := decodeParams(map[string]interface{}(def.DefaultParams)); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(def).Error
}

var seedDefinitions = []reportEntity.Definition{
	{Name: "Daily report", Kind: string(KindDaily), Description: "Sales, reservations and stock flow for one day."},
	{Name: "Monthly report", Kind: string(KindMonthly), Description: "Revenue, reservations and best sellers for one month."},
	{Name: "Inventory report", Kind: string(KindInventory), Description: "Current, reserved and available stock with low-stock alerts."},
	{Name: "Movement history", Kind: string(KindMovements), Description: "Ledger movements in creation order."},
	{Name: "Product ranking", Kind: string(KindTopProducts), Description: "Best and worst sellers.", DefaultParams: map[string]interface{}{"limit": 20}},
	{Name: "Category sales", Kind: string(KindCategories), Description: "Revenue distribution per category."},
	{Name: "Sales report", Kind: string(KindSales), Description: "Invoices, discounts and payment methods."},
	{Name: "Reservations report", Kind: string(KindReservations), Description: "Reservations by status with balances due."},
	{Name: "Audit report", Kind: string(KindAudit), Description: "User actions and recorded changes."},
}

// SeedDefinitions creates the stock definitions that are missing and returns how many were added.
func (s *Service) SeedDefinitions(ctx context.Context) (int, error) {
	created := 0
	for _, d := range seedDefinitions {
		var n int64
		if err := s.db.WithContext(ctx).Model(&reportEntity.Definition{}).Where("name = ?", d.Name).Count(&n).Error; err != nil {
			return created, err
		}
		if n > 0 {
			continue
		}
		def := d
		def.IsActive = true
		if err := s.db.WithContext(ctx).Create(&def).Error; err != nil {
			return created, fmt.Errorf("seed %q: %w", def.Name, err)
		}
		created++
	}
	return created, nil
}
