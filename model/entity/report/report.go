package report

import (
	"time"

	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// Definition is a saved report configuration with default parameters.
type Definition struct {
	ID            uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name          string            `gorm:"column:name;type:varchar(120);not null" json:"name"`
	Kind          string            `gorm:"column:kind;type:varchar(32);not null;index" json:"kind"`
	Description   string            `gorm:"column:description;type:text" json:"description,omitempty"`
	DefaultParams datatypes.JSONMap `gorm:"column:default_params" json:"default_params,omitempty"`
	IsActive      bool              `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Definition) TableName() string {
	return "report_definitions"
}

// Generated records one report run and a preview of its first rows.
type Generated struct {
	ID           uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunToken     string            `gorm:"column:run_token;type:varchar(36);not null;uniqueIndex" json:"run_token"`
	DefinitionID *uint             `gorm:"column:definition_id;index" json:"definition_id,omitempty"`
	Kind         string            `gorm:"column:kind;type:varchar(32);not null;index" json:"kind"`
	Params       datatypes.JSONMap `gorm:"column:params" json:"params,omitempty"`
	Status       RunStatus         `gorm:"column:status;type:varchar(16);not null" json:"status"`
	RowsCount    int               `gorm:"column:rows_count;not null" json:"rows_count"`
	Preview      datatypes.JSON    `gorm:"column:preview" json:"preview,omitempty"`
	ErrorMessage string            `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	GeneratedBy  *uint             `gorm:"column:generated_by;index" json:"generated_by,omitempty"`
	StartedAt    time.Time         `gorm:"column:started_at" json:"started_at"`
	FinishedAt   *time.Time        `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (Generated) TableName() string {
	return "generated_reports"
}
