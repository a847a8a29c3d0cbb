package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Permission names checked by the HTTP layer.
const (
	PermInventoryWrite   = "inventory.write"
	PermInventoryRead    = "inventory.read"
	PermReservationWrite = "reservations.write"
	PermInvoiceWrite     = "invoices.write"
	PermCatalogWrite     = "catalog.write"
	PermReportsRun       = "reports.run"
	PermAuditRead        = "audit.read"
	PermAll              = "*"
)

type Role struct {
	ID          uint                        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string                      `gorm:"column:name;type:varchar(60);not null;uniqueIndex" json:"name"`
	Description string                      `gorm:"column:description;type:varchar(255)" json:"description,omitempty"`
	Permissions datatypes.JSONSlice[string] `gorm:"column:permissions" json:"permissions"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Role) TableName() string {
	return "roles"
}

func (r *Role) Allows(perm string) bool {
	for _, p := range r.Permissions {
		if p == PermAll || p == perm {
			return true
		}
	}
	return false
}
