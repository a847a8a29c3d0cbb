// Package model lists every persisted entity so schema setup has one source.
package model

import (
	"gorm.io/gorm"

	entity "backoffice.GO/model/entity"
	auditEntity "backoffice.GO/model/entity/audit"
	billingEntity "backoffice.GO/model/entity/billing"
	catalogEntity "backoffice.GO/model/entity/catalog"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	reportEntity "backoffice.GO/model/entity/report"
)

// Entities returns the models in dependency order.
func Entities() []interface{} {
	return []interface{}{
		&entity.Role{},
		&entity.User{},
		&entity.APIToken{},
		&catalogEntity.Category{},
		&catalogEntity.Product{},
		&catalogEntity.Variant{},
		&inventoryEntity.Movement{},
		&billingEntity.Reservation{},
		&billingEntity.ReservationItem{},
		&billingEntity.Invoice{},
		&billingEntity.InvoiceItem{},
		&auditEntity.AuditLog{},
		&reportEntity.Definition{},
		&reportEntity.Generated{},
	}
}

// AutoMigrate creates or updates all tables. Used for sqlite and tests;
// MySQL deployments run the embedded SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Entities()...)
}
