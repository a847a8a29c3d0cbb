package audit

import (
	"time"

	"gorm.io/datatypes"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
	ActionOther  Action = "other"
)

type AuditLog struct {
	ID          uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID      *uint             `gorm:"column:user_id;index" json:"user_id,omitempty"`
	Username    string            `gorm:"column:username;type:varchar(40)" json:"username,omitempty"`
	Action      Action            `gorm:"column:action;type:varchar(16);not null;index" json:"action"`
	Model       string            `gorm:"column:model;type:varchar(64);not null;index:idx_audit_object" json:"model"`
	ObjectID    string            `gorm:"column:object_id;type:varchar(64);index:idx_audit_object" json:"object_id"`
	Description string            `gorm:"column:description;type:text" json:"description"`
	Data        datatypes.JSONMap `gorm:"column:data" json:"data,omitempty"`
	IPAddress   string            `gorm:"column:ip_address;type:varchar(45)" json:"ip_address,omitempty"`
	RequestID   string            `gorm:"column:request_id;type:varchar(64)" json:"request_id,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
