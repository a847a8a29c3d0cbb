package entity

import "time"

type APIToken struct {
	ID        uint       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uint       `gorm:"column:user_id;not null;index"`
	User      *User      `gorm:"foreignKey:UserID"`
	Token     string     `gorm:"column:token;type:varchar(64);not null;uniqueIndex"`
	Revoked   bool       `gorm:"column:revoked;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (APIToken) TableName() string {
	return "api_tokens"
}

// Active reports whether the token can authenticate at now.
func (t *APIToken) Active(now time.Time) bool {
	if t.Revoked {
		return false
	}
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}
