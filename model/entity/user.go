package entity

import "time"

type User struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"column:username;type:varchar(40);not null;uniqueIndex" json:"username"`
	Email     string    `gorm:"column:email;type:varchar(128)" json:"email,omitempty"`
	FullName  string    `gorm:"column:full_name;type:varchar(120)" json:"full_name,omitempty"`
	RoleID    *uint     `gorm:"column:role_id;index" json:"role_id,omitempty"`
	Role      *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive  bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// HasPermission reports whether the user's role grants perm. Inactive users have none.
func (u *User) HasPermission(perm string) bool {
	if u == nil || !u.IsActive || u.Role == nil {
		return false
	}
	return u.Role.Allows(perm)
}
