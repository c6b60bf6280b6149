package model

import (
	"strings"
	"time"
)

const (
	RoleAdmin = "admin"

	// DefaultAdminPermissions is granted to administrators seeded from configuration.
	DefaultAdminPermissions = "read,reply,delete,ban,stats,broadcast"
)

type Admin struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TelegramID  int64     `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username    string    `gorm:"type:varchar(64)" json:"username"`
	Role        string    `gorm:"type:varchar(32);not null" json:"role"`
	Permissions string    `gorm:"type:text;not null" json:"permissions"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (Admin) TableName() string {
	return "admins"
}

func (a *Admin) HasPermission(perm string) bool {
	for _, p := range strings.Split(a.Permissions, ",") {
		if strings.TrimSpace(p) == perm {
			return true
		}
	}
	return false
}
