package user

import (
	"time"

	"backend/internal/approval"
)

// User 审批人账号
type User struct {
	ID           string        `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string        `gorm:"type:varchar(200);uniqueIndex;not null" json:"email"`
	Name         string        `gorm:"type:varchar(100);not null" json:"name"`
	Role         approval.Role `gorm:"type:varchar(32);not null;index" json:"role"`
	PasswordHash string        `gorm:"type:varchar(100);not null" json:"-"`
	Active       bool          `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
