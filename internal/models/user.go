package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"size:255;uniqueIndex" json:"email"` // 邮箱
	PasswordHash string         `gorm:"size:255" json:"-"`                 // 密码哈希
	Nickname     string         `gorm:"size:64" json:"nickname"`           // 昵称
	IsActive     bool           `gorm:"default:true" json:"is_active"`     // 是否启用
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}
