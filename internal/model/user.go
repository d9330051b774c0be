package model

import (
	"time"
)

// 用户记录。组成员关系来自目录服务，随令牌刷新，不做持久化。
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_users_username" json:"username"`
	DisplayName  string     `gorm:"type:varchar(255)" json:"display_name"`
	Email        string     `gorm:"type:varchar(255)" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255)" json:"-"` // 本地账号回退用，目录登录的用户为空
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Files []File `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
}
