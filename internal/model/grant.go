package model

import (
	"fmt"
	"strings"
	"time"
)

// 权限级别，全序 read < write < full。
type PermissionLevel string

const (
	LevelNone  PermissionLevel = ""
	LevelRead  PermissionLevel = "read"
	LevelWrite PermissionLevel = "write"
	LevelFull  PermissionLevel = "full"
)

// Rank 返回级别的数值序，未知级别为0。
func (l PermissionLevel) Rank() int {
	switch l {
	case LevelRead:
		return 1
	case LevelWrite:
		return 2
	case LevelFull:
		return 3
	default:
		return 0
	}
}

// Covers 判断当前级别是否满足所需级别。
func (l PermissionLevel) Covers(required PermissionLevel) bool {
	return l.Rank() >= required.Rank()
}

func ParseLevel(s string) (PermissionLevel, error) {
	switch PermissionLevel(strings.ToLower(s)) {
	case LevelRead:
		return LevelRead, nil
	case LevelWrite:
		return LevelWrite, nil
	case LevelFull:
		return LevelFull, nil
	default:
		return LevelNone, fmt.Errorf("invalid permission level: %s", s)
	}
}

// MaxLevel 返回数值序更高的级别。
func MaxLevel(a, b PermissionLevel) PermissionLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// 授权(ACL)记录。TargetUserID 与 TargetGroup 必须恰好设置其一；
// (file_id, target_user_id) 和 (file_id, target_group) 各自唯一，
// 对同一目标的重复分享按更新处理而不是新增记录。
type Grant struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	FileID       uint            `gorm:"not null;index;uniqueIndex:idx_grants_file_user;uniqueIndex:idx_grants_file_group" json:"file_id"`
	GrantedBy    uint            `gorm:"not null;index" json:"granted_by"`
	TargetUserID *uint           `gorm:"uniqueIndex:idx_grants_file_user" json:"target_user_id,omitempty"`
	TargetGroup  *string         `gorm:"type:varchar(255);uniqueIndex:idx_grants_file_group" json:"target_group,omitempty"` // 组按名字存值，组本身不持久化
	Level        PermissionLevel `gorm:"type:varchar(10);not null" json:"permission_level"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	File       File  `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
	Grantor    User  `gorm:"foreignKey:GrantedBy" json:"-"`
	TargetUser *User `gorm:"foreignKey:TargetUserID" json:"-"`
}
