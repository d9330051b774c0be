package model

import (
	"time"
)

// 审计动作常量
const (
	ActionLogin        = "LOGIN"
	ActionList         = "LIST"
	ActionUpload       = "UPLOAD"
	ActionDownload     = "DOWNLOAD"
	ActionCreateFolder = "CREATE_FOLDER"
	ActionRename       = "RENAME"
	ActionMove         = "MOVE"
	ActionCopy         = "COPY"
	ActionDelete       = "DELETE"
	ActionShare        = "SHARE"
	ActionUnshare      = "UNSHARE"
	ActionDenied       = "PERMISSION_DENIED"
)

// 审计日志条目，只追加。应用层不存在更新或删除它的代码路径。
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"` // 可为空：系统动作或未认证的尝试
	Action    string    `gorm:"type:varchar(50);not null;index" json:"action"`
	Resource  string    `gorm:"type:varchar(512)" json:"resource"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ip_address"`
	Details   string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}
