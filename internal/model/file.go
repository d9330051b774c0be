package model

import (
	"time"
)

// 文件或文件夹的元数据记录，统一为一种节点。
// (owner_id, path) 唯一；逻辑路径相同的文件可以属于不同所有者。
type File struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerID    uint      `gorm:"not null;index;uniqueIndex:idx_files_owner_path" json:"owner_id"`
	Filename   string    `gorm:"type:varchar(255);not null" json:"filename"`
	Path       string    `gorm:"type:varchar(512);not null;uniqueIndex:idx_files_owner_path" json:"path"`
	ParentPath string    `gorm:"type:varchar(512);index" json:"parent_path"`
	IsFolder   bool      `gorm:"not null;default:false" json:"is_folder"`
	Size       int64     `gorm:"default:0" json:"size"`
	MimeType   string    `gorm:"type:varchar(100)" json:"mime_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Owner User `gorm:"foreignKey:OwnerID" json:"-"`
	// 删除文件时级联删除其全部授权，由外键约束保证原子性
	Grants []Grant `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}
