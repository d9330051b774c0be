package repository

import (
	"secure-vault/internal/model"
	"secure-vault/pkg/db"

	"gorm.io/gorm"
)

// AuditRepository 处理审计日志持久化。日志只追加：
// 本仓库有意不提供更新或删除方法。
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{db: db.DB}
}

func (r *AuditRepository) Create(entry *model.AuditLog) error {
	return r.db.Create(entry).Error
}

// 最近的审计条目，新的在前
func (r *AuditRepository) ListRecent(limit int) ([]model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var entries []model.AuditLog
	err := r.db.Preload("User").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
