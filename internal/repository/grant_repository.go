package repository

import (
	"errors"

	"secure-vault/internal/model"
	"secure-vault/pkg/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GrantRepository 处理授权(ACL)记录持久化
type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository() *GrantRepository {
	return &GrantRepository{db: db.DB}
}

// WithTx 返回绑定到事务的副本
func (r *GrantRepository) WithTx(tx *gorm.DB) *GrantRepository {
	return &GrantRepository{db: tx}
}

// Upsert 写入授权。(file_id, target_user_id) 与 (file_id, target_group)
// 各有唯一索引，冲突时更新级别与授权人(last write wins)，
// 并发的相同分享最终只落一条记录。
func (r *GrantRepository) Upsert(grant *model.Grant) error {
	return r.db.Clauses(clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"level", "granted_by", "updated_at"}),
	}).Create(grant).Error
}

// 按(file, target)唯一键取回授权。upsert 走更新路径时 MySQL 不回传
// 既有行的自增ID，写入后必须用这个查询拿真实记录。
func (r *GrantRepository) FindByTarget(fileID uint, targetUserID *uint, targetGroup *string) (*model.Grant, error) {
	var grant model.Grant
	query := r.db.Where("file_id = ?", fileID)
	if targetUserID != nil {
		query = query.Where("target_user_id = ?", *targetUserID)
	} else {
		query = query.Where("target_group = ?", *targetGroup)
	}
	if err := query.First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func (r *GrantRepository) FindByID(id uint) (*model.Grant, error) {
	var grant model.Grant
	err := r.db.Preload("File").Preload("File.Owner").First(&grant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

// 用户在该文件上直接授权的最高级别，没有则返回 LevelNone。
// CASE排序与进程内解析器语义一致。
func (r *GrantRepository) MaxUserLevel(fileID, userID uint) (model.PermissionLevel, error) {
	var level string
	err := r.db.Raw(`
        SELECT level FROM grants
        WHERE file_id = ? AND target_user_id = ?
        ORDER BY
            CASE level
                WHEN 'full' THEN 3
                WHEN 'write' THEN 2
                WHEN 'read' THEN 1
            END DESC
        LIMIT 1`,
		fileID, userID).Scan(&level).Error
	if err != nil {
		return model.LevelNone, err
	}
	return model.PermissionLevel(level), nil
}

// 用户经由组在该文件上的最高授权级别，组名按值匹配调用者当前的组集合
func (r *GrantRepository) MaxGroupLevel(fileID uint, groups []string) (model.PermissionLevel, error) {
	if len(groups) == 0 {
		return model.LevelNone, nil
	}
	var level string
	err := r.db.Raw(`
        SELECT level FROM grants
        WHERE file_id = ? AND target_group IN ?
        ORDER BY
            CASE level
                WHEN 'full' THEN 3
                WHEN 'write' THEN 2
                WHEN 'read' THEN 1
            END DESC
        LIMIT 1`,
		fileID, groups).Scan(&level).Error
	if err != nil {
		return model.LevelNone, err
	}
	return model.PermissionLevel(level), nil
}

// 列出某文件的全部授权
func (r *GrantRepository) ListByFile(fileID uint) ([]model.Grant, error) {
	var grants []model.Grant
	err := r.db.Preload("Grantor").Preload("TargetUser").
		Where("file_id = ?", fileID).
		Order("created_at DESC").
		Find(&grants).Error
	return grants, err
}

// 列出分享给该用户(直接或经由其当前组)的全部授权，预加载文件与所有者。
// 同一文件可能同时命中用户授权和组授权，调用方按文件去重。
func (r *GrantRepository) ListForUser(userID uint, groups []string) ([]model.Grant, error) {
	var grants []model.Grant
	query := r.db.Preload("File").Preload("File.Owner")
	if len(groups) > 0 {
		query = query.Where("target_user_id = ? OR target_group IN ?", userID, groups)
	} else {
		query = query.Where("target_user_id = ?", userID)
	}
	err := query.Find(&grants).Error
	return grants, err
}

// 按ID删除授权(unshare)
func (r *GrantRepository) Delete(id uint) error {
	return r.db.Delete(&model.Grant{}, id).Error
}
