package repository

import (
	"errors"

	"secure-vault/internal/model"
	"secure-vault/pkg/db"

	"gorm.io/gorm"
)

// FileRepository 处理文件元数据持久化
type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository() *FileRepository {
	return &FileRepository{db: db.DB}
}

// WithTx 返回绑定到事务的副本，供检查-执行在同一事务内完成
func (r *FileRepository) WithTx(tx *gorm.DB) *FileRepository {
	return &FileRepository{db: tx}
}

func (r *FileRepository) Create(file *model.File) error {
	return r.db.Create(file).Error
}

func (r *FileRepository) FindByID(id uint) (*model.File, error) {
	var file model.File
	if err := r.db.Preload("Owner").First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

// 所有者范围内按路径查找
func (r *FileRepository) FindByOwnerAndPath(ownerID uint, path string) (*model.File, error) {
	var file model.File
	err := r.db.Preload("Owner").Where("owner_id = ? AND path = ?", ownerID, path).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

// 跨所有者按路径查找(owner-agnostic)。分享的路径属于别人的命名空间，
// 这里故意不按调用者过滤；调用方再决定选哪一条记录。
// 与 FindByOwnerAndPath 是两条明确分开的查询路径。
func (r *FileRepository) FindByPathAnyOwner(path string) ([]model.File, error) {
	var files []model.File
	err := r.db.Preload("Owner").Where("path = ?", path).Order("id ASC").Find(&files).Error
	return files, err
}

// 列出某所有者在指定父路径下的子节点
func (r *FileRepository) ListChildren(ownerID uint, parentPath string) ([]model.File, error) {
	var files []model.File
	err := r.db.Preload("Owner").
		Where("owner_id = ? AND parent_path = ?", ownerID, parentPath).
		Order("is_folder DESC, filename ASC").
		Find(&files).Error
	return files, err
}

// 列出指定父路径下分享给该用户(直接或经由组)的他人文件。
// 此查询需要联表 grants，与所有者自己的列表合并后去重。
func (r *FileRepository) ListSharedChildren(parentPath string, userID uint, groups []string) ([]model.File, error) {
	var files []model.File
	query := r.db.Preload("Owner").
		Joins("JOIN grants ON grants.file_id = files.id").
		Where("files.parent_path = ? AND files.owner_id != ?", parentPath, userID)

	if len(groups) > 0 {
		query = query.Where("grants.target_user_id = ? OR grants.target_group IN ?", userID, groups)
	} else {
		query = query.Where("grants.target_user_id = ?", userID)
	}

	err := query.Distinct("files.*").
		Order("files.is_folder DESC, files.filename ASC").
		Find(&files).Error
	return files, err
}

// 按内部ID更新名称与路径。这里故意不带 owner_id 条件：
// 权限已在闸口检查过，非所有者凭足够授权也可以合法修改记录。
func (r *FileRepository) UpdatePathAndName(id uint, filename, path, parentPath string) error {
	return r.db.Model(&model.File{}).Where("id = ?", id).Updates(map[string]interface{}{
		"filename":    filename,
		"path":        path,
		"parent_path": parentPath,
	}).Error
}

// 文件夹改名/移动后重写其所有后代的路径列，避免子记录悬空
func (r *FileRepository) RewriteDescendantPaths(ownerID uint, oldPrefix, newPrefix string) error {
	err := r.db.Exec(`
        UPDATE files
        SET path = CONCAT(?, SUBSTRING(path, LENGTH(?) + 1))
        WHERE owner_id = ? AND path LIKE CONCAT(?, '/%')`,
		newPrefix, oldPrefix, ownerID, oldPrefix).Error
	if err != nil {
		return err
	}
	return r.db.Exec(`
        UPDATE files
        SET parent_path = CONCAT(?, SUBSTRING(parent_path, LENGTH(?) + 1))
        WHERE owner_id = ? AND (parent_path = ? OR parent_path LIKE CONCAT(?, '/%'))`,
		newPrefix, oldPrefix, ownerID, oldPrefix, oldPrefix).Error
}

// 按内部ID删除记录。授权记录由外键级联删除，与文件删除同一原子操作，
// 不依赖应用层清理。
func (r *FileRepository) Delete(id uint) error {
	return r.db.Delete(&model.File{}, id).Error
}

// 删除某所有者在某前缀下的全部后代记录(删除文件夹时使用)
func (r *FileRepository) DeleteDescendants(ownerID uint, prefix string) error {
	return r.db.Where("owner_id = ? AND path LIKE CONCAT(?, '/%')", ownerID, prefix).
		Delete(&model.File{}).Error
}
