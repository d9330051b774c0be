package service

import (
	"errors"
	"fmt"
	"io"

	"secure-vault/internal/apperrors"
	"secure-vault/internal/model"
	"secure-vault/internal/repository"
	"secure-vault/internal/storage"
	"secure-vault/pkg/db"
	"secure-vault/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 每种操作所需的最低权限级别：
//
//	列表/元数据         read (所有者恒通过)
//	下载               read
//	复制(读源)          read
//	上传/在文件夹内创建   对该文件夹 write ("/"即自己的根，免检)
//	重命名/移动          write
//	删除               full
//
// 分享/取消分享的 full 检查在 ShareService。

// VaultService 是执行闸口：所有文件操作的唯一入口。
// 每个入口都先做跨所有者路径查找，再解析有效级别并与所需级别比较，
// 通过后才委托存储协作方执行，且元数据变更一律按内部ID进行。
// 检查与执行在同一数据库事务内完成，撤销授权的竞态在事务边界解决。
type VaultService struct {
	fileRepo *repository.FileRepository
	userRepo *repository.UserRepository
	perms    *PermissionService
	audit    *AuditService
	store    *storage.Storage
}

func NewVaultService(
	fileRepo *repository.FileRepository,
	userRepo *repository.UserRepository,
	perms *PermissionService,
	audit *AuditService,
	store *storage.Storage,
) *VaultService {
	return &VaultService{
		fileRepo: fileRepo,
		userRepo: userRepo,
		perms:    perms,
		audit:    audit,
		store:    store,
	}
}

// 列表项：文件元数据加上对调用者的注解
type FileEntry struct {
	ID         uint                  `json:"id"`
	Filename   string                `json:"filename"`
	Path       string                `json:"path"`
	ParentPath string                `json:"parent_path"`
	IsFolder   bool                  `json:"is_folder"`
	Size       int64                 `json:"size"`
	MimeType   string                `json:"mime_type"`
	OwnerID    uint                  `json:"owner_id"`
	OwnerName  string                `json:"owner_name"`
	Level      model.PermissionLevel `json:"permission_level"`
}

func entryOf(f *model.File, level model.PermissionLevel) FileEntry {
	return FileEntry{
		ID:         f.ID,
		Filename:   f.Filename,
		Path:       f.Path,
		ParentPath: f.ParentPath,
		IsFolder:   f.IsFolder,
		Size:       f.Size,
		MimeType:   f.MimeType,
		OwnerID:    f.OwnerID,
		OwnerName:  f.Owner.Username,
		Level:      level,
	}
}

// authorize 在给定事务内完成定位与权限判定。
// 未找到时记运维日志；级别不足时写一条拒绝审计。
func (s *VaultService) authorize(tx *gorm.DB, id Identity, path, action string, required model.PermissionLevel) (*model.File, model.PermissionLevel, error) {
	perms := s.perms.WithTx(tx)

	file, level, err := perms.LocateByPath(id.UserID, id.Groups, path)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.L.Warn("file not found",
				zap.String("path", path),
				zap.String("action", action),
				zap.Uint("userID", id.UserID))
		}
		return nil, model.LevelNone, err
	}

	if !level.Covers(required) {
		s.audit.RecordDenied(id.UserID, action, path, id.IP)
		return nil, level, apperrors.ErrPermissionDenied
	}
	return file, level, nil
}

// ListDirectory 返回目录内容：调用者自己的子节点与分享给他的子节点之并集。
// 文件夹与其内容没有自动的权限关系：分享文件夹不会连带暴露其子节点。
func (s *VaultService) ListDirectory(id Identity, dirPath string) ([]FileEntry, error) {
	path, err := storage.NormalizeLogicalPath(dirPath)
	if err != nil {
		return nil, err
	}

	// 非自己根目录时，要求目录存在且调用者至少可读
	if path != "/" {
		own, err := s.fileRepo.FindByOwnerAndPath(id.UserID, path)
		if err != nil {
			return nil, err
		}
		if own == nil {
			if _, _, err := s.authorize(db.DB, id, path, model.ActionList, model.LevelRead); err != nil {
				return nil, err
			}
		}
	}

	owned, err := s.fileRepo.ListChildren(id.UserID, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}
	shared, err := s.fileRepo.ListSharedChildren(path, id.UserID, id.Groups)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared files: %w", err)
	}

	entries := make([]FileEntry, 0, len(owned)+len(shared))
	for i := range owned {
		entries = append(entries, entryOf(&owned[i], model.LevelFull))
	}
	for i := range shared {
		level, err := s.perms.EffectiveLevel(id.UserID, id.Groups, &shared[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entryOf(&shared[i], level))
	}
	return entries, nil
}

// Download 检查读权限并解析到所有者的物理位置。
// 字节始终从所有者的存储树读出，分享不会复制副本。
func (s *VaultService) Download(id Identity, filePath string) (string, *model.File, error) {
	path, err := storage.NormalizeLogicalPath(filePath)
	if err != nil {
		return "", nil, err
	}

	file, _, err := s.authorize(db.DB, id, path, model.ActionDownload, model.LevelRead)
	if err != nil {
		return "", nil, err
	}

	physical, err := s.store.PhysicalPath(file.Owner.Username, file.Path)
	if err != nil {
		return "", nil, err
	}

	s.audit.Record(&id.UserID, model.ActionDownload, path, id.IP, "")
	return physical, file, nil
}

// 解析创建操作的目标命名空间："/"视作调用者自己的根；
// 其它父路径必须已有文件夹记录，非所有者需要对它的 write。
func (s *VaultService) resolveParent(tx *gorm.DB, id Identity, parentPath, action string) (*model.User, error) {
	if parentPath == "/" {
		owner, err := s.userRepo.FindByID(id.UserID)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			return nil, apperrors.ErrNotFound
		}
		return owner, nil
	}

	folder, _, err := s.authorize(tx, id, parentPath, action, model.LevelWrite)
	if err != nil {
		return nil, err
	}
	if !folder.IsFolder {
		return nil, fmt.Errorf("%w: %s is not a folder", apperrors.ErrNotFound, parentPath)
	}
	return &folder.Owner, nil
}

// Upload 把上传的内容写进目标文件夹所有者的存储树并登记元数据。
// 对他人的共享文件夹上传时，新文件归文件夹所有者所有。
func (s *VaultService) Upload(id Identity, parentPath, filename string, src io.Reader, size int64) (*model.File, error) {
	parent, err := storage.NormalizeLogicalPath(parentPath)
	if err != nil {
		return nil, err
	}
	// 文件名必须是单个路径段，否则拼出的路径会越过已检查的父文件夹
	if err := storage.ValidateName(filename); err != nil {
		return nil, err
	}
	if size > s.store.MaxFileSize() {
		return nil, apperrors.ErrFileTooLarge
	}

	var created *model.File
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		owner, err := s.resolveParent(tx, id, parent, model.ActionUpload)
		if err != nil {
			return err
		}

		filePath := storage.JoinLogical(parent, filename)
		fileRepo := s.fileRepo.WithTx(tx)

		existing, err := fileRepo.FindByOwnerAndPath(owner.ID, filePath)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrAlreadyExists
		}

		written, err := s.store.Save(owner.Username, filePath, src)
		if err != nil {
			return err
		}

		created = &model.File{
			OwnerID:    owner.ID,
			Filename:   filename,
			Path:       filePath,
			ParentPath: parent,
			IsFolder:   false,
			Size:       written,
			MimeType:   storage.DetectMimeType(filename),
		}
		return fileRepo.Create(created)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(&id.UserID, model.ActionUpload, created.Path, id.IP, "")
	return created, nil
}

// CreateFolder 在目标命名空间内创建文件夹节点
func (s *VaultService) CreateFolder(id Identity, folderPath string) (*model.File, error) {
	path, err := storage.NormalizeLogicalPath(folderPath)
	if err != nil {
		return nil, err
	}
	if path == "/" {
		return nil, apperrors.ErrAlreadyExists
	}
	parent := storage.ParentOf(path)

	var created *model.File
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		owner, err := s.resolveParent(tx, id, parent, model.ActionCreateFolder)
		if err != nil {
			return err
		}

		fileRepo := s.fileRepo.WithTx(tx)
		existing, err := fileRepo.FindByOwnerAndPath(owner.ID, path)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrAlreadyExists
		}

		if err := s.store.Mkdir(owner.Username, path); err != nil {
			return err
		}

		created = &model.File{
			OwnerID:    owner.ID,
			Filename:   storage.BaseName(path),
			Path:       path,
			ParentPath: parent,
			IsFolder:   true,
		}
		return fileRepo.Create(created)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(&id.UserID, model.ActionCreateFolder, created.Path, id.IP, "")
	return created, nil
}

// Rename 重命名文件或文件夹。需要对目标的 write。
func (s *VaultService) Rename(id Identity, oldPath, newName string) (*model.File, error) {
	path, err := storage.NormalizeLogicalPath(oldPath)
	if err != nil {
		return nil, err
	}
	if err := storage.ValidateName(newName); err != nil {
		return nil, err
	}

	var renamed *model.File
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		file, _, err := s.authorize(tx, id, path, model.ActionRename, model.LevelWrite)
		if err != nil {
			return err
		}

		newPath := storage.JoinLogical(file.ParentPath, newName)
		fileRepo := s.fileRepo.WithTx(tx)

		existing, err := fileRepo.FindByOwnerAndPath(file.OwnerID, newPath)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrAlreadyExists
		}

		if err := s.store.Move(file.Owner.Username, file.Path, newPath); err != nil {
			return err
		}

		// 按内部ID更新，不带所有者过滤
		if err := fileRepo.UpdatePathAndName(file.ID, newName, newPath, file.ParentPath); err != nil {
			return err
		}
		if file.IsFolder {
			if err := fileRepo.RewriteDescendantPaths(file.OwnerID, file.Path, newPath); err != nil {
				return err
			}
		}

		file.Filename = newName
		file.Path = newPath
		renamed = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(&id.UserID, model.ActionRename, path, id.IP, fmt.Sprintf("renamed to %s", renamed.Path))
	return renamed, nil
}

// Move 在所有者的命名空间内移动文件或文件夹。需要对源的 write。
func (s *VaultService) Move(id Identity, srcPath, destParent string) (*model.File, error) {
	path, err := storage.NormalizeLogicalPath(srcPath)
	if err != nil {
		return nil, err
	}
	dest, err := storage.NormalizeLogicalPath(destParent)
	if err != nil {
		return nil, err
	}

	var moved *model.File
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		file, _, err := s.authorize(tx, id, path, model.ActionMove, model.LevelWrite)
		if err != nil {
			return err
		}

		fileRepo := s.fileRepo.WithTx(tx)

		// 目标父路径必须在同一所有者的命名空间内存在
		if dest != "/" {
			destFolder, err := fileRepo.FindByOwnerAndPath(file.OwnerID, dest)
			if err != nil {
				return err
			}
			if destFolder == nil || !destFolder.IsFolder {
				return apperrors.ErrNotFound
			}
		}

		newPath := storage.JoinLogical(dest, file.Filename)
		existing, err := fileRepo.FindByOwnerAndPath(file.OwnerID, newPath)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrAlreadyExists
		}

		if err := s.store.Move(file.Owner.Username, file.Path, newPath); err != nil {
			return err
		}

		if err := fileRepo.UpdatePathAndName(file.ID, file.Filename, newPath, dest); err != nil {
			return err
		}
		if file.IsFolder {
			if err := fileRepo.RewriteDescendantPaths(file.OwnerID, file.Path, newPath); err != nil {
				return err
			}
		}

		file.Path = newPath
		file.ParentPath = dest
		moved = file
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(&id.UserID, model.ActionMove, path, id.IP, fmt.Sprintf("moved to %s", moved.Path))
	return moved, nil
}

// Copy 读源(需要 read)并在调用者自己的命名空间创建全新的副本。
// 副本归调用者所有，这是分享之外唯一会产生第二份字节的途径。
func (s *VaultService) Copy(id Identity, srcPath, destParent string) (*model.File, error) {
	path, err := storage.NormalizeLogicalPath(srcPath)
	if err != nil {
		return nil, err
	}
	dest, err := storage.NormalizeLogicalPath(destParent)
	if err != nil {
		return nil, err
	}

	var copied *model.File
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		file, _, err := s.authorize(tx, id, path, model.ActionCopy, model.LevelRead)
		if err != nil {
			return err
		}

		fileRepo := s.fileRepo.WithTx(tx)

		// 目标父路径在调用者自己的命名空间
		if dest != "/" {
			destFolder, err := fileRepo.FindByOwnerAndPath(id.UserID, dest)
			if err != nil {
				return err
			}
			if destFolder == nil || !destFolder.IsFolder {
				return apperrors.ErrNotFound
			}
		}

		newPath := storage.JoinLogical(dest, file.Filename)
		existing, err := fileRepo.FindByOwnerAndPath(id.UserID, newPath)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrAlreadyExists
		}

		size, err := s.store.Copy(file.Owner.Username, file.Path, id.Username, newPath)
		if err != nil {
			return err
		}

		copied = &model.File{
			OwnerID:    id.UserID,
			Filename:   file.Filename,
			Path:       newPath,
			ParentPath: dest,
			IsFolder:   file.IsFolder,
			Size:       size,
			MimeType:   file.MimeType,
		}
		return fileRepo.Create(copied)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(&id.UserID, model.ActionCopy, path, id.IP, fmt.Sprintf("copied to %s", copied.Path))
	return copied, nil
}

// Delete 删除文件或文件夹。需要 full。
// 文件记录与其授权在同一事务内消失(外键级联)，不会留下孤儿授权。
func (s *VaultService) Delete(id Identity, filePath string) error {
	path, err := storage.NormalizeLogicalPath(filePath)
	if err != nil {
		return err
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		file, _, err := s.authorize(tx, id, path, model.ActionDelete, model.LevelFull)
		if err != nil {
			return err
		}

		fileRepo := s.fileRepo.WithTx(tx)

		if err := s.store.Remove(file.Owner.Username, file.Path); err != nil {
			return err
		}

		if file.IsFolder {
			if err := fileRepo.DeleteDescendants(file.OwnerID, file.Path); err != nil {
				return err
			}
		}
		return fileRepo.Delete(file.ID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(&id.UserID, model.ActionDelete, path, id.IP, "")
	return nil
}
