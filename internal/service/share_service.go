package service

import (
	"fmt"
	"time"

	"secure-vault/internal/apperrors"
	"secure-vault/internal/model"
	"secure-vault/internal/repository"
	"secure-vault/internal/storage"
	"secure-vault/pkg/db"

	"gorm.io/gorm"
)

// ShareService 创建与撤销授权。
// 分享与取消分享都要求调用者对文件有 full(所有者恒满足)；
// 撤销另外允许授权的创建者本人。
type ShareService struct {
	fileRepo  *repository.FileRepository
	grantRepo *repository.GrantRepository
	userRepo  *repository.UserRepository
	perms     *PermissionService
	audit     *AuditService
}

func NewShareService(
	fileRepo *repository.FileRepository,
	grantRepo *repository.GrantRepository,
	userRepo *repository.UserRepository,
	perms *PermissionService,
	audit *AuditService,
) *ShareService {
	return &ShareService{
		fileRepo:  fileRepo,
		grantRepo: grantRepo,
		userRepo:  userRepo,
		perms:     perms,
		audit:     audit,
	}
}

// 对外的授权视图
type GrantInfo struct {
	ID          uint                  `json:"id"`
	FilePath    string                `json:"file_path,omitempty"`
	SharedBy    string                `json:"shared_by"`
	TargetUser  string                `json:"target_user,omitempty"`
	TargetGroup string                `json:"target_group,omitempty"`
	Level       model.PermissionLevel `json:"permission_level"`
	CreatedAt   time.Time             `json:"created_at"`
}

// 分享给调用者的文件视图
type SharedFileInfo struct {
	FileID    uint                  `json:"file_id"`
	Filename  string                `json:"filename"`
	Path      string                `json:"path"`
	IsFolder  bool                  `json:"is_folder"`
	Size      int64                 `json:"size"`
	MimeType  string                `json:"mime_type"`
	OwnerID   uint                  `json:"owner_id"`
	OwnerName string                `json:"owner_name"`
	Level     model.PermissionLevel `json:"permission_level"`
}

// Share 给一个用户或一个组授予权限级别，目标必须恰好一个。
// 对同一(文件,目标)重复分享按更新处理，不产生重复记录。
func (s *ShareService) Share(id Identity, filePath, targetUsername, targetGroup, levelStr string) (*model.Grant, error) {
	level, err := model.ParseLevel(levelStr)
	if err != nil {
		return nil, apperrors.ErrInvalidLevel
	}

	// 恰好一个目标，否则在写入任何授权之前拒绝
	if (targetUsername == "") == (targetGroup == "") {
		return nil, apperrors.ErrInvalidShareTarget
	}

	path, err := storage.NormalizeLogicalPath(filePath)
	if err != nil {
		return nil, err
	}

	var grant *model.Grant
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		perms := s.perms.WithTx(tx)

		file, effective, err := perms.LocateByPath(id.UserID, id.Groups, path)
		if err != nil {
			return err
		}
		if !effective.Covers(model.LevelFull) {
			s.audit.RecordDenied(id.UserID, model.ActionShare, path, id.IP)
			return apperrors.ErrPermissionDenied
		}

		grant = &model.Grant{
			FileID:    file.ID,
			GrantedBy: id.UserID,
			Level:     level,
		}

		if targetUsername != "" {
			if targetUsername == id.Username {
				return fmt.Errorf("%w: cannot share with yourself", apperrors.ErrInvalidShareTarget)
			}
			target, err := s.userRepo.FindByUsername(targetUsername)
			if err != nil {
				return fmt.Errorf("failed to verify target user: %w", err)
			}
			if target == nil {
				return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, targetUsername)
			}
			grant.TargetUserID = &target.ID
		} else {
			group := targetGroup
			grant.TargetGroup = &group
		}

		grantRepo := s.grantRepo.WithTx(tx)
		if err := grantRepo.Upsert(grant); err != nil {
			return err
		}

		// 更新路径上 upsert 不回传既有行的ID，按唯一键取回真实记录
		stored, err := grantRepo.FindByTarget(file.ID, grant.TargetUserID, grant.TargetGroup)
		if err != nil {
			return err
		}
		if stored == nil {
			return apperrors.ErrNotFound
		}
		grant = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	target := targetUsername
	if target == "" {
		target = targetGroup
	}
	s.audit.Record(&id.UserID, model.ActionShare, path, id.IP,
		fmt.Sprintf("shared with %s (%s)", target, level))
	return grant, nil
}

// Unshare 撤销一条授权。允许：文件所有者、该授权的创建者、持有 full 的用户。
func (s *ShareService) Unshare(id Identity, grantID uint) error {
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		grantRepo := s.grantRepo.WithTx(tx)

		grant, err := grantRepo.FindByID(grantID)
		if err != nil {
			return err
		}
		if grant == nil {
			return apperrors.ErrNotFound
		}

		authorized := grant.File.OwnerID == id.UserID || grant.GrantedBy == id.UserID
		if !authorized {
			effective, err := s.perms.WithTx(tx).EffectiveLevel(id.UserID, id.Groups, &grant.File)
			if err != nil {
				return err
			}
			authorized = effective.Covers(model.LevelFull)
		}
		if !authorized {
			s.audit.RecordDenied(id.UserID, model.ActionUnshare, grant.File.Path, id.IP)
			return apperrors.ErrPermissionDenied
		}

		return grantRepo.Delete(grantID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(&id.UserID, model.ActionUnshare, fmt.Sprintf("grant_id=%d", grantID), id.IP, "")
	return nil
}

// ListGrants 列出某文件的全部授权，只有 full 可见
func (s *ShareService) ListGrants(id Identity, filePath string) ([]GrantInfo, error) {
	path, err := storage.NormalizeLogicalPath(filePath)
	if err != nil {
		return nil, err
	}

	file, effective, err := s.perms.LocateByPath(id.UserID, id.Groups, path)
	if err != nil {
		return nil, err
	}
	if !effective.Covers(model.LevelFull) {
		return nil, apperrors.ErrPermissionDenied
	}

	grants, err := s.grantRepo.ListByFile(file.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}

	infos := make([]GrantInfo, 0, len(grants))
	for _, g := range grants {
		info := GrantInfo{
			ID:        g.ID,
			FilePath:  file.Path,
			SharedBy:  g.Grantor.Username,
			Level:     g.Level,
			CreatedAt: g.CreatedAt,
		}
		if g.TargetUser != nil {
			info.TargetUser = g.TargetUser.Username
		}
		if g.TargetGroup != nil {
			info.TargetGroup = *g.TargetGroup
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// SharedWithMe 返回分享给调用者的文件：直接授权与命中其当前组的组授权之并集，
// 按文件去重，注解有效级别与所有者。
func (s *ShareService) SharedWithMe(id Identity) ([]SharedFileInfo, error) {
	grants, err := s.grantRepo.ListForUser(id.UserID, id.Groups)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	// 同一文件可能同时有用户授权和组授权，最高者胜
	byFile := make(map[uint]*SharedFileInfo)
	order := make([]uint, 0, len(grants))
	for i := range grants {
		g := &grants[i]
		if g.File.OwnerID == id.UserID {
			// 指向所有者本人的授权是惰性的，不出现在此列表
			continue
		}
		if info, ok := byFile[g.FileID]; ok {
			info.Level = model.MaxLevel(info.Level, g.Level)
			continue
		}
		byFile[g.FileID] = &SharedFileInfo{
			FileID:    g.FileID,
			Filename:  g.File.Filename,
			Path:      g.File.Path,
			IsFolder:  g.File.IsFolder,
			Size:      g.File.Size,
			MimeType:  g.File.MimeType,
			OwnerID:   g.File.OwnerID,
			OwnerName: g.File.Owner.Username,
			Level:     g.Level,
		}
		order = append(order, g.FileID)
	}

	result := make([]SharedFileInfo, 0, len(order))
	for _, fileID := range order {
		result = append(result, *byFile[fileID])
	}
	return result, nil
}
