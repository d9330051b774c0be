package service

import (
	"fmt"

	"secure-vault/internal/apperrors"
	"secure-vault/internal/model"
	"secure-vault/internal/repository"

	"gorm.io/gorm"
)

// 认证协作方提供的调用者身份。组列表来自目录服务、随令牌刷新，
// 作为显式参数传入每次解析，引擎内不缓存，避免改组后的陈旧判定。
type Identity struct {
	UserID   uint
	Username string
	Groups   []string
	IP       string
}

// PermissionService 计算有效权限级别。纯读、无副作用，
// 每次调用都从存储重新计算。
type PermissionService struct {
	fileRepo  *repository.FileRepository
	grantRepo *repository.GrantRepository
}

func NewPermissionService(fileRepo *repository.FileRepository, grantRepo *repository.GrantRepository) *PermissionService {
	return &PermissionService{fileRepo: fileRepo, grantRepo: grantRepo}
}

// WithTx 返回绑定到事务的副本，使检查与执行处于同一事务
func (s *PermissionService) WithTx(tx *gorm.DB) *PermissionService {
	return &PermissionService{
		fileRepo:  s.fileRepo.WithTx(tx),
		grantRepo: s.grantRepo.WithTx(tx),
	}
}

// EffectiveLevel 解析用户对文件的有效权限级别：
//  1. 所有者直接返回 full，所有权是绝对的，任何授权都不能削弱它；
//  2. 否则取直接授权的最高级别；
//  3. 再取与调用者当前组集合相交的组授权的最高级别；
//  4. 返回两者中数值序更高的，都没有则为 none。
//
// 用户授权与组授权之间没有优先级，只比大小。
func (s *PermissionService) EffectiveLevel(userID uint, groups []string, file *model.File) (model.PermissionLevel, error) {
	if file.OwnerID == userID {
		return model.LevelFull, nil
	}

	userLevel, err := s.grantRepo.MaxUserLevel(file.ID, userID)
	if err != nil {
		return model.LevelNone, fmt.Errorf("failed to resolve user grants: %w", err)
	}

	groupLevel, err := s.grantRepo.MaxGroupLevel(file.ID, groups)
	if err != nil {
		return model.LevelNone, fmt.Errorf("failed to resolve group grants: %w", err)
	}

	return model.MaxLevel(userLevel, groupLevel), nil
}

// Check 解析并与所需级别比较，不足时返回 ErrPermissionDenied。
// 同时返回解析出的级别，供调用方记录。
func (s *PermissionService) Check(userID uint, groups []string, file *model.File, required model.PermissionLevel) (model.PermissionLevel, error) {
	level, err := s.EffectiveLevel(userID, groups, file)
	if err != nil {
		return model.LevelNone, err
	}
	if !level.Covers(required) {
		return level, apperrors.ErrPermissionDenied
	}
	return level, nil
}

// LocateByPath 是跨所有者的路径查找(owner-agnostic lookup)。
// 自己的记录优先；否则在同路径的他人记录中选调用者有任何有效级别的那条；
// 都没有授权时返回第一条，让调用方按权限不足处理而不泄露归属。
// 任何所有者名下都没有该路径时返回 ErrNotFound。
func (s *PermissionService) LocateByPath(userID uint, groups []string, path string) (*model.File, model.PermissionLevel, error) {
	own, err := s.fileRepo.FindByOwnerAndPath(userID, path)
	if err != nil {
		return nil, model.LevelNone, err
	}
	if own != nil {
		return own, model.LevelFull, nil
	}

	candidates, err := s.fileRepo.FindByPathAnyOwner(path)
	if err != nil {
		return nil, model.LevelNone, err
	}
	if len(candidates) == 0 {
		return nil, model.LevelNone, apperrors.ErrNotFound
	}

	for i := range candidates {
		level, err := s.EffectiveLevel(userID, groups, &candidates[i])
		if err != nil {
			return nil, model.LevelNone, err
		}
		if level != model.LevelNone {
			return &candidates[i], level, nil
		}
	}
	return &candidates[0], model.LevelNone, nil
}
