package repository

import (
	"errors"
	"time"

	"secure-vault/internal/model"
	"secure-vault/pkg/db"

	"gorm.io/gorm"
)

// UserRepository 处理用户数据持久化
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository() *UserRepository {
	return &UserRepository{db: db.DB}
}

// 新建用户
func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// 通过用户名查找用户
func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 用户不存在
		}
		return nil, err
	}
	return &user, nil
}

// 通过ID查找用户
func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 用户不存在
		}
		return nil, err
	}
	return &user, nil
}

// 目录登录后创建或刷新本地用户记录。显示名、邮箱和管理员标记
// 以目录服务为准，每次登录覆盖。组成员关系不落库。
func (r *UserRepository) UpsertFromDirectory(username, displayName, email string, isAdmin bool) (*model.User, error) {
	now := time.Now()

	existing, err := r.FindByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		updates := map[string]interface{}{
			"display_name": displayName,
			"email":        email,
			"is_admin":     isAdmin,
			"last_login":   now,
		}
		if err := r.db.Model(existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}

	user := &model.User{
		Username:    username,
		DisplayName: displayName,
		Email:       email,
		IsAdmin:     isAdmin,
		LastLogin:   &now,
	}
	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
