package service

import (
	"errors"

	"secure-vault/internal/directory"
	"secure-vault/internal/model"
	"secure-vault/internal/repository"
	"secure-vault/internal/storage"
	"secure-vault/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// 处理认证相关业务逻辑。目录服务启用时走LDAPS口令校验；
// 否则回退到本地账号(开发与测试环境)。
type AuthService struct {
	userRepo *repository.UserRepository
	dir      *directory.Client // 为nil表示目录服务未启用
	audit    *AuditService
	store    *storage.Storage
}

func NewAuthService(userRepo *repository.UserRepository, dir *directory.Client, audit *AuditService, store *storage.Storage) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		dir:      dir,
		audit:    audit,
		store:    store,
	}
}

// 用户登陆请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// 本地注册请求(仅目录服务未启用时开放)
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
}

// Login 认证并签发令牌。组列表从目录服务刷新后烙进令牌，
// 之后的每个请求把它作为显式参数带给权限解析。
func (s *AuthService) Login(req LoginRequest, ip string) (string, *model.User, []string, error) {
	var (
		user   *model.User
		groups []string
		err    error
	)

	if s.dir != nil {
		user, groups, err = s.directoryLogin(req)
	} else {
		user, err = s.localLogin(req)
	}
	if err != nil {
		return "", nil, nil, err
	}

	// 确保所有者的存储树存在
	if _, err := s.store.UserRoot(user.Username); err != nil {
		return "", nil, nil, err
	}

	token, err := utils.GenerateToken(user.ID, user.Username, groups, user.IsAdmin)
	if err != nil {
		return "", nil, nil, err
	}

	s.audit.Record(&user.ID, model.ActionLogin, "", ip, "")
	return token, user, groups, nil
}

func (s *AuthService) directoryLogin(req LoginRequest) (*model.User, []string, error) {
	details, err := s.dir.Authenticate(req.Username, req.Password)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.UpsertFromDirectory(details.Username, details.DisplayName, details.Email, details.IsAdmin)
	if err != nil {
		return nil, nil, err
	}
	return user, details.Groups, nil
}

func (s *AuthService) localLogin(req LoginRequest) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, directory.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, directory.ErrInvalidCredentials
	}
	return user, nil
}

// Register 创建本地账号。目录服务启用时账号一律来自目录，禁止注册。
func (s *AuthService) Register(req RegisterRequest) (*model.User, error) {
	if s.dir != nil {
		return nil, errors.New("registration is disabled when directory login is enabled")
	}

	existing, err := s.userRepo.FindByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("username already exists")
	}

	// 加密密码
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}
