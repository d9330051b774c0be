package service

import (
	"io"
	"strings"
	"testing"

	"secure-vault/internal/model"
	"secure-vault/internal/repository"
	"secure-vault/internal/storage"
	"secure-vault/pkg/config"
	"secure-vault/pkg/db"
	"secure-vault/pkg/logger"

	"gorm.io/gorm"
)

// 测试环境：测试数据库 + 临时物理存储根
type testEnv struct {
	userRepo  *repository.UserRepository
	fileRepo  *repository.FileRepository
	grantRepo *repository.GrantRepository
	auditRepo *repository.AuditRepository

	perms *PermissionService
	vault *VaultService
	share *ShareService
	audit *AuditService
	store *storage.Storage
}

func setupEnv(t *testing.T) *testEnv {
	if err := config.InitTest(); err != nil {
		t.Fatalf("Failed to initialize config: %v", err)
	}
	if logger.L == nil {
		if err := logger.InitLogger(config.GlobalConfig.Log.Level, config.GlobalConfig.Log.Production); err != nil {
			t.Logf("Logger init failed (using default): %v", err)
		}
	}
	if err := db.InitDB(config.GlobalConfig.Database.DSN); err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	cleanupTables(t)

	store, err := storage.New(t.TempDir(), config.GlobalConfig.Storage.MaxFileSize)
	if err != nil {
		t.Fatalf("Failed to initialize storage: %v", err)
	}

	env := &testEnv{
		userRepo:  repository.NewUserRepository(),
		fileRepo:  repository.NewFileRepository(),
		grantRepo: repository.NewGrantRepository(),
		auditRepo: repository.NewAuditRepository(),
		store:     store,
	}
	env.audit = NewAuditService(env.auditRepo)
	env.perms = NewPermissionService(env.fileRepo, env.grantRepo)
	env.vault = NewVaultService(env.fileRepo, env.userRepo, env.perms, env.audit, store)
	env.share = NewShareService(env.fileRepo, env.grantRepo, env.userRepo, env.perms, env.audit)
	return env
}

// 帮助函数：按外键顺序清空相关表
func cleanupTables(t *testing.T) {
	session := db.DB.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []interface{}{&model.Grant{}, &model.AuditLog{}, &model.File{}, &model.User{}} {
		if err := session.Unscoped().Delete(m).Error; err != nil {
			t.Logf("Failed to cleanup table for %T: %v", m, err)
		}
	}
}

func readerOf(content string) io.Reader {
	return strings.NewReader(content)
}

func (e *testEnv) createUser(t *testing.T, username string) (*model.User, Identity) {
	user := &model.User{Username: username}
	if err := e.userRepo.Create(user); err != nil {
		t.Fatalf("Failed to create test user %s: %v", username, err)
	}
	return user, Identity{UserID: user.ID, Username: username, IP: "127.0.0.1"}
}
