package repository

import (
	"testing"

	"secure-vault/internal/model"
	"secure-vault/pkg/config"
	"secure-vault/pkg/db"

	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	if err := config.InitTest(); err != nil {
		t.Fatalf("Failed to initialize config: %v", err)
	}

	// 配置测试数据库连接
	if err := db.InitDB(config.GlobalConfig.Database.DSN); err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	cleanupTables(t)
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

func createTestUser(t *testing.T, username string) *model.User {
	user := &model.User{Username: username}
	if err := NewUserRepository().Create(user); err != nil {
		t.Fatalf("Failed to create test user %s: %v", username, err)
	}
	return user
}

func createTestFile(t *testing.T, owner *model.User, path string, isFolder bool) *model.File {
	file := &model.File{
		OwnerID:    owner.ID,
		Filename:   path[len(path)-1:],
		Path:       path,
		ParentPath: "/",
		IsFolder:   isFolder,
	}
	if err := NewFileRepository().Create(file); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
	return file
}

func TestGrantRepository_UpsertDeduplicates(t *testing.T) {
	setupTestDB(t)
	repo := NewGrantRepository()

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	file := createTestFile(t, alice, "/report.pdf", false)

	// 同一(文件,目标用户)分享两次，应只有一条记录且级别是后写入的
	first := &model.Grant{FileID: file.ID, GrantedBy: alice.ID, TargetUserID: &bob.ID, Level: model.LevelRead}
	if err := repo.Upsert(first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	second := &model.Grant{FileID: file.ID, GrantedBy: alice.ID, TargetUserID: &bob.ID, Level: model.LevelWrite}
	if err := repo.Upsert(second); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	grants, err := repo.ListByFile(file.ID)
	if err != nil {
		t.Fatalf("ListByFile() error = %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("Expected exactly 1 grant, got %d", len(grants))
	}
	if grants[0].Level != model.LevelWrite {
		t.Errorf("Expected level write after upsert, got %v", grants[0].Level)
	}
}

func TestGrantRepository_MaxLevels(t *testing.T) {
	setupTestDB(t)
	repo := NewGrantRepository()

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	file := createTestFile(t, alice, "/report.pdf", false)

	finance := "Finance"
	if err := repo.Upsert(&model.Grant{FileID: file.ID, GrantedBy: alice.ID, TargetUserID: &bob.ID, Level: model.LevelRead}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(&model.Grant{FileID: file.ID, GrantedBy: alice.ID, TargetGroup: &finance, Level: model.LevelWrite}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	userLevel, err := repo.MaxUserLevel(file.ID, bob.ID)
	if err != nil {
		t.Fatalf("MaxUserLevel() error = %v", err)
	}
	if userLevel != model.LevelRead {
		t.Errorf("Expected read, got %v", userLevel)
	}

	groupLevel, err := repo.MaxGroupLevel(file.ID, []string{"Finance", "Engineering"})
	if err != nil {
		t.Fatalf("MaxGroupLevel() error = %v", err)
	}
	if groupLevel != model.LevelWrite {
		t.Errorf("Expected write, got %v", groupLevel)
	}

	// 不相交的组集合不命中任何授权
	none, err := repo.MaxGroupLevel(file.ID, []string{"Marketing"})
	if err != nil {
		t.Fatalf("MaxGroupLevel() error = %v", err)
	}
	if none != model.LevelNone {
		t.Errorf("Expected none for disjoint groups, got %v", none)
	}
}

func TestGrantRepository_CascadeDeleteWithFile(t *testing.T) {
	setupTestDB(t)
	grantRepo := NewGrantRepository()
	fileRepo := NewFileRepository()

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	file := createTestFile(t, alice, "/report.pdf", false)

	finance := "Finance"
	if err := grantRepo.Upsert(&model.Grant{FileID: file.ID, GrantedBy: alice.ID, TargetUserID: &bob.ID, Level: model.LevelRead}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := grantRepo.Upsert(&model.Grant{FileID: file.ID, GrantedBy: alice.ID, TargetGroup: &finance, Level: model.LevelFull}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// 删除文件记录，授权由外键级联删除，不靠应用层清理
	if err := fileRepo.Delete(file.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	grants, err := grantRepo.ListByFile(file.ID)
	if err != nil {
		t.Fatalf("ListByFile() error = %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("Expected no orphan grants after file delete, got %d", len(grants))
	}
}
