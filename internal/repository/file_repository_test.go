package repository

import (
	"testing"

	"secure-vault/internal/model"
)

func TestFileRepository_OwnerAgnosticLookup(t *testing.T) {
	setupTestDB(t)
	repo := NewFileRepository()

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	// 同一逻辑路径可以同时属于不同所有者
	createTestFile(t, alice, "/notes.txt", false)
	createTestFile(t, bob, "/notes.txt", false)

	own, err := repo.FindByOwnerAndPath(alice.ID, "/notes.txt")
	if err != nil {
		t.Fatalf("FindByOwnerAndPath() error = %v", err)
	}
	if own == nil || own.OwnerID != alice.ID {
		t.Error("Expected alice's record from owner-scoped lookup")
	}

	// 跨所有者查找返回全部匹配
	all, err := repo.FindByPathAnyOwner("/notes.txt")
	if err != nil {
		t.Fatalf("FindByPathAnyOwner() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 records across owners, got %d", len(all))
	}

	missing, err := repo.FindByOwnerAndPath(alice.ID, "/nope.txt")
	if err != nil {
		t.Fatalf("FindByOwnerAndPath() error = %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing path")
	}
}

func TestFileRepository_RewriteDescendantPaths(t *testing.T) {
	setupTestDB(t)
	repo := NewFileRepository()

	alice := createTestUser(t, "alice")

	folder := &model.File{OwnerID: alice.ID, Filename: "docs", Path: "/docs", ParentPath: "/", IsFolder: true}
	if err := repo.Create(folder); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	child := &model.File{OwnerID: alice.ID, Filename: "a.txt", Path: "/docs/a.txt", ParentPath: "/docs"}
	if err := repo.Create(child); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	nested := &model.File{OwnerID: alice.ID, Filename: "b.txt", Path: "/docs/sub/b.txt", ParentPath: "/docs/sub"}
	if err := repo.Create(nested); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// 文件夹改名后重写后代路径
	if err := repo.UpdatePathAndName(folder.ID, "archive", "/archive", "/"); err != nil {
		t.Fatalf("UpdatePathAndName() error = %v", err)
	}
	if err := repo.RewriteDescendantPaths(alice.ID, "/docs", "/archive"); err != nil {
		t.Fatalf("RewriteDescendantPaths() error = %v", err)
	}

	moved, err := repo.FindByOwnerAndPath(alice.ID, "/archive/a.txt")
	if err != nil {
		t.Fatalf("FindByOwnerAndPath() error = %v", err)
	}
	if moved == nil {
		t.Fatal("Expected child path to be rewritten")
	}
	if moved.ParentPath != "/archive" {
		t.Errorf("Expected parent path /archive, got %q", moved.ParentPath)
	}

	deep, err := repo.FindByOwnerAndPath(alice.ID, "/archive/sub/b.txt")
	if err != nil {
		t.Fatalf("FindByOwnerAndPath() error = %v", err)
	}
	if deep == nil {
		t.Fatal("Expected nested descendant path to be rewritten")
	}
	if deep.ParentPath != "/archive/sub" {
		t.Errorf("Expected parent path /archive/sub, got %q", deep.ParentPath)
	}
}

func TestFileRepository_ListSharedChildren(t *testing.T) {
	setupTestDB(t)
	fileRepo := NewFileRepository()
	grantRepo := NewGrantRepository()

	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	shared := &model.File{OwnerID: alice.ID, Filename: "plan.txt", Path: "/work/plan.txt", ParentPath: "/work"}
	if err := fileRepo.Create(shared); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	private := &model.File{OwnerID: alice.ID, Filename: "secret.txt", Path: "/work/secret.txt", ParentPath: "/work"}
	if err := fileRepo.Create(private); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := grantRepo.Upsert(&model.Grant{FileID: shared.ID, GrantedBy: alice.ID, TargetUserID: &bob.ID, Level: model.LevelRead}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// bob 只看到明确分享给他的子节点，文件夹不向内容传递权限
	files, err := fileRepo.ListSharedChildren("/work", bob.ID, nil)
	if err != nil {
		t.Fatalf("ListSharedChildren() error = %v", err)
	}
	if len(files) != 1 || files[0].Path != "/work/plan.txt" {
		t.Errorf("Expected only the shared child, got %v", files)
	}
}
