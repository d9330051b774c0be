package service

import (
	"errors"
	"testing"

	"secure-vault/internal/apperrors"
	"secure-vault/internal/model"
)

// 目标必须恰好一个：零个或两个都在写入任何授权之前被拒绝
func TestShareRejectsInvalidTarget(t *testing.T) {
	env := setupEnv(t)
	_, alice := env.createUser(t, "alice")
	env.createUser(t, "bob")

	file := env.uploadAs(t, alice, "/", "doc.txt", "x")

	if _, err := env.share.Share(alice, "/doc.txt", "bob", "Finance", "read"); !errors.Is(err, apperrors.ErrInvalidShareTarget) {
		t.Errorf("Expected ErrInvalidShareTarget for two targets, got %v", err)
	}
	if _, err := env.share.Share(alice, "/doc.txt", "", "", "read"); !errors.Is(err, apperrors.ErrInvalidShareTarget) {
		t.Errorf("Expected ErrInvalidShareTarget for zero targets, got %v", err)
	}

	grants, err := env.grantRepo.ListByFile(file.ID)
	if err != nil {
		t.Fatalf("ListByFile() error = %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("Expected no grant written after rejected requests, got %d", len(grants))
	}
}

func TestShareRejectsInvalidLevel(t *testing.T) {
	env := setupEnv(t)
	_, alice := env.createUser(t, "alice")
	env.createUser(t, "bob")

	env.uploadAs(t, alice, "/", "doc.txt", "x")

	if _, err := env.share.Share(alice, "/doc.txt", "bob", "", "admin"); !errors.Is(err, apperrors.ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel, got %v", err)
	}
}

// 重复分享同一目标是更新而不是第二条记录
func TestShareUpsertSameTarget(t *testing.T) {
	env := setupEnv(t)
	_, alice := env.createUser(t, "alice")
	env.createUser(t, "bob")

	file := env.uploadAs(t, alice, "/", "doc.txt", "x")

	first, err := env.share.Share(alice, "/doc.txt", "bob", "", "read")
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	second, err := env.share.Share(alice, "/doc.txt", "bob", "", "full")
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	grants, err := env.grantRepo.ListByFile(file.ID)
	if err != nil {
		t.Fatalf("ListByFile() error = %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("Expected exactly one grant, got %d", len(grants))
	}
	if grants[0].Level != model.LevelFull {
		t.Errorf("Expected latest level full, got %v", grants[0].Level)
	}

	// 重复分享走更新路径时返回的必须是既有行的真实ID
	if second.ID != grants[0].ID {
		t.Errorf("Expected re-share to return the stored grant ID %d, got %d", grants[0].ID, second.ID)
	}
	if first.ID != second.ID {
		t.Errorf("Expected both shares to resolve to the same grant, got %d and %d", first.ID, second.ID)
	}

	// 用返回的ID撤销要命中这条授权
	if err := env.share.Unshare(alice, second.ID); err != nil {
		t.Fatalf("Unshare() with returned ID error = %v", err)
	}
}

// FULL 授权者也可以再分享；所有者之外的 write 不行(在vault测试里验证)
func TestFullGranteeCanShare(t *testing.T) {
	env := setupEnv(t)
	_, alice := env.createUser(t, "alice")
	_, bob := env.createUser(t, "bob")
	env.createUser(t, "carol")

	env.uploadAs(t, alice, "/", "doc.txt", "x")

	if _, err := env.share.Share(alice, "/doc.txt", "bob", "", "full"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if _, err := env.share.Share(bob, "/doc.txt", "carol", "", "read"); err != nil {
		t.Errorf("Expected full grantee to share, got %v", err)
	}
}

// spec场景：组G1的成员看得到分享给G1的文件，看不到只分享给G2的
func TestSharedWithMeGroups(t *testing.T) {
	env := setupEnv(t)
	aliceUser, alice := env.createUser(t, "alice")
	_, bob := env.createUser(t, "bob")
	bob.Groups = []string{"G1"}

	env.uploadAs(t, alice, "/", "g1.txt", "a")
	env.uploadAs(t, alice, "/", "g2.txt", "b")

	if _, err := env.share.Share(alice, "/g1.txt", "", "G1", "read"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if _, err := env.share.Share(alice, "/g2.txt", "", "G2", "write"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	files, err := env.share.SharedWithMe(bob)
	if err != nil {
		t.Fatalf("SharedWithMe() error = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected exactly one shared file, got %d", len(files))
	}
	if files[0].Path != "/g1.txt" {
		t.Errorf("Expected /g1.txt, got %q", files[0].Path)
	}
	if files[0].Level != model.LevelRead {
		t.Errorf("Expected annotated level read, got %v", files[0].Level)
	}
	if files[0].OwnerID != aliceUser.ID || files[0].OwnerName != "alice" {
		t.Errorf("Expected owner annotation alice, got %s", files[0].OwnerName)
	}
}

// 同一文件同时有直接授权和组授权时去重，注解取最高级别
func TestSharedWithMeDeduplicates(t *testing.T) {
	env := setupEnv(t)
	_, alice := env.createUser(t, "alice")
	_, bob := env.createUser(t, "bob")
	bob.Groups = []string{"Finance"}

	env.uploadAs(t, alice, "/", "plan.txt", "x")

	if _, err := env.share.Share(alice, "/plan.txt", "bob", "", "read"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if _, err := env.share.Share(alice, "/plan.txt", "", "Finance", "write"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	files, err := env.share.SharedWithMe(bob)
	if err != nil {
		t.Fatalf("SharedWithMe() error = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected one deduplicated entry, got %d", len(files))
	}
	if files[0].Level != model.LevelWrite {
		t.Errorf("Expected highest level write, got %v", files[0].Level)
	}
}

// 取消分享的权限：所有者和授权创建者可以，别的授权者不行
func TestUnshareAuthority(t *testing.T) {
	env := setupEnv(t)
	_, alice := env.createUser(t, "alice")
	_, bob := env.createUser(t, "bob")
	env.createUser(t, "carol")

	file := env.uploadAs(t, alice, "/", "doc.txt", "x")

	grant, err := env.share.Share(alice, "/doc.txt", "carol", "", "read")
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if _, err := env.share.Share(alice, "/doc.txt", "bob", "", "write"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	// write 授权者无权撤销别人的授权
	if err := env.share.Unshare(bob, grant.ID); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}

	// 所有者可以
	if err := env.share.Unshare(alice, grant.ID); err != nil {
		t.Fatalf("Unshare() error = %v", err)
	}

	grants, err := env.grantRepo.ListByFile(file.ID)
	if err != nil {
		t.Fatalf("ListByFile() error = %v", err)
	}
	if len(grants) != 1 {
		t.Errorf("Expected one remaining grant, got %d", len(grants))
	}

	// 不存在的授权
	if err := env.share.Unshare(alice, grant.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing grant, got %v", err)
	}
}

// 只有 full 能查看某文件的授权列表
func TestListGrantsRequiresFull(t *testing.T) {
	env := setupEnv(t)
	_, alice := env.createUser(t, "alice")
	_, bob := env.createUser(t, "bob")

	env.uploadAs(t, alice, "/", "doc.txt", "x")

	if _, err := env.share.Share(alice, "/doc.txt", "bob", "", "read"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	if _, err := env.share.ListGrants(bob, "/doc.txt"); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}

	grants, err := env.share.ListGrants(alice, "/doc.txt")
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != 1 || grants[0].TargetUser != "bob" || grants[0].SharedBy != "alice" {
		t.Errorf("Unexpected grant listing: %+v", grants)
	}
}
