//go:build !no_sqlite && !cgo

package service_test

import (
	"bytes"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestGet_OwnershipScoping(t *testing.T) {
	ctx := newTestContext(t)
	uploadString(t, ctx, "alice", "secret.txt", "alice only")

	svc := service.NewFileService(ctx)

	if _, err := svc.Get(ctx, "alice", "secret.txt"); err != nil {
		t.Fatalf("owner get: %v", err)
	}

	// 他人访问与文件不存在不可区分
	_, err := svc.Get(ctx, "bob", "secret.txt")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("cross-owner get error = %v, want not found", err)
	}

	_, err = svc.Get(ctx, "alice", "missing.txt")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("missing get error = %v, want not found", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := newTestContext(t)
	uploadString(t, ctx, "alice", "doomed.txt", "short lived")

	svc := service.NewFileService(ctx)

	if err := svc.Delete(ctx, "alice", "doomed.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Get(ctx, "alice", "doomed.txt"); !apperrors.IsNotFound(err) {
		t.Errorf("get after delete error = %v, want not found", err)
	}

	// 物理字节同步移除
	if _, _, err := svc.Download(ctx, "alice", "doomed.txt"); !apperrors.IsNotFound(err) {
		t.Errorf("download after delete error = %v, want not found", err)
	}

	// 摘要随文件释放，相同内容可再次上传
	uploadString(t, ctx, "alice", "reborn.txt", "short lived")

	if err := svc.Delete(ctx, "bob", "reborn.txt"); !apperrors.IsNotFound(err) {
		t.Errorf("cross-owner delete error = %v, want not found", err)
	}
}

func TestRename(t *testing.T) {
	ctx := newTestContext(t)
	uploadString(t, ctx, "alice", "old.txt", "same bytes throughout")
	uploadString(t, ctx, "alice", "taken.txt", "occupies the name")

	svc := service.NewFileService(ctx)

	info, err := svc.Rename(ctx, "alice", "old.txt", "new.txt")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}

	if info.Name != "new.txt" {
		t.Errorf("name = %q", info.Name)
	}

	if _, err := svc.Get(ctx, "alice", "old.txt"); !apperrors.IsNotFound(err) {
		t.Errorf("old name still resolves: %v", err)
	}

	// 新名字下内容完整
	_, rc, err := svc.Download(ctx, "alice", "new.txt")
	if err != nil {
		t.Fatalf("download renamed: %v", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		t.Fatalf("read: %v", err)
	}

	if buf.String() != "same bytes throughout" {
		t.Errorf("content = %q", buf.String())
	}

	if _, err := svc.Rename(ctx, "alice", "new.txt", "taken.txt"); !apperrors.IsConflict(err) {
		t.Errorf("rename to taken name error = %v, want conflict", err)
	}

	if _, err := svc.Rename(ctx, "alice", "new.txt", "new.txt"); !apperrors.IsValidation(err) {
		t.Errorf("rename to same name error = %v, want validation", err)
	}

	if _, err := svc.Rename(ctx, "alice", "new.txt", "../escape"); !apperrors.IsValidation(err) {
		t.Errorf("rename to bad name error = %v, want validation", err)
	}
}

func TestUpdateAttrs(t *testing.T) {
	ctx := newTestContext(t)
	uploadString(t, ctx, "alice", "note.txt", "note body")

	svc := service.NewFileService(ctx)
	public := model.PermissionPublic
	desc := "now shared"

	info, err := svc.UpdateAttrs(ctx, "alice", "note.txt", &types.UpdateFileRequest{
		Permission:  &public,
		Description: &desc,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if info.Permission != model.PermissionPublic || info.Description != "now shared" {
		t.Errorf("info = %+v", info)
	}

	if _, err := svc.UpdateAttrs(ctx, "alice", "note.txt", &types.UpdateFileRequest{}); !apperrors.IsValidation(err) {
		t.Errorf("empty update error = %v, want validation", err)
	}

	bad := "everyone"
	if _, err := svc.UpdateAttrs(ctx, "alice", "note.txt", &types.UpdateFileRequest{Permission: &bad}); !apperrors.IsValidation(err) {
		t.Errorf("bad permission error = %v, want validation", err)
	}
}

func TestList(t *testing.T) {
	ctx := newTestContext(t)
	uploadString(t, ctx, "alice", "a.txt", "one")
	uploadString(t, ctx, "alice", "b.txt", "two!")
	uploadString(t, ctx, "bob", "c.txt", "three")

	svc := service.NewFileService(ctx)

	resp, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if resp.Total != 2 || len(resp.Files) != 2 {
		t.Fatalf("total = %d, files = %d", resp.Total, len(resp.Files))
	}

	for _, f := range resp.Files {
		if f.Name == "c.txt" {
			t.Error("list leaks another owner's file")
		}
	}
}

// 列表走缓存，写操作后必须返回新状态.
func TestList_FreshAfterWrite(t *testing.T) {
	ctx := newTestContext(t)
	uploadString(t, ctx, "alice", "a.txt", "one")

	svc := service.NewFileService(ctx)

	if resp, _ := svc.List(ctx, "alice"); resp == nil || resp.Total != 1 {
		t.Fatalf("initial list: %+v", resp)
	}

	uploadString(t, ctx, "alice", "b.txt", "two!")

	resp, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if resp.Total != 2 {
		t.Errorf("total after upload = %d, want 2", resp.Total)
	}

	if err := svc.Delete(ctx, "alice", "a.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	resp, err = svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if resp.Total != 1 || resp.Files[0].Name != "b.txt" {
		t.Errorf("list after delete = %+v", resp)
	}
}

func TestListPublic(t *testing.T) {
	ctx := newTestContext(t)

	if err := testDB(t, ctx).Create(&model.User{OwnerID: "alice", Username: "Alice Zhang"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	svc := service.NewFileService(ctx)

	_, err := svc.Upload(ctx, "alice", "shared.txt", bytes.NewReader([]byte("public bytes")),
		&types.UploadFileRequest{Permission: model.PermissionPublic})
	if err != nil {
		t.Fatalf("upload public: %v", err)
	}

	uploadString(t, ctx, "alice", "private.txt", "private bytes")

	_, err = svc.Upload(ctx, "bob", "anon.txt", bytes.NewReader([]byte("from bob")),
		&types.UploadFileRequest{Permission: model.PermissionPublic})
	if err != nil {
		t.Fatalf("upload bob: %v", err)
	}

	resp, err := svc.ListPublic(ctx)
	if err != nil {
		t.Fatalf("list public: %v", err)
	}

	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}

	names := map[string]string{}
	for _, f := range resp.Files {
		names[f.Name] = f.OwnerName
	}

	if names["shared.txt"] != "Alice Zhang" {
		t.Errorf("owner name = %q, want username", names["shared.txt"])
	}

	// 没有用户资料时回退展示属主 ID
	if names["anon.txt"] != "bob" {
		t.Errorf("fallback owner name = %q, want owner id", names["anon.txt"])
	}

	if _, ok := names["private.txt"]; ok {
		t.Error("private file leaked into public list")
	}
}
