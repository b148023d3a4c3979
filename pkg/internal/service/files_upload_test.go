//go:build !no_sqlite && !cgo

package service_test

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestUpload_Basic(t *testing.T) {
	ctx := newTestContext(t)

	info := uploadString(t, ctx, "alice", "hello.txt", "hello world")

	if info.Name != "hello.txt" {
		t.Errorf("name = %q", info.Name)
	}

	if info.Size != int64(len("hello world")) {
		t.Errorf("size = %d", info.Size)
	}

	// sha256("hello world")
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if info.Digest != want {
		t.Errorf("digest = %s, want %s", info.Digest, want)
	}

	if info.Permission != "private" {
		t.Errorf("permission = %q, want default private", info.Permission)
	}

	// 字节可回读
	svc := service.NewFileService(ctx)

	_, rc, err := svc.Download(ctx, "alice", "hello.txt")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		t.Fatalf("read: %v", err)
	}

	if buf.String() != "hello world" {
		t.Errorf("content = %q", buf.String())
	}
}

func TestUpload_InvalidName(t *testing.T) {
	ctx := newTestContext(t)
	svc := service.NewFileService(ctx)

	for _, name := range []string{"", "..", "a/b.txt", `a\b.txt`} {
		_, err := svc.Upload(ctx, "alice", name, strings.NewReader("x"), nil)
		if !apperrors.IsValidation(err) {
			t.Errorf("Upload(%q) error = %v, want validation error", name, err)
		}
	}
}

func TestUpload_NameTaken(t *testing.T) {
	ctx := newTestContext(t)
	uploadString(t, ctx, "alice", "doc.txt", "first version")

	svc := service.NewFileService(ctx)

	_, err := svc.Upload(ctx, "alice", "doc.txt", strings.NewReader("second version"), nil)
	if !apperrors.IsConflict(err) {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestUpload_DuplicateContentDenied(t *testing.T) {
	ctx := newTestContext(t)
	uploadString(t, ctx, "alice", "a.txt", "shared bytes")

	svc := service.NewFileService(ctx)

	// 另一属主、另一文件名，内容相同同样被拒
	_, err := svc.Upload(ctx, "bob", "b.txt", strings.NewReader("shared bytes"), nil)
	if !apperrors.IsConflict(err) {
		t.Fatalf("error = %v, want conflict", err)
	}

	// 拒绝信息不暴露内容归属
	if strings.Contains(err.Error(), "alice") || strings.Contains(err.Error(), "a.txt") {
		t.Errorf("error leaks original owner: %v", err)
	}
}

// makeZip 生成内存中的 zip 归档.
func makeZip(t *testing.T, members map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}

		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	return buf.Bytes()
}

func TestUpload_ZipDedupByMemberContent(t *testing.T) {
	ctx := newTestContext(t)
	svc := service.NewFileService(ctx)

	first := makeZip(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	// 成员名不同但内容相同，摘要只看内容
	second := makeZip(t, map[string]string{"x.txt": "alpha", "y.txt": "beta"})

	if _, err := svc.Upload(ctx, "alice", "first.zip", bytes.NewReader(first), nil); err != nil {
		t.Fatalf("upload first: %v", err)
	}

	_, err := svc.Upload(ctx, "alice", "second.zip", bytes.NewReader(second), nil)
	if !apperrors.IsConflict(err) {
		t.Fatalf("error = %v, want conflict on identical member contents", err)
	}
}

func TestUpload_CorruptZip(t *testing.T) {
	ctx := newTestContext(t)
	svc := service.NewFileService(ctx)

	_, err := svc.Upload(ctx, "alice", "broken.zip", strings.NewReader("not a zip archive"), nil)
	if apperrors.Code(err) != apperrors.CodeFileOperation {
		t.Fatalf("error = %v, want file operation error", err)
	}
}

func TestUpload_PermissionAndDescription(t *testing.T) {
	ctx := newTestContext(t)
	svc := service.NewFileService(ctx)

	req := &types.UploadFileRequest{Permission: "public", Description: "shared notes"}

	info, err := svc.Upload(ctx, "alice", "notes.txt", strings.NewReader("notes"), req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if info.Permission != "public" || info.Description != "shared notes" {
		t.Errorf("info = %+v", info)
	}

	_, err = svc.Upload(ctx, "alice", "bad.txt", strings.NewReader("zz"),
		&types.UploadFileRequest{Permission: "everyone"})
	if !apperrors.IsValidation(err) {
		t.Errorf("error = %v, want validation error for bad permission", err)
	}
}
