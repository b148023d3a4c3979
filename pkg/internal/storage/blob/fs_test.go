package blob_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yeisme/filevault/pkg/configs"
	"github.com/yeisme/filevault/pkg/internal/storage/blob"
)

func newFSStore(t *testing.T) blob.Store {
	t.Helper()

	cfg := &configs.BlobConfig{Type: configs.BlobTypeFS, Root: t.TempDir()}

	store, err := blob.NewBlobStore(context.Background(), configs.BlobTypeFS, cfg)
	if err != nil {
		t.Fatalf("create fs store: %v", err)
	}

	return store
}

// TestFSStore_PutOpenRemove 验证写入、读取、删除的基本闭环.
func TestFSStore_PutOpenRemove(t *testing.T) {
	ctx := context.Background()
	store := newFSStore(t)

	key, err := store.Put(ctx, "alice", "report.txt", strings.NewReader("content"), -1)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key != "alice/report.txt" {
		t.Errorf("key = %q, want alice/report.txt", key)
	}

	rc, err := store.Open(ctx, "alice", "report.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	data, _ := io.ReadAll(rc)
	rc.Close()

	if string(data) != "content" {
		t.Errorf("read back %q, want %q", data, "content")
	}

	if err := store.Remove(ctx, "alice", "report.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Open(ctx, "alice", "report.txt"); err == nil {
		t.Error("Open after Remove should fail")
	}

	// 重复删除不报错
	if err := store.Remove(ctx, "alice", "report.txt"); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

// TestFSStore_PutFile 验证暂存文件落位后源文件消失.
func TestFSStore_PutFile(t *testing.T) {
	ctx := context.Background()
	store := newFSStore(t)

	staged := filepath.Join(t.TempDir(), "staged.bin")
	if err := os.WriteFile(staged, []byte("payload"), 0o600); err != nil {
		t.Fatal(err)
	}

	key, err := store.PutFile(ctx, "bob", "data.bin", staged)
	if err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if key != "bob/data.bin" {
		t.Errorf("key = %q", key)
	}

	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file should be consumed")
	}

	rc, err := store.Open(ctx, "bob", "data.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "payload" {
		t.Errorf("read back %q", data)
	}
}

// TestFSStore_Rename 验证属主目录内改名.
func TestFSStore_Rename(t *testing.T) {
	ctx := context.Background()
	store := newFSStore(t)

	if _, err := store.Put(ctx, "carol", "old.txt", strings.NewReader("v"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	key, err := store.Rename(ctx, "carol", "old.txt", "new.txt")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if key != "carol/new.txt" {
		t.Errorf("key = %q", key)
	}

	if _, err := store.Open(ctx, "carol", "old.txt"); err == nil {
		t.Error("old name should be gone")
	}
	if rc, err := store.Open(ctx, "carol", "new.txt"); err != nil {
		t.Errorf("new name missing: %v", err)
	} else {
		rc.Close()
	}
}

// TestFSStore_PutFileExistingDestination 验证落位不会覆盖已存在的目标文件.
func TestFSStore_PutFileExistingDestination(t *testing.T) {
	ctx := context.Background()
	store := newFSStore(t)

	if _, err := store.Put(ctx, "alice", "keep.bin", strings.NewReader("committed"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	staged := filepath.Join(t.TempDir(), "staged.bin")
	if err := os.WriteFile(staged, []byte("intruder"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.PutFile(ctx, "alice", "keep.bin", staged); err == nil {
		t.Fatal("PutFile onto existing destination should fail")
	}

	// 已落位的内容必须原样保留
	rc, err := store.Open(ctx, "alice", "keep.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	data, _ := io.ReadAll(rc)
	rc.Close()

	if string(data) != "committed" {
		t.Errorf("destination content = %q, want %q", data, "committed")
	}
}

// TestFSStore_RenameExistingDestination 验证改名不会覆盖已存在的目标文件.
func TestFSStore_RenameExistingDestination(t *testing.T) {
	ctx := context.Background()
	store := newFSStore(t)

	if _, err := store.Put(ctx, "carol", "a.txt", strings.NewReader("aaa"), -1); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Put(ctx, "carol", "b.txt", strings.NewReader("bbb"), -1); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Rename(ctx, "carol", "a.txt", "b.txt"); err == nil {
		t.Fatal("Rename onto existing destination should fail")
	}

	rc, err := store.Open(ctx, "carol", "b.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	data, _ := io.ReadAll(rc)
	rc.Close()

	if string(data) != "bbb" {
		t.Errorf("destination content = %q, want %q", data, "bbb")
	}
}

// TestFSStore_OwnerIsolation 验证不同属主各自独立的目录.
func TestFSStore_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	store := newFSStore(t)

	if _, err := store.Put(ctx, "alice", "same.txt", strings.NewReader("a"), -1); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Put(ctx, "bob", "same.txt", strings.NewReader("b"), -1); err != nil {
		t.Fatal(err)
	}

	rc, _ := store.Open(ctx, "alice", "same.txt")
	data, _ := io.ReadAll(rc)
	rc.Close()

	if string(data) != "a" {
		t.Errorf("alice content = %q, want %q", data, "a")
	}
}
