package kv_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/yeisme/filevault/pkg/internal/storage/kv"
)

// TestMemoryKV_Basic 验证内存后端的基本读写删除语义.
func TestMemoryKV_Basic(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want %q", got, "v1")
	}

	// 返回值是副本，修改不影响存储内容
	got[0] = 'X'
	again, _ := store.Get(ctx, "k1")
	if string(again) != "v1" {
		t.Errorf("stored value mutated: %q", again)
	}

	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "k1"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

// TestMemoryKV_TTL 验证过期条目对读操作不可见.
func TestMemoryKV_TTL(t *testing.T) {
	ctx := context.Background()

	store, _ := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	defer store.Close()

	if err := store.Set(ctx, "ephemeral", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if exists, _ := store.Exists(ctx, "ephemeral"); !exists {
		t.Fatal("key should exist before expiry")
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := store.Get(ctx, "ephemeral"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after expiry = %v, want ErrNotFound", err)
	}
	if exists, _ := store.Exists(ctx, "ephemeral"); exists {
		t.Error("expired key still reported as existing")
	}
}

// TestMemoryKV_DeleteByPrefix 验证按前缀批量删除只影响命名空间内的键.
func TestMemoryKV_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()

	store, _ := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	defer store.Close()

	for _, key := range []string{"file:1", "file:2", "user:alice", "membership:alice"} {
		if err := store.Set(ctx, key, []byte("v"), 0); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	deleted, err := store.DeleteByPrefix(ctx, "file:")
	if err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	keys, _ := store.Keys(ctx, "")
	sort.Strings(keys)

	want := []string{"membership:alice", "user:alice"}
	if len(keys) != len(want) {
		t.Fatalf("remaining keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("remaining keys = %v, want %v", keys, want)
			break
		}
	}
}

// TestNullKV 验证空实现永远未命中且写入无副作用.
func TestNullKV(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeNull, nil)
	if err != nil {
		t.Fatalf("create null kv: %v", err)
	}
	defer store.Close()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
	if exists, _ := store.Exists(ctx, "k"); exists {
		t.Error("null store should never report existing keys")
	}
	if deleted, _ := store.DeleteByPrefix(ctx, ""); deleted != 0 {
		t.Errorf("DeleteByPrefix = %d, want 0", deleted)
	}
}
