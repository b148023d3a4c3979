//go:build !no_sqlite && !cgo

package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yeisme/filevault/pkg/cache"
	"github.com/yeisme/filevault/pkg/configs"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/storage"
	"github.com/yeisme/filevault/pkg/internal/storage/blob"
	"github.com/yeisme/filevault/pkg/internal/storage/db"
	"github.com/yeisme/filevault/pkg/internal/storage/kv"
	"github.com/yeisme/filevault/pkg/internal/types"
)

// newTestContext 构造完整的存储栈：内存 sqlite + 临时目录 blob + 内存 KV 缓存，MQ 为空.
func newTestContext(t *testing.T) context.Context {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	dbClient := &db.Client{DB: gdb}
	if err := dbClient.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	blobStore, err := blob.NewFSStore(context.Background(), &configs.BlobConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}

	kvStore, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	cacheLayer := cache.NewCache(kvStore, cache.Options{TTL: time.Minute, Backend: "memory"})
	mgr := storage.NewManager(dbClient, blobStore, &kv.Client{KVStore: kvStore}, nil, cacheLayer)

	return ctxPkg.WithStorageManager(context.Background(), mgr)
}

// testDB 取回测试上下文里的 gorm 句柄，用于直接造数.
func testDB(t *testing.T, ctx context.Context) *gorm.DB {
	t.Helper()

	client := ctxPkg.GetDBClient(ctx)
	if client == nil {
		t.Fatal("no db client in context")
	}

	return client.DB
}

// seedLevel 直接落库一个会员等级.
func seedLevel(t *testing.T, ctx context.Context, level model.MembershipLevel) model.MembershipLevel {
	t.Helper()

	if err := testDB(t, ctx).Create(&level).Error; err != nil {
		t.Fatalf("seed level %s: %v", level.Code, err)
	}

	return level
}

// subscribeTo 为属主开通指定等级.
func subscribeTo(t *testing.T, ctx context.Context, ownerID, levelCode string) *types.MembershipInfo {
	t.Helper()

	info, err := service.NewMembershipService(ctx).Subscribe(ctx, ownerID, levelCode)
	if err != nil {
		t.Fatalf("subscribe %s to %s: %v", ownerID, levelCode, err)
	}

	return info
}

// uploadString 上传一段字符串内容.
func uploadString(t *testing.T, ctx context.Context, ownerID, name, content string) *types.FileInfo {
	t.Helper()

	info, err := service.NewFileService(ctx).Upload(ctx, ownerID, name, strings.NewReader(content), nil)
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}

	return info
}
