//go:build !no_sqlite && !cgo

package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/service"
)

// quotaLimit 断言错误是指定维度的配额错误.
func quotaLimit(t *testing.T, err error, want apperrors.LimitKind) {
	t.Helper()

	var qe *apperrors.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("error = %v, want quota exceeded", err)
	}

	if qe.Limit != want {
		t.Errorf("limit kind = %s, want %s", qe.Limit, want)
	}
}

// nanoLevelContext 构造带极小限额订阅的测试环境.
func nanoLevelContext(t *testing.T, ownerID string) context.Context {
	t.Helper()

	ctx := newTestContext(t)
	seedLevel(t, ctx, model.MembershipLevel{
		Code: "nano", Name: "纳米档",
		StorageLimit: 100, MaxFileSize: 40, MaxFileCount: 2,
		DurationDays: 30,
	})
	subscribeTo(t, ctx, ownerID, "nano")

	return ctx
}

func TestQuota_FileTooLarge(t *testing.T) {
	ctx := nanoLevelContext(t, "alice")
	svc := service.NewFileService(ctx)

	_, err := svc.Upload(ctx, "alice", "big.bin", strings.NewReader(strings.Repeat("a", 50)), nil)
	quotaLimit(t, err, apperrors.LimitFileSize)
}

func TestQuota_StorageExhausted(t *testing.T) {
	ctx := nanoLevelContext(t, "alice")
	svc := service.NewFileService(ctx)

	uploadString(t, ctx, "alice", "a.bin", strings.Repeat("a", 40))
	uploadString(t, ctx, "alice", "b.bin", strings.Repeat("b", 40))

	_, err := svc.Upload(ctx, "alice", "c.bin", strings.NewReader(strings.Repeat("c", 30)), nil)
	quotaLimit(t, err, apperrors.LimitStorage)
}

func TestQuota_FileCountExhausted(t *testing.T) {
	ctx := newTestContext(t)
	seedLevel(t, ctx, model.MembershipLevel{
		Code: "counted", Name: "限量档",
		StorageLimit: 1 << 20, MaxFileSize: 1 << 10, MaxFileCount: 2,
		DurationDays: 30,
	})
	subscribeTo(t, ctx, "alice", "counted")

	uploadString(t, ctx, "alice", "a.txt", "aa")
	uploadString(t, ctx, "alice", "b.txt", "bb")

	svc := service.NewFileService(ctx)

	_, err := svc.Upload(ctx, "alice", "c.txt", strings.NewReader("cc"), nil)
	quotaLimit(t, err, apperrors.LimitFileCount)
}

// 准入按 单文件大小 -> 总容量 -> 文件数 顺序检查，同时超限时报最先命中的维度.
func TestQuota_AdmissionOrder(t *testing.T) {
	ctx := nanoLevelContext(t, "alice")
	svc := service.NewFileService(ctx)

	// 120 字节同时超过单文件上限(40)与总容量(100)
	_, err := svc.Upload(ctx, "alice", "huge.bin", strings.NewReader(strings.Repeat("x", 120)), nil)
	quotaLimit(t, err, apperrors.LimitFileSize)
}

func TestQuota_DeleteReleasesUsage(t *testing.T) {
	ctx := nanoLevelContext(t, "alice")
	svc := service.NewFileService(ctx)

	uploadString(t, ctx, "alice", "a.bin", strings.Repeat("a", 40))
	uploadString(t, ctx, "alice", "b.bin", strings.Repeat("b", 40))

	if _, err := svc.Upload(ctx, "alice", "c.bin", strings.NewReader(strings.Repeat("c", 30)), nil); err == nil {
		t.Fatal("expected storage quota error")
	}

	if err := svc.Delete(ctx, "alice", "a.bin"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Upload(ctx, "alice", "c.bin", strings.NewReader(strings.Repeat("c", 30)), nil); err != nil {
		t.Fatalf("upload after release: %v", err)
	}

	stats, err := svc.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.StorageUsed != 70 || stats.FileCount != 2 {
		t.Errorf("usage = %d bytes / %d files, want 70 / 2", stats.StorageUsed, stats.FileCount)
	}
}

// 免费档没有账本行，用量直接从文件表聚合推导.
func TestQuota_FreeTierDerivedUsage(t *testing.T) {
	ctx := newTestContext(t)
	svc := service.NewFileService(ctx)

	uploadString(t, ctx, "alice", "a.txt", "hello")
	uploadString(t, ctx, "alice", "b.txt", "world!!")

	stats, err := svc.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.LevelCode != model.FreeLevelCode {
		t.Errorf("level = %s, want free", stats.LevelCode)
	}

	if stats.StorageUsed != 12 || stats.FileCount != 2 {
		t.Errorf("usage = %d bytes / %d files, want 12 / 2", stats.StorageUsed, stats.FileCount)
	}

	// 等级表为空时启用兜底限额
	if stats.StorageLimit != 1<<30 || stats.MaxFileCount != 100 {
		t.Errorf("limits = %d / %d", stats.StorageLimit, stats.MaxFileCount)
	}
}

// 准入边界：恰好填满容量的文件被接纳，再多一字节被拒并引用存储上限.
func TestQuota_StorageBoundaryExact(t *testing.T) {
	ctx := newTestContext(t)
	seedLevel(t, ctx, model.MembershipLevel{
		Code: "edge", Name: "边界档",
		StorageLimit: 100, MaxFileSize: 80, MaxFileCount: 10,
		DurationDays: 30,
	})
	subscribeTo(t, ctx, "alice", "edge")

	svc := service.NewFileService(ctx)

	uploadString(t, ctx, "alice", "a.bin", strings.Repeat("a", 60))

	// 剩余 40 字节，恰好用尽
	if _, err := svc.Upload(ctx, "alice", "b.bin", strings.NewReader(strings.Repeat("b", 40)), nil); err != nil {
		t.Fatalf("exact-fit upload: %v", err)
	}

	_, err := svc.Upload(ctx, "alice", "c.bin", strings.NewReader("c"), nil)
	quotaLimit(t, err, apperrors.LimitStorage)

	var qe *apperrors.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("error = %v", err)
	}

	if qe.Attempted != 101 || qe.Allowed != 100 {
		t.Errorf("attempted/allowed = %d/%d, want 101/100", qe.Attempted, qe.Allowed)
	}
}

func TestQuota_QuotaErrorDetails(t *testing.T) {
	ctx := nanoLevelContext(t, "alice")
	svc := service.NewFileService(ctx)

	_, err := svc.Upload(ctx, "alice", "big.bin", strings.NewReader(strings.Repeat("a", 50)), nil)

	var qe *apperrors.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("error = %v", err)
	}

	if qe.Attempted != 50 || qe.Allowed != 40 {
		t.Errorf("attempted/allowed = %d/%d, want 50/40", qe.Attempted, qe.Allowed)
	}

	if apperrors.HTTPStatus(err) != 507 {
		t.Errorf("status = %d, want 507", apperrors.HTTPStatus(err))
	}
}
