//go:build !no_sqlite && !cgo

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/storage/db"
)

func newQuotaTestService(t *testing.T) (*FileService, *gorm.DB) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	client := &db.Client{DB: gdb}
	if err := client.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &FileService{dbClient: client}, gdb
}

// 零行条件更新的归因：数量守卫未通过时错误维度是文件数量，而非一律存储容量.
func TestCommitDeniedAttribution(t *testing.T) {
	svc, gdb := newQuotaTestService(t)
	ctx := context.Background()

	ledger := model.UserMembership{
		OwnerID: "alice", StorageUsed: 10, FileCount: 5, Active: true,
	}
	if err := gdb.Create(&ledger).Error; err != nil {
		t.Fatal(err)
	}

	countLimits := Limits{StorageLimit: 1000, MaxFileCount: 5}

	err := svc.commitDenied(ctx, gdb, &ledger, countLimits, 1)

	var qe *apperrors.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("error = %v, want quota exceeded", err)
	}

	if qe.Limit != apperrors.LimitFileCount {
		t.Errorf("limit kind = %s, want %s", qe.Limit, apperrors.LimitFileCount)
	}

	if qe.Attempted != 6 || qe.Allowed != 5 {
		t.Errorf("attempted/allowed = %d/%d, want 6/5", qe.Attempted, qe.Allowed)
	}

	storageLimits := Limits{StorageLimit: 12, MaxFileCount: 100}

	err = svc.commitDenied(ctx, gdb, &ledger, storageLimits, 3)
	if !errors.As(err, &qe) {
		t.Fatalf("error = %v, want quota exceeded", err)
	}

	if qe.Limit != apperrors.LimitStorage {
		t.Errorf("limit kind = %s, want %s", qe.Limit, apperrors.LimitStorage)
	}

	if qe.Attempted != 13 || qe.Allowed != 12 {
		t.Errorf("attempted/allowed = %d/%d, want 13/12", qe.Attempted, qe.Allowed)
	}
}
