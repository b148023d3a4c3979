//go:build !no_sqlite && !cgo

package service_test

import (
	"testing"
	"time"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/service"
)

func TestEnsureDefaultLevels(t *testing.T) {
	ctx := newTestContext(t)
	gdb := testDB(t, ctx)

	if err := service.EnsureDefaultLevels(ctx, gdb); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 幂等
	if err := service.EnsureDefaultLevels(ctx, gdb); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	resp, err := service.NewMembershipService(ctx).ListLevels(ctx)
	if err != nil {
		t.Fatalf("list levels: %v", err)
	}

	if len(resp.Levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(resp.Levels))
	}

	// 按展示权重升序
	if resp.Levels[0].Code != model.FreeLevelCode || resp.Levels[2].Code != "pro" {
		t.Errorf("order = %s..%s", resp.Levels[0].Code, resp.Levels[2].Code)
	}

	for i := 1; i < len(resp.Levels); i++ {
		if resp.Levels[i].Priority <= resp.Levels[i-1].Priority {
			t.Errorf("priority not ascending: %d then %d", resp.Levels[i-1].Priority, resp.Levels[i].Priority)
		}
	}

	if resp.Levels[0].DurationDays != service.PerpetualDuration {
		t.Errorf("free duration = %d, want perpetual", resp.Levels[0].DurationDays)
	}
}

func TestMembershipGet_DefaultFree(t *testing.T) {
	ctx := newTestContext(t)

	info, err := service.NewMembershipService(ctx).Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if info.LevelCode != model.FreeLevelCode || !info.Active {
		t.Errorf("info = %+v", info)
	}

	if info.EndDateText != "永久" {
		t.Errorf("end date text = %q", info.EndDateText)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := newTestContext(t)
	if err := service.EnsureDefaultLevels(ctx, testDB(t, ctx)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 订阅前的免费档文件计入新账本
	uploadString(t, ctx, "alice", "pre.txt", "existing bytes")

	info := subscribeTo(t, ctx, "alice", "basic")

	if info.LevelCode != "basic" {
		t.Errorf("level = %s", info.LevelCode)
	}

	if info.EndDate == nil {
		t.Fatal("end date = nil, want +30d")
	}

	wantEnd := time.Now().AddDate(0, 0, 30)
	if d := info.EndDate.Sub(wantEnd); d < -time.Minute || d > time.Minute {
		t.Errorf("end date = %v, want about %v", info.EndDate, wantEnd)
	}

	svc := service.NewFileService(ctx)

	stats, err := svc.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.LevelCode != "basic" {
		t.Errorf("stats level = %s", stats.LevelCode)
	}

	if stats.StorageUsed != int64(len("existing bytes")) || stats.FileCount != 1 {
		t.Errorf("ledger initialized to %d/%d", stats.StorageUsed, stats.FileCount)
	}
}

func TestSubscribe_Invalid(t *testing.T) {
	ctx := newTestContext(t)
	if err := service.EnsureDefaultLevels(ctx, testDB(t, ctx)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := service.NewMembershipService(ctx)

	if _, err := svc.Subscribe(ctx, "alice", model.FreeLevelCode); !apperrors.IsValidation(err) {
		t.Errorf("subscribe free error = %v, want validation", err)
	}

	if _, err := svc.Subscribe(ctx, "alice", "platinum"); !apperrors.IsNotFound(err) {
		t.Errorf("unknown level error = %v, want not found", err)
	}
}

func TestSubscribe_RenewExtends(t *testing.T) {
	ctx := newTestContext(t)
	if err := service.EnsureDefaultLevels(ctx, testDB(t, ctx)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first := subscribeTo(t, ctx, "alice", "basic")
	second := subscribeTo(t, ctx, "alice", "basic")

	if second.EndDate == nil || first.EndDate == nil {
		t.Fatal("end dates missing")
	}

	gap := second.EndDate.Sub(*first.EndDate)
	if d := gap - 30*24*time.Hour; d < -time.Minute || d > time.Minute {
		t.Errorf("renewal extended by %v, want 30d", gap)
	}

	// 续期不新建账本
	var count int64
	testDB(t, ctx).Model(&model.UserMembership{}).
		Where("owner_id = ? AND active = ?", "alice", true).
		Count(&count)

	if count != 1 {
		t.Errorf("active ledgers = %d, want 1", count)
	}
}

func TestSubscribe_UpgradeReplacesLedger(t *testing.T) {
	ctx := newTestContext(t)
	if err := service.EnsureDefaultLevels(ctx, testDB(t, ctx)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	subscribeTo(t, ctx, "alice", "basic")
	uploadString(t, ctx, "alice", "a.txt", "paid bytes")
	subscribeTo(t, ctx, "alice", "pro")

	info, err := service.NewMembershipService(ctx).Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if info.LevelCode != "pro" {
		t.Errorf("level = %s, want pro", info.LevelCode)
	}

	var count int64
	testDB(t, ctx).Model(&model.UserMembership{}).
		Where("owner_id = ? AND active = ?", "alice", true).
		Count(&count)

	if count != 1 {
		t.Errorf("active ledgers = %d, want 1", count)
	}

	// 新账本的用量从文件表重算
	stats, err := service.NewFileService(ctx).Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.StorageUsed != int64(len("paid bytes")) || stats.FileCount != 1 {
		t.Errorf("usage = %d/%d", stats.StorageUsed, stats.FileCount)
	}
}

func TestSubscribe_PerpetualLevel(t *testing.T) {
	ctx := newTestContext(t)
	seedLevel(t, ctx, model.MembershipLevel{
		Code: "lifetime", Name: "终身会员",
		StorageLimit: 1 << 40, MaxFileSize: 10 << 30, MaxFileCount: 100000,
		DurationDays: service.PerpetualDuration,
	})

	info := subscribeTo(t, ctx, "alice", "lifetime")

	if info.EndDate != nil {
		t.Errorf("end date = %v, want nil", info.EndDate)
	}

	if info.EndDateText != "永久" {
		t.Errorf("end date text = %q", info.EndDateText)
	}
}

func TestExpireSweep(t *testing.T) {
	ctx := newTestContext(t)
	level := seedLevel(t, ctx, model.MembershipLevel{
		Code: "monthly", Name: "月度会员",
		StorageLimit: 1 << 30, MaxFileSize: 1 << 20, MaxFileCount: 100,
		DurationDays: 30,
	})

	past := time.Now().AddDate(0, 0, -1)
	ledger := model.UserMembership{
		OwnerID:   "alice",
		LevelID:   level.ID,
		StartDate: time.Now().AddDate(0, 0, -31),
		EndDate:   &past,
		Active:    true,
	}
	if err := testDB(t, ctx).Create(&ledger).Error; err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	svc := service.NewMembershipService(ctx)

	n, err := svc.ExpireSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}

	// 到期后回到免费档
	info, err := svc.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if info.LevelCode != model.FreeLevelCode {
		t.Errorf("level = %s, want free", info.LevelCode)
	}

	// 再次扫描无事可做
	if n, _ := svc.ExpireSweep(ctx); n != 0 {
		t.Errorf("second sweep = %d, want 0", n)
	}
}
