package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/cache"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/events"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
	flog "github.com/yeisme/filevault/pkg/log"
)

// PerpetualDuration 表示永久订阅的时长取值.
const PerpetualDuration = -1

// ListLevels 列出全部会员等级，按展示权重排序.
func (s *MembershipService) ListLevels(ctx context.Context) (*types.ListLevelsResponse, error) {
	var levels []model.MembershipLevel

	err := s.dbClient.WithContext(ctx).
		Order("priority ASC").
		Find(&levels).Error
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}

	resp := &types.ListLevelsResponse{
		Levels: make([]types.MembershipLevelInfo, 0, len(levels)),
	}
	for i := range levels {
		resp.Levels = append(resp.Levels, levelInfo(&levels[i]))
	}

	return resp, nil
}

// Get 返回属主当前的会员状态，经缓存读穿透. 没有激活订阅时按免费档展示.
func (s *MembershipService) Get(ctx context.Context, ownerID string) (*types.MembershipInfo, error) {
	load := func() (types.MembershipInfo, error) {
		var ledger model.UserMembership

		err := s.dbClient.WithContext(ctx).
			Preload("Level").
			Where("owner_id = ? AND active = ?", ownerID, true).
			Order("id DESC").
			First(&ledger).Error

		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && ledger.Expired(time.Now())) {
			return types.MembershipInfo{
				LevelCode:   model.FreeLevelCode,
				LevelName:   "普通用户",
				EndDateText: FormatEndDate(nil),
				Active:      true,
			}, nil
		}

		if err != nil {
			return types.MembershipInfo{}, fmt.Errorf("query membership: %w", err)
		}

		return types.MembershipInfo{
			LevelCode:   ledger.Level.Code,
			LevelName:   ledger.Level.Name,
			StartDate:   ledger.StartDate,
			EndDate:     ledger.EndDate,
			EndDateText: FormatEndDate(ledger.EndDate),
			Active:      true,
		}, nil
	}

	if s.cacheLayer == nil {
		info, err := load()
		if err != nil {
			return nil, err
		}

		return &info, nil
	}

	info, err := cache.GetOrSet(ctx, s.cacheLayer, cache.KeyMembership(ownerID), load)
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// Subscribe 为属主开通、升级或续期订阅.
//
// 同一属主至多一条激活账本：换档时旧账本停用，新账本的用量从文件表重新聚合；
// 续期（相同等级）只顺延到期时间. duration_days 为 -1 的等级开通后永不过期.
func (s *MembershipService) Subscribe(ctx context.Context, ownerID, levelCode string) (*types.MembershipInfo, error) {
	if levelCode == "" || levelCode == model.FreeLevelCode {
		return nil, apperrors.NewFieldValidation("level_code", "cannot subscribe to %q", levelCode)
	}

	var level model.MembershipLevel

	err := s.dbClient.WithContext(ctx).
		Where("code = ?", levelCode).
		First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("membership level")
	}

	if err != nil {
		return nil, fmt.Errorf("query level: %w", err)
	}

	// 账本初始化依赖用量聚合，与文件操作共用属主锁
	ownerLocks.Lock(ownerID)
	defer ownerLocks.Unlock(ownerID)

	now := time.Now()

	var current model.UserMembership

	err = s.dbClient.WithContext(ctx).
		Preload("Level").
		Where("owner_id = ? AND active = ?", ownerID, true).
		Order("id DESC").
		First(&current).Error
	hasCurrent := err == nil

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("query membership: %w", err)
	}

	var result *model.UserMembership

	txErr := s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 续期：相同等级且未到期，顺延到期时间
		if hasCurrent && current.LevelID == level.ID && !current.Expired(now) {
			renewed, err := renewLedger(tx, &current, &level, now)
			if err != nil {
				return err
			}

			result = renewed

			return nil
		}

		// 换档：停用旧账本
		if hasCurrent {
			err := tx.Model(&model.UserMembership{}).
				Where("id = ?", current.ID).
				Update("active", false).Error
			if err != nil {
				return fmt.Errorf("deactivate previous membership: %w", err)
			}
		}

		// 新账本用量以文件表聚合为准
		var usage struct {
			Total int64
			Count int64
		}

		err := tx.Model(&model.File{}).
			Select("COALESCE(SUM(size), 0) AS total, COUNT(*) AS count").
			Where("owner_id = ?", ownerID).
			Scan(&usage).Error
		if err != nil {
			return fmt.Errorf("aggregate usage: %w", err)
		}

		ledger := model.UserMembership{
			OwnerID:     ownerID,
			LevelID:     level.ID,
			Level:       level,
			StorageUsed: usage.Total,
			FileCount:   usage.Count,
			StartDate:   now,
			EndDate:     endDateFor(&level, now),
			Active:      true,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return fmt.Errorf("create membership: %w", err)
		}

		result = &ledger

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.cacheLayer != nil {
		s.cacheLayer.InvalidateOwner(ctx, ownerID)
	}

	events.Publish(ctx, s.mqClient, events.TopicMembershipChanged, events.MembershipChangedPayload{
		OwnerID:   ownerID,
		LevelCode: level.Code,
		StartDate: result.StartDate,
		EndDate:   result.EndDate,
	})

	return &types.MembershipInfo{
		LevelCode:   level.Code,
		LevelName:   level.Name,
		StartDate:   result.StartDate,
		EndDate:     result.EndDate,
		EndDateText: FormatEndDate(result.EndDate),
		Active:      true,
	}, nil
}

// renewLedger 顺延当前账本的到期时间. 永久订阅保持不变.
func renewLedger(tx *gorm.DB, current *model.UserMembership, level *model.MembershipLevel, now time.Time) (*model.UserMembership, error) {
	if level.DurationDays == PerpetualDuration || current.EndDate == nil {
		return current, nil
	}

	base := *current.EndDate
	if base.Before(now) {
		base = now
	}

	newEnd := base.AddDate(0, 0, level.DurationDays)

	err := tx.Model(&model.UserMembership{}).
		Where("id = ?", current.ID).
		Update("end_date", newEnd).Error
	if err != nil {
		return nil, fmt.Errorf("renew membership: %w", err)
	}

	current.EndDate = &newEnd

	return current, nil
}

// endDateFor 计算订阅到期时间，永久等级返回 nil.
func endDateFor(level *model.MembershipLevel, start time.Time) *time.Time {
	if level.DurationDays == PerpetualDuration {
		return nil
	}

	end := start.AddDate(0, 0, level.DurationDays)

	return &end
}

// ExpireSweep 停用所有已到期的激活订阅，返回处理数量. 供后台任务周期调用.
func (s *MembershipService) ExpireSweep(ctx context.Context) (int, error) {
	logger := ctxPkg.WithTraceContext(ctx, *flog.Logger())
	now := time.Now()

	var expired []model.UserMembership

	err := s.dbClient.WithContext(ctx).
		Preload("Level").
		Where("active = ? AND end_date IS NOT NULL AND end_date < ?", true, now).
		Find(&expired).Error
	if err != nil {
		return 0, fmt.Errorf("query expired memberships: %w", err)
	}

	for i := range expired {
		ledger := &expired[i]

		err := s.dbClient.WithContext(ctx).
			Model(&model.UserMembership{}).
			Where("id = ?", ledger.ID).
			Update("active", false).Error
		if err != nil {
			return i, fmt.Errorf("deactivate membership %d: %w", ledger.ID, err)
		}

		if s.cacheLayer != nil {
			s.cacheLayer.InvalidateOwner(ctx, ledger.OwnerID)
		}

		events.Publish(ctx, s.mqClient, events.TopicMembershipExpired, events.MembershipExpiredPayload{
			OwnerID:   ledger.OwnerID,
			LevelCode: ledger.Level.Code,
			ExpiredAt: *ledger.EndDate,
		})

		logger.Info().
			Str("owner", ledger.OwnerID).
			Str("level", ledger.Level.Code).
			Msg("订阅到期已停用")
	}

	return len(expired), nil
}

// levelInfo 构造等级视图.
func levelInfo(level *model.MembershipLevel) types.MembershipLevelInfo {
	return types.MembershipLevelInfo{
		Code:              level.Code,
		Name:              level.Name,
		StorageLimit:      level.StorageLimit,
		StorageLimitHuman: FormatBytes(level.StorageLimit),
		MaxFileSize:       level.MaxFileSize,
		MaxFileSizeHuman:  FormatBytes(level.MaxFileSize),
		MaxFileCount:      level.MaxFileCount,
		Priority:          level.Priority,
		PriceMonthly:      level.PriceMonthly,
		DurationDays:      level.DurationDays,
	}
}

// DefaultLevels 内置会员等级，首次启动时落库.
func DefaultLevels() []model.MembershipLevel {
	return []model.MembershipLevel{
		{
			Code:         model.FreeLevelCode,
			Name:         "普通用户",
			StorageLimit: fallbackFreeStorageLimit,
			MaxFileSize:  fallbackFreeMaxFileSize,
			MaxFileCount: fallbackFreeMaxFileCount,
			Priority:     0,
			PriceMonthly: 0,
			DurationDays: PerpetualDuration,
		},
		{
			Code:         "basic",
			Name:         "基础会员",
			StorageLimit: 10 << 30,  // 10 GiB
			MaxFileSize:  500 << 20, // 500 MiB
			MaxFileCount: 1000,
			Priority:     1,
			PriceMonthly: 990,
			DurationDays: 30,
		},
		{
			Code:         "pro",
			Name:         "专业会员",
			StorageLimit: 100 << 30, // 100 GiB
			MaxFileSize:  2 << 30,   // 2 GiB
			MaxFileCount: 10000,
			Priority:     2,
			PriceMonthly: 2990,
			DurationDays: 30,
		},
	}
}

// EnsureDefaultLevels 确保内置等级存在，按 code 幂等创建.
func EnsureDefaultLevels(ctx context.Context, db *gorm.DB) error {
	for _, level := range DefaultLevels() {
		err := db.WithContext(ctx).
			Where(model.MembershipLevel{Code: level.Code}).
			Attrs(level).
			FirstOrCreate(&model.MembershipLevel{}).Error
		if err != nil {
			return fmt.Errorf("seed level %s: %w", level.Code, err)
		}
	}

	return nil
}
