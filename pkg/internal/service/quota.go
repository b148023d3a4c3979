package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/model"
)

// 免费档兜底限额，等级表缺失 free 行时启用.
const (
	fallbackFreeStorageLimit = 1 << 30  // 1 GiB
	fallbackFreeMaxFileSize  = 50 << 20 // 50 MiB
	fallbackFreeMaxFileCount = 100
)

// storageFullThreshold 发出存储告警事件的用量比例.
const storageFullThreshold = 0.9

// Limits 属主当前生效的配额限额.
type Limits struct {
	LevelCode    string
	LevelName    string
	StorageLimit int64
	MaxFileSize  int64
	MaxFileCount int64
}

// resolveLimits 解析属主生效的限额. 有激活且未到期的订阅走订阅等级并返回账本行；
// 否则按免费档处理，账本行为 nil，用量随后从文件表推导.
func (s *FileService) resolveLimits(ctx context.Context, ownerID string) (Limits, *model.UserMembership, error) {
	var ledger model.UserMembership

	err := s.dbClient.WithContext(ctx).
		Preload("Level").
		Where("owner_id = ? AND active = ?", ownerID, true).
		Order("id DESC").
		First(&ledger).Error

	switch {
	case err == nil:
		if !ledger.Expired(time.Now()) {
			return Limits{
				LevelCode:    ledger.Level.Code,
				LevelName:    ledger.Level.Name,
				StorageLimit: ledger.Level.StorageLimit,
				MaxFileSize:  ledger.Level.MaxFileSize,
				MaxFileCount: ledger.Level.MaxFileCount,
			}, &ledger, nil
		}
		// 到期订阅按免费档处理，停用交给后台任务
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Limits{}, nil, fmt.Errorf("query membership: %w", err)
	}

	return s.freeLimits(ctx)
}

// freeLimits 返回免费档限额，等级表没有 free 行时使用兜底常量.
func (s *FileService) freeLimits(ctx context.Context) (Limits, *model.UserMembership, error) {
	var level model.MembershipLevel

	err := s.dbClient.WithContext(ctx).
		Where("code = ?", model.FreeLevelCode).
		First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Limits{
			LevelCode:    model.FreeLevelCode,
			LevelName:    "普通用户",
			StorageLimit: fallbackFreeStorageLimit,
			MaxFileSize:  fallbackFreeMaxFileSize,
			MaxFileCount: fallbackFreeMaxFileCount,
		}, nil, nil
	}

	if err != nil {
		return Limits{}, nil, fmt.Errorf("query free level: %w", err)
	}

	return Limits{
		LevelCode:    level.Code,
		LevelName:    level.Name,
		StorageLimit: level.StorageLimit,
		MaxFileSize:  level.MaxFileSize,
		MaxFileCount: level.MaxFileCount,
	}, nil, nil
}

// derivedUsage 从文件表聚合属主的真实用量. 免费档没有账本行，每次都以此为准.
func (s *FileService) derivedUsage(ctx context.Context, ownerID string) (storageUsed, fileCount int64, err error) {
	row := struct {
		Total int64
		Count int64
	}{}

	err = s.dbClient.WithContext(ctx).
		Model(&model.File{}).
		Select("COALESCE(SUM(size), 0) AS total, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate usage: %w", err)
	}

	return row.Total, row.Count, nil
}

// currentUsage 返回属主当前用量：付费档读账本，免费档从文件表推导.
func (s *FileService) currentUsage(ctx context.Context, ownerID string, ledger *model.UserMembership) (storageUsed, fileCount int64, err error) {
	if ledger != nil {
		return ledger.StorageUsed, ledger.FileCount, nil
	}

	return s.derivedUsage(ctx, ownerID)
}

// checkAdmission 准入检查，依次校验单文件大小、总存储、文件数量，
// 返回第一个被触发的维度.
func checkAdmission(limits Limits, storageUsed, fileCount, fileSize int64) error {
	if limits.MaxFileSize > 0 && fileSize > limits.MaxFileSize {
		return apperrors.NewQuotaExceeded(apperrors.LimitFileSize, fileSize, limits.MaxFileSize,
			"file size %s exceeds the per-file limit %s",
			FormatBytes(fileSize), FormatBytes(limits.MaxFileSize))
	}

	if limits.StorageLimit > 0 && storageUsed+fileSize > limits.StorageLimit {
		return apperrors.NewQuotaExceeded(apperrors.LimitStorage, storageUsed+fileSize, limits.StorageLimit,
			"storage limit exceeded: %s used, %s requested, %s allowed",
			FormatBytes(storageUsed), FormatBytes(fileSize), FormatBytes(limits.StorageLimit))
	}

	if limits.MaxFileCount > 0 && fileCount+1 > limits.MaxFileCount {
		return apperrors.NewQuotaExceeded(apperrors.LimitFileCount, fileCount+1, limits.MaxFileCount,
			"file count limit exceeded: %d of %d files used", fileCount, limits.MaxFileCount)
	}

	return nil
}

// commitUsage 向付费账本提交一次上传的用量. 条件更新让上限在存储层再守一道：
// 并发绕过准入检查时这里的条件不满足，零行更新按配额超限处理.
func (s *FileService) commitUsage(ctx context.Context, tx *gorm.DB, ledger *model.UserMembership, limits Limits, fileSize int64) error {
	if ledger == nil {
		return nil
	}

	q := tx.WithContext(ctx).
		Model(&model.UserMembership{}).
		Where("id = ? AND active = ?", ledger.ID, true)

	// 非正限额表示不设上限
	if limits.StorageLimit > 0 {
		q = q.Where("storage_used + ? <= ?", fileSize, limits.StorageLimit)
	}

	if limits.MaxFileCount > 0 {
		q = q.Where("file_count + 1 <= ?", limits.MaxFileCount)
	}

	res := q.Updates(map[string]any{
		"storage_used": gorm.Expr("storage_used + ?", fileSize),
		"file_count":   gorm.Expr("file_count + 1"),
	})
	if res.Error != nil {
		return fmt.Errorf("commit usage: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return s.commitDenied(ctx, tx, ledger, limits, fileSize)
	}

	return nil
}

// commitDenied 零行更新时重读账本行，按实际触发的守卫归因配额错误.
func (s *FileService) commitDenied(ctx context.Context, tx *gorm.DB, ledger *model.UserMembership, limits Limits, fileSize int64) error {
	row := *ledger
	if err := tx.WithContext(ctx).First(&row, ledger.ID).Error; err != nil {
		row = *ledger
	}

	if limits.MaxFileCount > 0 && row.FileCount+1 > limits.MaxFileCount {
		return apperrors.NewQuotaExceeded(apperrors.LimitFileCount, row.FileCount+1, limits.MaxFileCount,
			"file count limit exceeded: %d of %d files used", row.FileCount, limits.MaxFileCount)
	}

	return apperrors.NewQuotaExceeded(apperrors.LimitStorage, row.StorageUsed+fileSize, limits.StorageLimit,
		"storage limit exceeded: %s used, %s requested, %s allowed",
		FormatBytes(row.StorageUsed), FormatBytes(fileSize), FormatBytes(limits.StorageLimit))
}

// releaseUsage 从付费账本释放一次删除的用量，下限托底到零.
// 调用方必须持有属主锁.
func (s *FileService) releaseUsage(ctx context.Context, tx *gorm.DB, ledger *model.UserMembership, fileSize int64) error {
	if ledger == nil {
		return nil
	}

	var row model.UserMembership
	if err := tx.WithContext(ctx).First(&row, ledger.ID).Error; err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	newStorage := row.StorageUsed - fileSize
	if newStorage < 0 {
		newStorage = 0
	}

	newCount := row.FileCount - 1
	if newCount < 0 {
		newCount = 0
	}

	err := tx.WithContext(ctx).
		Model(&row).
		Updates(map[string]any{
			"storage_used": newStorage,
			"file_count":   newCount,
		}).Error
	if err != nil {
		return fmt.Errorf("release usage: %w", err)
	}

	return nil
}
