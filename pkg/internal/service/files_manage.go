package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/cache"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/storage/blob"
	"github.com/yeisme/filevault/pkg/internal/events"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
	flog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/rule"
)

// loadOwned 按属主定位文件行. 文件不存在与越权访问统一返回 NotFoundError，
// 不向调用方泄露他人文件是否存在.
func (s *FileService) loadOwned(ctx context.Context, ownerID, name string) (*model.File, error) {
	var record model.File

	err := s.dbClient.WithContext(ctx).
		Where("owner_id = ? AND name = ?", ownerID, name).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("file")
	}

	if err != nil {
		return nil, fmt.Errorf("load file: %w", err)
	}

	return &record, nil
}

// Get 获取单个文件的元数据，经缓存读穿透.
func (s *FileService) Get(ctx context.Context, ownerID, name string) (*types.FileInfo, error) {
	if s.cacheLayer == nil {
		record, err := s.loadOwned(ctx, ownerID, name)
		if err != nil {
			return nil, err
		}

		info := fileInfo(record)

		return &info, nil
	}

	info, err := cache.GetOrSet(ctx, s.cacheLayer, cache.KeyFile(ownerID, name), func() (types.FileInfo, error) {
		record, err := s.loadOwned(ctx, ownerID, name)
		if err != nil {
			return types.FileInfo{}, err
		}

		return fileInfo(record), nil
	})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// Download 打开文件内容读取流. 物理字节永远从 blob 存储读取，不经缓存.
func (s *FileService) Download(ctx context.Context, ownerID, name string) (*types.FileInfo, io.ReadCloser, error) {
	record, err := s.loadOwned(ctx, ownerID, name)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobStore.Open(ctx, ownerID, name)
	if err != nil {
		return nil, nil, apperrors.NewFileOperation("open file", err)
	}

	info := fileInfo(record)

	return &info, rc, nil
}

// Delete 删除文件. 元数据行与账本释放在同一事务内完成，
// 物理字节随后尽力删除，失败只记日志（孤儿字节不影响正确性）.
func (s *FileService) Delete(ctx context.Context, ownerID, name string) error {
	logger := ctxPkg.WithTraceContext(ctx, *flog.Logger())

	record, err := s.loadOwned(ctx, ownerID, name)
	if err != nil {
		return err
	}

	ownerLocks.Lock(ownerID)
	defer ownerLocks.Unlock(ownerID)

	_, ledger, err := s.resolveLimits(ctx, ownerID)
	if err != nil {
		return err
	}

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", record.ID).Delete(&model.File{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return apperrors.NewNotFound("file")
		}

		return s.releaseUsage(ctx, tx, ledger, record.Size)
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return err
		}

		return fmt.Errorf("delete file metadata: %w", err)
	}

	if err := s.blobStore.Remove(ctx, ownerID, name); err != nil {
		logger.Error().Err(err).
			Str("owner", ownerID).Str("name", name).
			Msg("删除物理字节失败，存在孤儿文件")
	}

	if s.cacheLayer != nil {
		s.cacheLayer.InvalidateOwner(ctx, ownerID)
	}

	events.Publish(ctx, s.mqClient, events.TopicFileDeleted, events.FileDeletedPayload{
		File:          fileRef(record),
		BytesReleased: record.Size,
	})

	logger.Info().
		Str("owner", ownerID).
		Str("name", name).
		Int64("released", record.Size).
		Msg("文件删除完成")

	return nil
}

// Rename 重命名文件. 元数据先行更新，物理字节改名失败时回滚元数据，
// 两边始终指向同一个名字.
func (s *FileService) Rename(ctx context.Context, ownerID, oldName, newName string) (*types.FileInfo, error) {
	if err := rule.ValidateVar(newName, "required,filename"); err != nil {
		return nil, apperrors.NewFieldValidation("new_name", "invalid file name %q", newName)
	}

	if oldName == newName {
		return nil, apperrors.NewValidation("new name is identical to the current name")
	}

	// 新名查重与物理改名之间不允许同属主的并发写插入
	ownerLocks.Lock(ownerID)
	defer ownerLocks.Unlock(ownerID)

	record, err := s.loadOwned(ctx, ownerID, oldName)
	if err != nil {
		return nil, err
	}

	if err := s.checkNameTaken(ctx, ownerID, newName); err != nil {
		return nil, err
	}

	newPath := blob.Key(ownerID, newName)

	err = s.dbClient.WithContext(ctx).
		Model(record).
		Updates(map[string]any{
			"name":         newName,
			"storage_path": newPath,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("rename file metadata: %w", err)
	}

	if _, err := s.blobStore.Rename(ctx, ownerID, oldName, newName); err != nil {
		// 物理改名失败，回滚元数据
		revertErr := s.dbClient.WithContext(ctx).
			Model(record).
			Updates(map[string]any{
				"name":         oldName,
				"storage_path": blob.Key(ownerID, oldName),
			}).Error
		if revertErr != nil {
			flog.Logger().Error().Err(revertErr).
				Str("owner", ownerID).Str("name", oldName).
				Msg("重命名回滚失败，元数据与物理字节不一致")
		}

		return nil, apperrors.NewFileOperation("rename file", err)
	}

	record.Name = newName
	record.StoragePath = newPath

	if s.cacheLayer != nil {
		s.cacheLayer.InvalidateOwner(ctx, ownerID)
	}

	events.Publish(ctx, s.mqClient, events.TopicFileRenamed, events.FileRenamedPayload{
		File:    fileRef(record),
		OldName: oldName,
	})

	info := fileInfo(record)

	return &info, nil
}

// UpdateAttrs 更新文件可见性与描述.
func (s *FileService) UpdateAttrs(ctx context.Context, ownerID, name string, req *types.UpdateFileRequest) (*types.FileInfo, error) {
	record, err := s.loadOwned(ctx, ownerID, name)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any, 2)

	if req.Permission != nil {
		if *req.Permission != model.PermissionPrivate && *req.Permission != model.PermissionPublic {
			return nil, apperrors.NewFieldValidation("permission", "must be 'private' or 'public'")
		}

		updates["permission"] = *req.Permission
	}

	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if len(updates) == 0 {
		return nil, apperrors.NewValidation("nothing to update")
	}

	if err := s.dbClient.WithContext(ctx).Model(record).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update file attrs: %w", err)
	}

	if s.cacheLayer != nil {
		s.cacheLayer.InvalidateOwner(ctx, ownerID)
	}

	events.Publish(ctx, s.mqClient, events.TopicFileUpdated, events.FileUpdatedPayload{
		File: fileRef(record),
	})

	info := fileInfo(record)

	return &info, nil
}
