package service

import (
	"context"
	"fmt"

	"github.com/yeisme/filevault/pkg/cache"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
)

// List 列出属主的全部文件，按创建时间倒序，经缓存读穿透.
func (s *FileService) List(ctx context.Context, ownerID string) (*types.ListFilesResponse, error) {
	load := func() (types.ListFilesResponse, error) {
		var records []model.File

		err := s.dbClient.WithContext(ctx).
			Where("owner_id = ?", ownerID).
			Order("created_at DESC, id DESC").
			Find(&records).Error
		if err != nil {
			return types.ListFilesResponse{}, fmt.Errorf("list files: %w", err)
		}

		resp := types.ListFilesResponse{
			Files: make([]types.FileInfo, 0, len(records)),
			Total: int64(len(records)),
		}
		for i := range records {
			resp.Files = append(resp.Files, fileInfo(&records[i]))
		}

		return resp, nil
	}

	if s.cacheLayer == nil {
		resp, err := load()
		if err != nil {
			return nil, err
		}

		return &resp, nil
	}

	resp, err := cache.GetOrSet(ctx, s.cacheLayer, cache.KeyFileList(ownerID), load)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// ListPublic 列出所有公开文件，附带属主展示名. 公开列表跨属主，不走属主缓存.
func (s *FileService) ListPublic(ctx context.Context) (*types.ListPublicFilesResponse, error) {
	type row struct {
		model.File
		Username string
	}

	var rows []row

	err := s.dbClient.WithContext(ctx).
		Model(&model.File{}).
		Select("files.*, users.username AS username").
		Joins("LEFT JOIN users ON users.owner_id = files.owner_id").
		Where("files.permission = ?", model.PermissionPublic).
		Order("files.created_at DESC, files.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list public files: %w", err)
	}

	resp := &types.ListPublicFilesResponse{
		Files: make([]types.PublicFileInfo, 0, len(rows)),
		Total: int64(len(rows)),
	}

	for i := range rows {
		ownerName := rows[i].Username
		if ownerName == "" {
			ownerName = rows[i].OwnerID
		}

		resp.Files = append(resp.Files, types.PublicFileInfo{
			FileInfo:  fileInfo(&rows[i].File),
			OwnerName: ownerName,
		})
	}

	return resp, nil
}

// Stats 统计属主的存储用量与限额.
func (s *FileService) Stats(ctx context.Context, ownerID string) (*types.StorageStatsResponse, error) {
	limits, ledger, err := s.resolveLimits(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	storageUsed, fileCount, err := s.currentUsage(ctx, ownerID, ledger)
	if err != nil {
		return nil, err
	}

	return &types.StorageStatsResponse{
		LevelCode:         limits.LevelCode,
		LevelName:         limits.LevelName,
		StorageUsed:       storageUsed,
		StorageLimit:      limits.StorageLimit,
		StorageUsedHuman:  FormatBytes(storageUsed),
		StorageLimitHuman: FormatBytes(limits.StorageLimit),
		UsagePercentage:   UsagePercentage(storageUsed, limits.StorageLimit),
		FileCount:         fileCount,
		MaxFileCount:      limits.MaxFileCount,
		MaxFileSize:       limits.MaxFileSize,
	}, nil
}
