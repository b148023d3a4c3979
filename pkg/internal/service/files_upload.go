package service

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/digest"
	"github.com/yeisme/filevault/pkg/internal/events"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
	flog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/rule"
)

var ulidEntropy = ulid.Monotonic(crand.Reader, 0)

// stagePrefix 暂存文件名前缀.
const stagePrefix = "fv-stage-"

// Upload 上传单个文件. 完整管线：
//
//	校验 -> 暂存并计算摘要 -> 去重预检 -> 属主锁内名称查重与准入 -> 字节落位 ->
//	元数据入库 + 账本提交（同一事务） -> 缓存失效 -> 事件发布
//
// 任一步失败按逆序撤销已完成的步骤，保证元数据、账本与物理字节一致.
func (s *FileService) Upload(ctx context.Context, ownerID, fileName string, r io.Reader, req *types.UploadFileRequest) (*types.FileInfo, error) {
	logger := ctxPkg.WithTraceContext(ctx, *flog.Logger())

	if err := rule.ValidateVar(fileName, "required,filename"); err != nil {
		return nil, apperrors.NewFieldValidation("name", "invalid file name %q", fileName)
	}

	permission := model.PermissionPrivate
	if req != nil && req.Permission != "" {
		if req.Permission != model.PermissionPrivate && req.Permission != model.PermissionPublic {
			return nil, apperrors.NewFieldValidation("permission", "must be 'private' or 'public'")
		}

		permission = req.Permission
	}

	description := ""
	if req != nil {
		description = req.Description
	}

	// 暂存到本地临时文件，边写边算流式摘要
	stagePath, contentDigest, size, err := s.stage(fileName, r)
	if err != nil {
		return nil, err
	}
	// 暂存文件在落位成功后被消费，其余路径统一清理
	defer os.Remove(stagePath)

	// 内容级去重：全局已有相同摘要即拒绝
	if err := s.checkDuplicate(ctx, contentDigest); err != nil {
		return nil, err
	}

	// 名称查重、配额检查与提交必须在同一把属主锁内完成，
	// 否则同名并发上传的输家会在锁外通过查重，进而覆盖赢家已提交的字节
	ownerLocks.Lock(ownerID)
	defer ownerLocks.Unlock(ownerID)

	// 属主内文件名唯一
	if err := s.checkNameTaken(ctx, ownerID, fileName); err != nil {
		return nil, err
	}

	limits, ledger, err := s.resolveLimits(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	storageUsed, fileCount, err := s.currentUsage(ctx, ownerID, ledger)
	if err != nil {
		return nil, err
	}

	if err := checkAdmission(limits, storageUsed, fileCount, size); err != nil {
		return nil, err
	}

	// 字节先落位，元数据随后入库；入库失败时逆序撤销字节
	storagePath, err := s.blobStore.PutFile(ctx, ownerID, fileName, stagePath)
	if err != nil {
		return nil, apperrors.NewFileOperation("store file", err)
	}

	record := model.File{
		OwnerID:     ownerID,
		Name:        fileName,
		Size:        size,
		Digest:      contentDigest,
		StoragePath: storagePath,
		Permission:  permission,
		Description: description,
	}

	err = s.dbClient.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		return s.commitUsage(ctx, tx, ledger, limits, size)
	})
	if err != nil {
		if removeErr := s.blobStore.Remove(ctx, ownerID, fileName); removeErr != nil {
			logger.Error().Err(removeErr).
				Str("owner", ownerID).Str("name", fileName).
				Msg("回滚物理字节失败，存在孤儿文件")
		}

		if apperrors.IsQuotaExceeded(err) {
			return nil, err
		}

		// 并发竞争下唯一索引兜底：落库输掉的一方按内容冲突处理
		if s.digestExists(ctx, contentDigest) {
			return nil, apperrors.NewConflict("identical content already stored")
		}

		return nil, fmt.Errorf("persist file metadata: %w", err)
	}

	// 权威存储已提交，此后才允许失效缓存
	if s.cacheLayer != nil {
		s.cacheLayer.InvalidateOwner(ctx, ownerID)
	}

	events.Publish(ctx, s.mqClient, events.TopicFileStored, events.FileStoredPayload{
		File: fileRef(&record),
	})
	s.warnIfNearFull(ctx, ownerID, limits, storageUsed+size)

	logger.Info().
		Str("owner", ownerID).
		Str("name", fileName).
		Int64("size", size).
		Str("digest", contentDigest).
		Msg("文件上传完成")

	info := fileInfo(&record)

	return &info, nil
}

// stage 把内容写入临时文件并返回内容摘要与实际大小.
// zip 归档的摘要基于解压后的成员内容，其余文件用流式摘要.
func (s *FileService) stage(fileName string, r io.Reader) (stagePath, contentDigest string, size int64, err error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy)
	stagePath = filepath.Join(os.TempDir(), stagePrefix+id.String())

	f, err := os.OpenFile(stagePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", "", 0, apperrors.NewFileOperation("stage file", err)
	}

	streamDigest, size, err := digest.Stream(io.TeeReader(r, f))
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = apperrors.NewFileOperation("stage file", closeErr)
	}

	if err != nil {
		os.Remove(stagePath)
		return "", "", 0, err
	}

	contentDigest = streamDigest
	if digest.IsZipName(fileName) {
		contentDigest, err = digest.ZipContents(stagePath)
		if err != nil {
			os.Remove(stagePath)
			return "", "", 0, err
		}
	}

	return stagePath, contentDigest, size, nil
}

// checkDuplicate 内容摘要全局查重. 错误消息保持泛化，不暴露既有副本的属主.
func (s *FileService) checkDuplicate(ctx context.Context, contentDigest string) error {
	if s.digestExists(ctx, contentDigest) {
		return apperrors.NewConflict("identical content already stored")
	}

	return nil
}

func (s *FileService) digestExists(ctx context.Context, contentDigest string) bool {
	var count int64

	err := s.dbClient.WithContext(ctx).
		Model(&model.File{}).
		Where("digest = ?", contentDigest).
		Count(&count).Error

	return err == nil && count > 0
}

// checkNameTaken 属主内文件名查重.
func (s *FileService) checkNameTaken(ctx context.Context, ownerID, fileName string) error {
	var count int64

	err := s.dbClient.WithContext(ctx).
		Model(&model.File{}).
		Where("owner_id = ? AND name = ?", ownerID, fileName).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check name: %w", err)
	}

	if count > 0 {
		return apperrors.NewConflict("file %q already exists", fileName)
	}

	return nil
}

// warnIfNearFull 用量达到告警阈值时发布存储告警事件.
func (s *FileService) warnIfNearFull(ctx context.Context, ownerID string, limits Limits, storageUsed int64) {
	if limits.StorageLimit <= 0 {
		return
	}

	ratio := float64(storageUsed) / float64(limits.StorageLimit)
	if ratio < storageFullThreshold {
		return
	}

	events.Publish(ctx, s.mqClient, events.TopicStorageFull, events.StorageFullPayload{
		OwnerID:      ownerID,
		StorageUsed:  storageUsed,
		StorageLimit: limits.StorageLimit,
		UsageRatio:   ratio,
	})
}

// fileRef 构造事件中的文件引用.
func fileRef(f *model.File) events.FileRef {
	return events.FileRef{
		OwnerID:     f.OwnerID,
		Name:        f.Name,
		Size:        f.Size,
		Digest:      f.Digest,
		StoragePath: f.StoragePath,
		Permission:  f.Permission,
	}
}

// fileInfo 构造元数据视图.
func fileInfo(f *model.File) types.FileInfo {
	return types.FileInfo{
		ID:          f.ID,
		Name:        f.Name,
		Size:        f.Size,
		SizeHuman:   FormatBytes(f.Size),
		Digest:      f.Digest,
		Permission:  f.Permission,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
