// Package types 定义 API 请求与响应结构.
package types

import "time"

// UploadFileRequest 文件上传表单附带字段（文件本体走 multipart）.
type UploadFileRequest struct {
	Permission  string `form:"permission"  json:"permission,omitempty"  rule:"omitempty,permission"` // 可选：private / public，缺省 private
	Description string `form:"description" json:"description,omitempty" rule:"omitempty,max=1000"`   // 可选：描述
}

// FileInfo 单个文件的元数据视图.
type FileInfo struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	SizeHuman   string    `json:"size_human"` // 人类可读大小，如 1.5 MB
	Digest      string    `json:"digest"`
	Permission  string    `json:"permission"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PublicFileInfo 公开列表中的文件视图，附带属主展示名.
type PublicFileInfo struct {
	FileInfo
	OwnerName string `json:"owner_name"`
}

// ListFilesResponse 属主文件列表.
type ListFilesResponse struct {
	Files []FileInfo `json:"files"`
	Total int64      `json:"total"`
}

// ListPublicFilesResponse 公开文件列表.
type ListPublicFilesResponse struct {
	Files []PublicFileInfo `json:"files"`
	Total int64            `json:"total"`
}

// RenameFileRequest 重命名请求.
type RenameFileRequest struct {
	NewName string `binding:"required" json:"new_name" rule:"required,filename"`
}

// UpdateFileRequest 更新可见性/描述请求.
type UpdateFileRequest struct {
	Permission  *string `json:"permission,omitempty"  rule:"omitempty,permission"`
	Description *string `json:"description,omitempty" rule:"omitempty,max=1000"`
}

// StorageStatsResponse 属主存储用量统计.
type StorageStatsResponse struct {
	LevelCode         string `json:"level_code"`
	LevelName         string `json:"level_name"`
	StorageUsed       int64  `json:"storage_used"`
	StorageLimit      int64  `json:"storage_limit"`
	StorageUsedHuman  string `json:"storage_used_human"`
	StorageLimitHuman string `json:"storage_limit_human"`
	// 用量百分比，保留两位小数
	UsagePercentage float64 `json:"usage_percentage"`
	FileCount       int64   `json:"file_count"`
	MaxFileCount    int64   `json:"max_file_count"`
	MaxFileSize     int64   `json:"max_file_size"`
}
