// Package model 定义持久化模型.
package model

import (
	"time"
)

// File 文件元数据模型. 物理字节由 blob 存储持有，这里只记录指向它的路径.
type File struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// 属主标识，文件名在属主下唯一
	OwnerID string `gorm:"size:255;index:idx_owner_name,unique;index" json:"owner_id"`
	Name    string `gorm:"size:512;index:idx_owner_name,unique"       json:"name"`
	Size    int64  `gorm:"index"                                      json:"size"`
	// 内容摘要（SHA-256 hex），全局唯一，承担内容级去重
	Digest string `gorm:"size:64;uniqueIndex" json:"digest"`
	// blob 存储内的定位键
	StoragePath string `gorm:"size:1024" json:"storage_path"`
	// private 仅属主可见，public 所有人可见
	Permission  string    `gorm:"size:16;index;default:private" json:"permission"`
	Description string    `gorm:"type:text"                     json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// 可见性取值.
const (
	PermissionPrivate = "private"
	PermissionPublic  = "public"
)
