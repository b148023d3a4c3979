package events

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 标识一个已存储的文件.
type FileRef struct {
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Size        int64  `json:"size,omitempty"`
	Digest      string `json:"digest,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
	Permission  string `json:"permission,omitempty"`
}

// FileStoredPayload 文件写入完成.
type FileStoredPayload struct {
	File FileRef `json:"file"`
}

// FileDeletedPayload 文件删除完成.
type FileDeletedPayload struct {
	File FileRef `json:"file"`
	// BytesReleased 释放的存储量（字节）.
	BytesReleased int64 `json:"bytes_released"`
}

// FileRenamedPayload 文件改名完成.
type FileRenamedPayload struct {
	File    FileRef `json:"file"`
	OldName string  `json:"old_name"`
}

// FileUpdatedPayload 文件属性更新.
type FileUpdatedPayload struct {
	File FileRef `json:"file"`
}

// MembershipChangedPayload 订阅创建/升级/续期.
type MembershipChangedPayload struct {
	OwnerID   string     `json:"owner_id"`
	LevelCode string     `json:"level_code"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"` // nil 表示永久
}

// MembershipExpiredPayload 订阅到期被停用.
type MembershipExpiredPayload struct {
	OwnerID   string    `json:"owner_id"`
	LevelCode string    `json:"level_code"`
	ExpiredAt time.Time `json:"expired_at"`
}

// StorageFullPayload 属主存储接近或达到上限.
type StorageFullPayload struct {
	OwnerID      string  `json:"owner_id"`
	StorageUsed  int64   `json:"storage_used"`
	StorageLimit int64   `json:"storage_limit"`
	UsageRatio   float64 `json:"usage_ratio"`
}
