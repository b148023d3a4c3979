package model

import (
	"time"
)

// MembershipLevel 会员等级定义，限额为静态配置数据.
type MembershipLevel struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// 等级代号，例如 free / basic / pro，全局唯一
	Code string `gorm:"size:64;uniqueIndex" json:"code"`
	Name string `gorm:"size:128"            json:"name"`
	// 总存储容量上限（字节）
	StorageLimit int64 `json:"storage_limit"`
	// 单文件大小上限（字节）
	MaxFileSize int64 `json:"max_file_size"`
	// 文件数量上限
	MaxFileCount int64 `json:"max_file_count"`
	// 展示排序权重，越小越靠前
	Priority int `gorm:"index" json:"priority"`
	// 月价格（分）
	PriceMonthly int64 `json:"price_monthly"`
	// 订阅时长（天），-1 表示永久
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FreeLevelCode 免费档代号. 属主没有任何激活订阅时按该档限额处理.
const FreeLevelCode = "free"

// UserMembership 属主的订阅记录，同时承载付费档的用量账本.
// 免费档属主没有账本行，用量每次从文件表聚合推导.
type UserMembership struct {
	ID      uint   `gorm:"primaryKey"     json:"id"`
	OwnerID string `gorm:"size:255;index" json:"owner_id"`
	LevelID uint   `gorm:"index"          json:"level_id"`
	Level   MembershipLevel `gorm:"foreignKey:LevelID" json:"level"`
	// 已占用存储（字节），随上传/删除增减，绝不为负
	StorageUsed int64 `json:"storage_used"`
	// 已存文件数
	FileCount int64     `json:"file_count"`
	StartDate time.Time `json:"start_date"`
	// 到期时间，NULL 表示永久订阅
	EndDate *time.Time `gorm:"index" json:"end_date"`
	// 同一属主至多一条激活记录
	Active    bool      `gorm:"index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired 判断订阅在 now 时刻是否已过期. 永久订阅永不过期.
func (m *UserMembership) Expired(now time.Time) bool {
	return m.EndDate != nil && m.EndDate.Before(now)
}
