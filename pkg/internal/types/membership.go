package types

import "time"

// MembershipLevelInfo 会员等级视图.
type MembershipLevelInfo struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	StorageLimit      int64  `json:"storage_limit"`
	StorageLimitHuman string `json:"storage_limit_human"`
	MaxFileSize       int64  `json:"max_file_size"`
	MaxFileSizeHuman  string `json:"max_file_size_human"`
	MaxFileCount      int64  `json:"max_file_count"`
	Priority          int    `json:"priority"`
	PriceMonthly      int64  `json:"price_monthly"`
	// -1 表示永久
	DurationDays int `json:"duration_days"`
}

// ListLevelsResponse 等级列表.
type ListLevelsResponse struct {
	Levels []MembershipLevelInfo `json:"levels"`
}

// SubscribeRequest 订阅/升级请求.
type SubscribeRequest struct {
	LevelCode string `binding:"required" json:"level_code" rule:"required,max=64"`
}

// MembershipInfo 属主当前会员状态视图.
type MembershipInfo struct {
	LevelCode string    `json:"level_code"`
	LevelName string    `json:"level_name"`
	StartDate time.Time `json:"start_date"`
	// 到期时间为空表示永久，文案渲染为 "永久"
	EndDate     *time.Time `json:"end_date,omitempty"`
	EndDateText string     `json:"end_date_text"`
	Active      bool       `json:"active"`
}
