package model

import (
	"time"
)

// User 属主账户. 鉴权由外部网关完成，这里只保留展示所需的最小信息.
type User struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	OwnerID   string    `gorm:"size:255;uniqueIndex" json:"owner_id"`
	Username  string    `gorm:"size:255;index"       json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
