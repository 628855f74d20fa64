package models

import "time"

// StoreEntry 匿名购物车本地存储条目
type StoreEntry struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	Key       string     `gorm:"uniqueIndex;size:191;not null" json:"key"` // 存储键（例如 cart:<session-id>）
	Value     string     `gorm:"type:text;not null" json:"-"`              // JSON 文本
	Size      int64      `gorm:"not null;default:0" json:"size"`           // 占用字节数
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`        // 过期时间，为空表示不过期
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (StoreEntry) TableName() string {
	return "local_store_entries"
}

// Expired 是否已过期
func (e StoreEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}
