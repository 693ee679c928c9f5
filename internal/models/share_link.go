package models

import (
	"time"
)

// ShareLink 对应 share_links 表
// EntryID 不建立外键约束：条目被删除后分享记录保留，解析时返回"内容已删除"
type ShareLink struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ShareKey      string     `gorm:"type:varchar(16);uniqueIndex;not null" json:"share_key"`
	EntryID       uint64     `gorm:"not null;index" json:"entry_id"`
	PasswordHash  *string    `gorm:"type:varchar(255);default:null" json:"-"` // bcrypt 哈希，不输出到 JSON
	ExpiresAt     *time.Time `gorm:"default:null" json:"expires_at"`
	AllowDownload bool       `gorm:"not null" json:"allow_download"`
	AllowDelete   bool       `gorm:"not null" json:"allow_delete"` // 仅存储，暂无行为
	CreatedBy     string     `gorm:"type:varchar(64);not null;index" json:"created_by"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	HasPassword bool `gorm:"-" json:"has_password"`
}

// TableName 指定 GORM 使用的表名
func (ShareLink) TableName() string {
	return "share_links"
}

// IsExpired 判断分享在 now 时刻是否已过期，ExpiresAt 为空表示永不过期
func (s *ShareLink) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// RequiresPassword 判断分享是否设置了密码
func (s *ShareLink) RequiresPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}
