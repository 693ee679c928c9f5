package models

import (
	"time"
)

// Entry 对应 entries 表，文件与文件夹共用一张自引用表
type Entry struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null;index:idx_parent_name,priority:2" json:"name"`
	IsDir           bool      `gorm:"not null;default:false" json:"is_dir"`
	ParentID        *uint64   `gorm:"default:null;index:idx_parent_name,priority:1" json:"parent_id"` // 根目录为 null
	PhysicalPath    string    `gorm:"type:varchar(1024);not null" json:"-"`                           // 磁盘上的绝对路径，不输出
	Size            uint64    `gorm:"type:bigint unsigned;not null;default:0" json:"size"`
	Extension       string    `gorm:"type:varchar(255);not null;default:''" json:"extension"`
	PreviewCategory *string   `gorm:"type:varchar(16);default:null" json:"preview_category"`
	ContentDigest   *string   `gorm:"type:varchar(64);default:null;index" json:"-"`
	CreatedBy       string    `gorm:"type:varchar(64);not null;default:''" json:"created_by"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 展示用的图标分类，不落库
	IconClass string `gorm:"-" json:"icon"`
}

// TableName 指定 GORM 使用的表名
func (Entry) TableName() string {
	return "entries"
}
