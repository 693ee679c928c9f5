package repositories

import (
	"context"

	"github.com/3Eeeecho/go-pan/internal/models"
)

// EntryRepository 定义了目录树条目的数据访问接口
type EntryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	FindByID(ctx context.Context, id uint64) (*models.Entry, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]models.Entry, error)
	// FindByParent 按"文件夹在前，创建时间倒序"返回直接子条目，parentID 为 nil 表示根目录
	FindByParent(ctx context.Context, parentID *uint64) ([]models.Entry, error)
	FindChildByName(ctx context.Context, parentID *uint64, name string) (*models.Entry, error)
	FindChildDir(ctx context.Context, parentID uint64, name string) (*models.Entry, error)
	ExistsChildName(ctx context.Context, parentID *uint64, name string) (bool, error)
	FindByDigest(ctx context.Context, digest string) (*models.Entry, error)
	Delete(ctx context.Context, id uint64) error
}
