package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-pan/internal/models"
	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"gorm.io/gorm"
)

type ShareRepository interface {
	Create(ctx context.Context, share *models.ShareLink) error
	FindByKey(ctx context.Context, key string) (*models.ShareLink, error)
	FindByID(ctx context.Context, id uint64) (*models.ShareLink, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	FindByCreator(ctx context.Context, creator string) ([]models.ShareLink, error)
	// FindPublic 返回 now 时刻仍有效、无密码且指向文件的分享
	FindPublic(ctx context.Context, now time.Time) ([]models.ShareLink, error)
	Update(ctx context.Context, share *models.ShareLink) error
	Delete(ctx context.Context, id uint64) error
	// DeleteOrphans 删除目标条目已不存在的分享，返回删除数量
	DeleteOrphans(ctx context.Context) (int64, error)
}

type shareRepository struct {
	db *gorm.DB
}

// NewShareRepository 创建新的shareRepository实例
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) Create(ctx context.Context, share *models.ShareLink) error {
	if err := r.db.WithContext(ctx).Create(share).Error; err != nil {
		return fmt.Errorf("failed to create share link: %w: %w", xerr.ErrDatabaseError, err)
	}
	return nil
}

func (r *shareRepository) first(ctx context.Context, query string, arg any) (*models.ShareLink, error) {
	var share models.ShareLink
	err := r.db.WithContext(ctx).Where(query, arg).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to query share link: %w: %w", xerr.ErrDatabaseError, err)
	}
	share.HasPassword = share.RequiresPassword()
	return &share, nil
}

func (r *shareRepository) FindByKey(ctx context.Context, key string) (*models.ShareLink, error) {
	return r.first(ctx, "share_key = ?", key)
}

func (r *shareRepository) FindByID(ctx context.Context, id uint64) (*models.ShareLink, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *shareRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ShareLink{}).Where("share_key = ?", key).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check share key: %w: %w", xerr.ErrDatabaseError, err)
	}
	return count > 0, nil
}

func markPasswords(shares []models.ShareLink) {
	for i := range shares {
		shares[i].HasPassword = shares[i].RequiresPassword()
	}
}

func (r *shareRepository) FindByCreator(ctx context.Context, creator string) ([]models.ShareLink, error) {
	var shares []models.ShareLink
	err := r.db.WithContext(ctx).Where("created_by = ?", creator).Order("created_at DESC, id DESC").Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w: %w", xerr.ErrDatabaseError, err)
	}
	markPasswords(shares)
	return shares, nil
}

func (r *shareRepository) FindPublic(ctx context.Context, now time.Time) ([]models.ShareLink, error) {
	var shares []models.ShareLink
	err := r.db.WithContext(ctx).
		Select("share_links.*").
		Joins("JOIN entries ON entries.id = share_links.entry_id AND entries.is_dir = ?", false).
		Where("share_links.password_hash IS NULL OR share_links.password_hash = ''").
		Order("entries.created_at DESC, share_links.id DESC").
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list public shares: %w: %w", xerr.ErrDatabaseError, err)
	}
	// 过期判断放在内存里做，避免不同驱动下时间列的比较差异
	active := shares[:0]
	for _, s := range shares {
		if !s.IsExpired(now) {
			active = append(active, s)
		}
	}
	return active, nil
}

// 更新数据库记录
func (r *shareRepository) Update(ctx context.Context, share *models.ShareLink) error {
	if err := r.db.WithContext(ctx).Save(share).Error; err != nil {
		return fmt.Errorf("failed to update share link: %w: %w", xerr.ErrDatabaseError, err)
	}
	return nil
}

func (r *shareRepository) Delete(ctx context.Context, id uint64) error {
	if err := r.db.WithContext(ctx).Delete(&models.ShareLink{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete share link: %w: %w", xerr.ErrDatabaseError, err)
	}
	return nil
}

func (r *shareRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	live := r.db.Model(&models.Entry{}).Select("id")
	res := r.db.WithContext(ctx).Where("entry_id NOT IN (?)", live).Delete(&models.ShareLink{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge orphaned share links: %w: %w", xerr.ErrDatabaseError, res.Error)
	}
	return res.RowsAffected, nil
}
