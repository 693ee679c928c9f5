package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/3Eeeecho/go-pan/internal/models"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListingOrder 所有列表共用的排序：文件夹在前，同组内按创建时间倒序，id 兜底保证稳定
const ListingOrder = "is_dir DESC, created_at DESC, id DESC"

type dbEntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository 创建基于 gorm 的 EntryRepository，传入事务 tx 即得到事务内的仓库
func NewEntryRepository(db *gorm.DB) EntryRepository {
	return &dbEntryRepository{db: db}
}

func byParent(q *gorm.DB, parentID *uint64) *gorm.DB {
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *parentID)
}

func (r *dbEntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Error("Create: failed to insert entry", zap.String("name", entry.Name), zap.Error(err))
		return fmt.Errorf("failed to create entry: %w: %w", xerr.ErrDatabaseError, err)
	}
	return nil
}

func (r *dbEntryRepository) FindByID(ctx context.Context, id uint64) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find entry %d: %w: %w", id, xerr.ErrDatabaseError, err)
	}
	return &entry, nil
}

func (r *dbEntryRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.Entry, error) {
	var entries []models.Entry
	if len(ids) == 0 {
		return entries, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order(ListingOrder).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to find entries: %w: %w", xerr.ErrDatabaseError, err)
	}
	return entries, nil
}

func (r *dbEntryRepository) FindByParent(ctx context.Context, parentID *uint64) ([]models.Entry, error) {
	var entries []models.Entry
	err := byParent(r.db.WithContext(ctx), parentID).Order(ListingOrder).Find(&entries).Error
	if err != nil {
		logger.Error("FindByParent: query failed", zap.Any("parentID", parentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list children: %w: %w", xerr.ErrDatabaseError, err)
	}
	return entries, nil
}

func (r *dbEntryRepository) FindChildByName(ctx context.Context, parentID *uint64, name string) (*models.Entry, error) {
	var entry models.Entry
	err := byParent(r.db.WithContext(ctx), parentID).Where("name = ?", name).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find child by name: %w: %w", xerr.ErrDatabaseError, err)
	}
	return &entry, nil
}

func (r *dbEntryRepository) FindChildDir(ctx context.Context, parentID uint64, name string) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND name = ? AND is_dir = ?", parentID, name, true).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrDirectoryNotFound
		}
		return nil, fmt.Errorf("failed to find child folder: %w: %w", xerr.ErrDatabaseError, err)
	}
	return &entry, nil
}

func (r *dbEntryRepository) ExistsChildName(ctx context.Context, parentID *uint64, name string) (bool, error) {
	var count int64
	err := byParent(r.db.WithContext(ctx).Model(&models.Entry{}), parentID).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check sibling name: %w: %w", xerr.ErrDatabaseError, err)
	}
	return count > 0, nil
}

func (r *dbEntryRepository) FindByDigest(ctx context.Context, digest string) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).
		Where("content_digest = ? AND is_dir = ?", strings.ToLower(digest), false).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find entry by digest: %w: %w", xerr.ErrDatabaseError, err)
	}
	return &entry, nil
}

func (r *dbEntryRepository) Delete(ctx context.Context, id uint64) error {
	if err := r.db.WithContext(ctx).Delete(&models.Entry{}, id).Error; err != nil {
		logger.Error("Delete: failed to delete entry row", zap.Uint64("entryID", id), zap.Error(err))
		return fmt.Errorf("failed to delete entry: %w: %w", xerr.ErrDatabaseError, err)
	}
	return nil
}
