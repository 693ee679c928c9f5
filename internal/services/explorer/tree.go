package explorer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/3Eeeecho/go-pan/internal/models"
	"github.com/3Eeeecho/go-pan/internal/pkg/filetype"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/metrics"
	"github.com/3Eeeecho/go-pan/internal/pkg/storage"
	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"github.com/3Eeeecho/go-pan/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxBreadcrumbDepth 面包屑向上回溯的最大跳数，超过视为目录树损坏
const MaxBreadcrumbDepth = 100

type TreeService interface {
	CreateFolder(ctx context.Context, actor, name string, parentID *uint64) (*models.Entry, error)
	// Get 按 id 查找条目，不存在时返回 xerr.ErrEntryNotFound
	Get(ctx context.Context, id uint64) (*models.Entry, error)
	ListChildren(ctx context.Context, parentID *uint64) ([]models.Entry, error)
	// Breadcrumbs 返回从根到 startID 的祖先链（含自身），startID 为 nil 时返回空链
	Breadcrumbs(ctx context.Context, startID *uint64) ([]models.Entry, error)
	// DeleteRecursive 删除条目及其全部后代，返回删除的条目数；条目不存在时什么也不做
	DeleteRecursive(ctx context.Context, id uint64) (int, error)
}

type treeService struct {
	entryRepo repositories.EntryRepository
	tm        TransactionManager
	storage   storage.StorageService
	metrics   *metrics.Metrics
}

func NewTreeService(entryRepo repositories.EntryRepository, tm TransactionManager, ss storage.StorageService, m *metrics.Metrics) TreeService {
	return &treeService{
		entryRepo: entryRepo,
		tm:        tm,
		storage:   ss,
		metrics:   m,
	}
}

// WithIcons 为列表中的每个条目填充图标分类
func WithIcons(entries []models.Entry) []models.Entry {
	for i := range entries {
		entries[i].IconClass = filetype.EntryIcon(entries[i].IsDir, entries[i].Extension)
	}
	return entries
}

// resolveFolder 解析父目录对应的物理路径，parentID 为 nil 时为存储根目录
// 父条目不存在返回 ErrDirectoryNotFound，父条目是文件返回 notFolder
func resolveFolder(ctx context.Context, repo repositories.EntryRepository, root string, parentID *uint64, notFolder error) (string, error) {
	if parentID == nil {
		return root, nil
	}
	parent, err := repo.FindByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, xerr.ErrEntryNotFound) {
			return "", fmt.Errorf("parent %d: %w", *parentID, xerr.ErrDirectoryNotFound)
		}
		return "", err
	}
	if !parent.IsDir {
		return "", fmt.Errorf("parent %d: %w", *parentID, notFolder)
	}
	if parent.PhysicalPath == "" {
		return "", fmt.Errorf("parent %d has no physical path: %w", *parentID, xerr.ErrTreeCorrupted)
	}
	return parent.PhysicalPath, nil
}

func (s *treeService) CreateFolder(ctx context.Context, actor, name string, parentID *uint64) (*models.Entry, error) {
	clean := storage.SanitizeName(name)
	if clean == "" {
		return nil, fmt.Errorf("CreateFolder: %w", xerr.ErrFileNameInvalid)
	}

	var (
		created *models.Entry
		madeDir string
	)
	err := s.tm.WithTreeLock(ctx, func(tx *gorm.DB) error {
		repo := repositories.NewEntryRepository(tx)

		base, err := resolveFolder(ctx, repo, s.storage.Root(), parentID, xerr.ErrDirectoryNotFound)
		if err != nil {
			return err
		}

		exists, err := repo.ExistsChildName(ctx, parentID, clean)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q: %w", clean, xerr.ErrEntryAlreadyExists)
		}

		dir := filepath.Join(base, clean)
		made, err := s.storage.MakeDir(dir)
		if err != nil {
			return fmt.Errorf("create folder dir: %w: %w", xerr.ErrStorageError, err)
		}
		if made {
			madeDir = dir
		}

		entry := &models.Entry{
			Name:         clean,
			IsDir:        true,
			ParentID:     parentID,
			PhysicalPath: dir,
			CreatedBy:    actor,
		}
		if err := repo.Create(ctx, entry); err != nil {
			return err
		}
		created = entry
		return nil
	})
	if err != nil {
		// 只回滚本次新建的目录
		if madeDir != "" {
			if _, rmErr := s.storage.RemoveDir(madeDir); rmErr != nil {
				logger.Error("CreateFolder: failed to roll back directory", zap.String("dir", madeDir), zap.Error(rmErr))
			}
		}
		logger.Warn("CreateFolder: failed", zap.String("name", clean), zap.Any("parentID", parentID), zap.Error(err))
		return nil, err
	}

	created.IconClass = filetype.FolderIcon
	logger.Info("CreateFolder: folder created", zap.Uint64("entryID", created.ID), zap.String("name", created.Name), zap.String("actor", actor))
	return created, nil
}

func (s *treeService) Get(ctx context.Context, id uint64) (*models.Entry, error) {
	entry, err := s.entryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.IconClass = filetype.EntryIcon(entry.IsDir, entry.Extension)
	return entry, nil
}

func (s *treeService) ListChildren(ctx context.Context, parentID *uint64) ([]models.Entry, error) {
	if parentID != nil {
		if _, err := resolveFolder(ctx, s.entryRepo, s.storage.Root(), parentID, xerr.ErrTargetNotFolder); err != nil {
			return nil, err
		}
	}
	children, err := s.entryRepo.FindByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return WithIcons(children), nil
}

func (s *treeService) Breadcrumbs(ctx context.Context, startID *uint64) ([]models.Entry, error) {
	trail := make([]models.Entry, 0, 8)
	if startID == nil {
		return trail, nil
	}

	seen := make(map[uint64]struct{})
	next := startID
	for next != nil {
		id := *next
		if len(trail) >= MaxBreadcrumbDepth {
			logger.Error("Breadcrumbs: ancestor chain too deep", zap.Uint64("startID", *startID))
			return nil, fmt.Errorf("ancestor chain of %d exceeds %d hops: %w", *startID, MaxBreadcrumbDepth, xerr.ErrTreeCorrupted)
		}
		if _, dup := seen[id]; dup {
			logger.Error("Breadcrumbs: cycle detected", zap.Uint64("startID", *startID), zap.Uint64("entryID", id))
			return nil, fmt.Errorf("cycle at entry %d: %w", id, xerr.ErrTreeCorrupted)
		}
		seen[id] = struct{}{}

		entry, err := s.entryRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, xerr.ErrEntryNotFound) && len(trail) > 0 {
				return nil, fmt.Errorf("dangling parent %d: %w", id, xerr.ErrTreeCorrupted)
			}
			return nil, err
		}
		entry.IconClass = filetype.EntryIcon(entry.IsDir, entry.Extension)
		trail = append(trail, *entry)
		next = entry.ParentID
	}

	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}
	return trail, nil
}

type deleteFrame struct {
	entry    models.Entry
	expanded bool
}

func (s *treeService) DeleteRecursive(ctx context.Context, id uint64) (int, error) {
	removed := 0
	err := s.tm.Locked(func() error {
		root, err := s.entryRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, xerr.ErrEntryNotFound) {
				return nil
			}
			return err
		}

		// 显式栈做后序遍历：文件夹先展开子条目，子条目全部处理完再删除自身
		stack := []deleteFrame{{entry: *root}}
		expanded := make(map[uint64]struct{})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.entry.IsDir && !top.expanded {
				top.expanded = true
				if _, dup := expanded[top.entry.ID]; dup {
					return fmt.Errorf("entry %d reached twice: %w", top.entry.ID, xerr.ErrTreeCorrupted)
				}
				expanded[top.entry.ID] = struct{}{}

				parentID := top.entry.ID
				children, err := s.entryRepo.FindByParent(ctx, &parentID)
				if err != nil {
					return err
				}
				for _, child := range children {
					stack = append(stack, deleteFrame{entry: child})
				}
				continue
			}

			entry := top.entry
			stack = stack[:len(stack)-1]
			if err := s.removeEntry(ctx, &entry); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	s.metrics.ObserveDeleted(removed)
	if err != nil {
		logger.Error("DeleteRecursive: aborted", zap.Uint64("entryID", id), zap.Int("removed", removed), zap.Error(err))
		return removed, err
	}
	if removed > 0 {
		logger.Info("DeleteRecursive: subtree removed", zap.Uint64("entryID", id), zap.Int("removed", removed))
	}
	return removed, nil
}

// removeEntry 先删物理资源再删元数据行，物理资源缺失只记日志
func (s *treeService) removeEntry(ctx context.Context, entry *models.Entry) error {
	if entry.PhysicalPath == "" {
		logger.Warn("DeleteRecursive: entry has no physical path", zap.Uint64("entryID", entry.ID))
	} else {
		var existed bool
		var err error
		if entry.IsDir {
			existed, err = s.storage.RemoveDir(entry.PhysicalPath)
		} else {
			existed, err = s.storage.RemoveFile(entry.PhysicalPath)
		}
		if err != nil {
			return fmt.Errorf("remove physical resource of %d: %w: %w", entry.ID, xerr.ErrStorageError, err)
		}
		if !existed {
			logger.Warn("DeleteRecursive: physical resource already missing",
				zap.Uint64("entryID", entry.ID), zap.Bool("isDir", entry.IsDir))
		}
	}
	return s.entryRepo.Delete(ctx, entry.ID)
}
