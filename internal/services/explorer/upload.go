package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

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

// 上传结果，用作指标标签
const (
	UploadOK           = "ok"
	UploadTooLarge     = "too_large"
	UploadHashMismatch = "hash_mismatch"
	UploadFailed       = "error"
)

// UploadRequest 一次文件上传
type UploadRequest struct {
	Reader       io.Reader
	Name         string
	ParentID     *uint64
	ClientDigest string
	Actor        string
}

type UploadService interface {
	// SaveFile 暂存、校验摘要并归档上传内容，成功后返回新条目
	SaveFile(ctx context.Context, req UploadRequest) (*models.Entry, error)
	// DownloadTarget 返回可下载文件条目，物理文件缺失时返回 ErrEntryNotFound
	DownloadTarget(ctx context.Context, id uint64) (*models.Entry, error)
	// FindByDigest 按内容摘要查找已有文件，用于秒传检查
	FindByDigest(ctx context.Context, digest string) (*models.Entry, error)
}

type uploadService struct {
	entryRepo repositories.EntryRepository
	tm        TransactionManager
	storage   storage.StorageService
	metrics   *metrics.Metrics
	maxBytes  int64
}

func NewUploadService(entryRepo repositories.EntryRepository, tm TransactionManager, ss storage.StorageService, m *metrics.Metrics, maxBytes int64) UploadService {
	return &uploadService{
		entryRepo: entryRepo,
		tm:        tm,
		storage:   ss,
		metrics:   m,
		maxBytes:  maxBytes,
	}
}

func (s *uploadService) SaveFile(ctx context.Context, req UploadRequest) (*models.Entry, error) {
	name := storage.SanitizeName(req.Name)
	if name == "" {
		return nil, fmt.Errorf("SaveFile: %w", xerr.ErrFileNameInvalid)
	}
	if req.Reader == nil {
		return nil, fmt.Errorf("SaveFile: missing content: %w", xerr.ErrInvalidParams)
	}

	// 先做一次无锁的父目录检查，避免为注定失败的请求写暂存文件
	if _, err := resolveFolder(ctx, s.entryRepo, s.storage.Root(), req.ParentID, xerr.ErrTargetNotFolder); err != nil {
		return nil, err
	}

	staged, err := s.storage.Stage(req.Reader, s.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			s.metrics.ObserveUpload(UploadTooLarge, 0)
			logger.Warn("SaveFile: upload exceeds limit", zap.String("name", name), zap.Int64("limit", s.maxBytes))
			return nil, fmt.Errorf("SaveFile: %w", xerr.ErrFileTooLarge)
		}
		s.metrics.ObserveUpload(UploadFailed, 0)
		return nil, fmt.Errorf("stage upload: %w: %w", xerr.ErrStorageError, err)
	}
	committed := false
	defer func() {
		if !committed {
			s.storage.Discard(staged.Path)
		}
	}()

	digest, err := s.storage.Digest(staged.Path)
	if err != nil {
		s.metrics.ObserveUpload(UploadFailed, 0)
		return nil, fmt.Errorf("digest upload: %w: %w", xerr.ErrStorageError, err)
	}
	clientDigest := strings.TrimSpace(req.ClientDigest)
	if clientDigest != "" && !strings.EqualFold(clientDigest, digest) {
		s.metrics.ObserveUpload(UploadHashMismatch, 0)
		logger.Warn("SaveFile: digest mismatch",
			zap.String("name", name), zap.String("client", clientDigest), zap.String("server", digest))
		return nil, fmt.Errorf("SaveFile: %w", xerr.ErrHashMismatch)
	}

	var (
		entry     *models.Entry
		finalPath string
	)
	err = s.tm.WithTreeLock(ctx, func(tx *gorm.DB) error {
		repo := repositories.NewEntryRepository(tx)

		// 持锁后重新解析父目录，期间它可能已被删除
		dir, err := resolveFolder(ctx, repo, s.storage.Root(), req.ParentID, xerr.ErrTargetNotFolder)
		if err != nil {
			return err
		}

		path, finalName, err := s.storage.Commit(staged, dir, name, func(candidate string) (bool, error) {
			return repo.ExistsChildName(ctx, req.ParentID, candidate)
		})
		if err != nil {
			if errors.Is(err, storage.ErrNameExhausted) {
				return fmt.Errorf("no free name for %q: %w", name, xerr.ErrEntryAlreadyExists)
			}
			return fmt.Errorf("commit upload: %w: %w", xerr.ErrStorageError, err)
		}
		committed = true
		finalPath = path

		ext := filetype.Extension(finalName)
		entry = &models.Entry{
			Name:            finalName,
			ParentID:        req.ParentID,
			PhysicalPath:    path,
			Size:            uint64(staged.Size),
			Extension:       ext,
			PreviewCategory: filetype.PreviewCategory(ext),
			ContentDigest:   &digest,
			CreatedBy:       req.Actor,
		}
		return repo.Create(ctx, entry)
	})
	if err != nil {
		if finalPath != "" {
			s.storage.Discard(finalPath)
		}
		s.metrics.ObserveUpload(UploadFailed, 0)
		logger.Error("SaveFile: failed to store upload", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	entry.IconClass = filetype.EntryIcon(false, entry.Extension)
	s.metrics.ObserveUpload(UploadOK, staged.Size)
	logger.Info("SaveFile: file stored",
		zap.Uint64("entryID", entry.ID),
		zap.String("name", entry.Name),
		zap.Uint64("size", entry.Size),
		zap.String("actor", req.Actor))
	return entry, nil
}

func (s *uploadService) DownloadTarget(ctx context.Context, id uint64) (*models.Entry, error) {
	entry, err := s.entryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.IsDir {
		return nil, fmt.Errorf("entry %d: %w", id, xerr.ErrCannotDownloadFolder)
	}
	if entry.PhysicalPath == "" || !s.storage.Exists(entry.PhysicalPath) {
		logger.Warn("DownloadTarget: physical file missing", zap.Uint64("entryID", id))
		return nil, fmt.Errorf("file of entry %d missing: %w", id, xerr.ErrEntryNotFound)
	}
	return entry, nil
}

func (s *uploadService) FindByDigest(ctx context.Context, digest string) (*models.Entry, error) {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return nil, fmt.Errorf("FindByDigest: %w", xerr.ErrInvalidParams)
	}
	entry, err := s.entryRepo.FindByDigest(ctx, digest)
	if err != nil {
		return nil, err
	}
	entry.IconClass = filetype.EntryIcon(entry.IsDir, entry.Extension)
	return entry, nil
}
