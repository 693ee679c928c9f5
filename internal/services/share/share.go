package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/models"
	"github.com/3Eeeecho/go-pan/internal/pkg/cache"
	"github.com/3Eeeecho/go-pan/internal/pkg/filetype"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/metrics"
	"github.com/3Eeeecho/go-pan/internal/pkg/storage"
	"github.com/3Eeeecho/go-pan/internal/pkg/utils"
	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"github.com/3Eeeecho/go-pan/internal/repositories"
	"github.com/3Eeeecho/go-pan/internal/services/explorer"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CreateRequest 创建分享的参数
type CreateRequest struct {
	EntryID       uint64
	Password      string // 空串表示不设密码
	ExpiresIn     string
	AllowDownload *bool // nil 表示默认允许下载
	AllowDelete   bool
}

// UpdateRequest 更新分享的参数，nil 字段保持不变
type UpdateRequest struct {
	Password      *string // 空串清除密码
	ExpiresIn     *string
	AllowDownload *bool
}

// Access 访问分享时调用方提供的信息
type Access struct {
	Password string
	Client   string // 客户端标识，用于统计密码尝试次数
}

// ShareView 一次分享解析的结果
type ShareView struct {
	Share       *models.ShareLink `json:"share"`
	Root        *models.Entry     `json:"root"`
	Current     *models.Entry     `json:"current"`
	IsFile      bool              `json:"is_file"`
	Breadcrumbs []models.Entry    `json:"breadcrumbs"`
	Children    []models.Entry    `json:"children"`
}

// PublicShare 公开分享列表中的一项
type PublicShare struct {
	Share *models.ShareLink `json:"share"`
	Entry *models.Entry     `json:"entry"`
}

// ShareService 定义了分享链接的管理与解析
type ShareService interface {
	CreateShare(ctx context.Context, actor string, req CreateRequest) (*models.ShareLink, error)
	UpdateShare(ctx context.Context, actor string, id uint64, req UpdateRequest) (*models.ShareLink, error)
	DeleteShare(ctx context.Context, actor string, id uint64) error
	// Resolve 按 分享码 -> 过期 -> 密码 -> 目标条目 -> 路径 的顺序解析分享
	Resolve(ctx context.Context, key string, segments []string, access Access) (*ShareView, error)
	// DownloadShared 返回分享中可下载的文件条目，文件夹分享需要给出直接子文件名
	DownloadShared(ctx context.Context, key string, segments []string, name string, access Access) (*models.Entry, error)
	ListByCreator(ctx context.Context, actor string) ([]models.ShareLink, error)
	ListPublicShares(ctx context.Context) ([]PublicShare, error)
}

type shareService struct {
	shareRepo repositories.ShareRepository
	entryRepo repositories.EntryRepository
	storage   storage.StorageService
	attempts  cache.Cache
	metrics   *metrics.Metrics
	cfg       config.ShareConfig

	now      func() time.Time
	newKey   func() (string, error)
	hashCost int
}

// NewShareService 创建 ShareService，attempts 为 nil 时不限制密码尝试次数
func NewShareService(shareRepo repositories.ShareRepository, entryRepo repositories.EntryRepository, ss storage.StorageService, attempts cache.Cache, m *metrics.Metrics, cfg config.ShareConfig) ShareService {
	return &shareService{
		shareRepo: shareRepo,
		entryRepo: entryRepo,
		storage:   ss,
		attempts:  attempts,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
		newKey:    RandomKey,
		hashCost:  bcrypt.DefaultCost,
	}
}

func (s *shareService) hash(password string) (*string, error) {
	if password == "" {
		return nil, nil
	}
	h, err := utils.HashPassword(password, s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("share password: %w", xerr.ErrInvalidParams)
		}
		return nil, fmt.Errorf("failed to hash share password: %w", err)
	}
	return &h, nil
}

// uniqueKey 最多尝试 maxKeyRetries 次，唯一索引兜底并发冲突
func (s *shareService) uniqueKey(ctx context.Context) (string, error) {
	for i := 0; i < maxKeyRetries; i++ {
		key, err := s.newKey()
		if err != nil {
			return "", err
		}
		exists, err := s.shareRepo.ExistsByKey(ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
		logger.Debug("uniqueKey: share key collision", zap.Int("attempt", i+1))
	}
	return "", xerr.ErrShareKeyExhausted
}

func (s *shareService) CreateShare(ctx context.Context, actor string, req CreateRequest) (*models.ShareLink, error) {
	if _, err := s.entryRepo.FindByID(ctx, req.EntryID); err != nil {
		return nil, err
	}
	expiresAt, err := ExpiresAt(req.ExpiresIn, s.now())
	if err != nil {
		return nil, err
	}
	passwordHash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	key, err := s.uniqueKey(ctx)
	if err != nil {
		logger.Error("CreateShare: failed to generate share key", zap.Uint64("entryID", req.EntryID), zap.Error(err))
		return nil, err
	}

	allowDownload := true
	if req.AllowDownload != nil {
		allowDownload = *req.AllowDownload
	}
	share := &models.ShareLink{
		ShareKey:      key,
		EntryID:       req.EntryID,
		PasswordHash:  passwordHash,
		ExpiresAt:     expiresAt,
		AllowDownload: allowDownload,
		AllowDelete:   req.AllowDelete,
		CreatedBy:     actor,
	}
	if err := s.shareRepo.Create(ctx, share); err != nil {
		return nil, err
	}
	share.HasPassword = share.RequiresPassword()

	logger.Info("CreateShare: share created",
		zap.Uint64("shareID", share.ID),
		zap.Uint64("entryID", share.EntryID),
		zap.Bool("password", share.HasPassword),
		zap.String("actor", actor))
	return share, nil
}

// owned 加载分享并校验操作者是创建者
func (s *shareService) owned(ctx context.Context, actor string, id uint64) (*models.ShareLink, error) {
	share, err := s.shareRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if share.CreatedBy != actor {
		logger.Warn("owned: share belongs to another user",
			zap.Uint64("shareID", id), zap.String("actor", actor), zap.String("owner", share.CreatedBy))
		return nil, fmt.Errorf("share %d: %w", id, xerr.ErrPermissionDenied)
	}
	return share, nil
}

func (s *shareService) UpdateShare(ctx context.Context, actor string, id uint64, req UpdateRequest) (*models.ShareLink, error) {
	share, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.ExpiresIn != nil {
		expiresAt, err := ExpiresAt(*req.ExpiresIn, s.now())
		if err != nil {
			return nil, err
		}
		share.ExpiresAt = expiresAt
	}
	if req.Password != nil {
		passwordHash, err := s.hash(*req.Password)
		if err != nil {
			return nil, err
		}
		share.PasswordHash = passwordHash
	}
	if req.AllowDownload != nil {
		share.AllowDownload = *req.AllowDownload
	}
	if err := s.shareRepo.Update(ctx, share); err != nil {
		return nil, err
	}
	share.HasPassword = share.RequiresPassword()
	logger.Info("UpdateShare: share updated", zap.Uint64("shareID", id), zap.String("actor", actor))
	return share, nil
}

func (s *shareService) DeleteShare(ctx context.Context, actor string, id uint64) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.shareRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("DeleteShare: share deleted", zap.Uint64("shareID", id), zap.String("actor", actor))
	return nil
}

func (s *shareService) Resolve(ctx context.Context, key string, segments []string, access Access) (*ShareView, error) {
	view, err := s.resolve(ctx, key, segments, access)
	outcome := "ok"
	if err != nil {
		outcome = xerr.KindOf(err).String()
	}
	s.metrics.ObserveShareResolution(outcome)
	return view, err
}

func (s *shareService) resolve(ctx context.Context, key string, segments []string, access Access) (*ShareView, error) {
	share, err := s.shareRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if share.IsExpired(s.now()) {
		return nil, fmt.Errorf("share %s: %w", key, xerr.ErrShareExpired)
	}
	if err := s.checkPassword(ctx, share, access); err != nil {
		return nil, err
	}

	root, err := s.entryRepo.FindByID(ctx, share.EntryID)
	if err != nil {
		if errors.Is(err, xerr.ErrEntryNotFound) {
			return nil, fmt.Errorf("share %s: %w", key, xerr.ErrSharedContentGone)
		}
		return nil, err
	}
	root.IconClass = iconOf(root)

	view := &ShareView{Share: share, Root: root, Current: root}
	if !root.IsDir {
		if len(segments) > 0 {
			return nil, fmt.Errorf("share %s: %w", key, xerr.ErrInvalidSharePath)
		}
		view.IsFile = true
		view.Breadcrumbs = []models.Entry{*root}
		view.Children = []models.Entry{}
		return view, nil
	}

	// 只按名字查找当前节点的子文件夹，路径无法越出分享根目录
	trail := []models.Entry{*root}
	current := root
	for _, name := range segments {
		next, err := s.entryRepo.FindChildDir(ctx, current.ID, name)
		if err != nil {
			if errors.Is(err, xerr.ErrDirectoryNotFound) {
				return nil, fmt.Errorf("share %s: %w", key, xerr.ErrSharePathNotFound)
			}
			return nil, err
		}
		next.IconClass = iconOf(next)
		trail = append(trail, *next)
		current = next
	}

	parentID := current.ID
	children, err := s.entryRepo.FindByParent(ctx, &parentID)
	if err != nil {
		return nil, err
	}
	view.Current = current
	view.Breadcrumbs = trail
	view.Children = explorer.WithIcons(children)
	return view, nil
}

// checkPassword 校验访问密码；开启限流时每次提交密码都计数，校验成功后清零
func (s *shareService) checkPassword(ctx context.Context, share *models.ShareLink, access Access) error {
	if !share.RequiresPassword() {
		return nil
	}
	if access.Password == "" {
		return xerr.ErrSharePasswordRequired
	}

	limited := s.attempts != nil && s.cfg.MaxPasswordAttempts > 0
	attemptKey := cache.ShareAttemptKey(share.ShareKey, access.Client)
	if limited {
		n, err := s.attempts.Incr(ctx, attemptKey, s.cfg.AttemptWindow)
		if err != nil {
			logger.Warn("checkPassword: attempt counter unavailable", zap.String("shareKey", share.ShareKey), zap.Error(err))
		} else if n > int64(s.cfg.MaxPasswordAttempts) {
			logger.Warn("checkPassword: too many password attempts",
				zap.String("shareKey", share.ShareKey), zap.String("client", access.Client), zap.Int64("attempts", n))
			return xerr.ErrTooManyAttempts
		}
	}

	if !utils.CheckPasswordHash(access.Password, *share.PasswordHash) {
		return xerr.ErrSharePasswordIncorrect
	}
	if limited {
		if err := s.attempts.Del(ctx, attemptKey); err != nil {
			logger.Warn("checkPassword: failed to reset attempt counter", zap.String("shareKey", share.ShareKey), zap.Error(err))
		}
	}
	return nil
}

func (s *shareService) DownloadShared(ctx context.Context, key string, segments []string, name string, access Access) (*models.Entry, error) {
	view, err := s.Resolve(ctx, key, segments, access)
	if err != nil {
		return nil, err
	}
	if !view.Share.AllowDownload {
		return nil, fmt.Errorf("share %s: %w", key, xerr.ErrDownloadDisabled)
	}

	target := view.Root
	if !view.IsFile {
		if name == "" {
			return nil, fmt.Errorf("share %s: %w", key, xerr.ErrCannotDownloadFolder)
		}
		parentID := view.Current.ID
		target, err = s.entryRepo.FindChildByName(ctx, &parentID, name)
		if err != nil {
			return nil, err
		}
		if target.IsDir {
			return nil, fmt.Errorf("share %s: %w", key, xerr.ErrCannotDownloadFolder)
		}
	}

	if target.PhysicalPath == "" || !s.storage.Exists(target.PhysicalPath) {
		logger.Warn("DownloadShared: physical file missing", zap.String("shareKey", key), zap.Uint64("entryID", target.ID))
		return nil, fmt.Errorf("share %s: %w", key, xerr.ErrEntryNotFound)
	}
	return target, nil
}

func (s *shareService) ListByCreator(ctx context.Context, actor string) ([]models.ShareLink, error) {
	shares, err := s.shareRepo.FindByCreator(ctx, actor)
	if err != nil {
		return nil, err
	}
	if shares == nil {
		shares = []models.ShareLink{}
	}
	return shares, nil
}

func (s *shareService) ListPublicShares(ctx context.Context) ([]PublicShare, error) {
	shares, err := s.shareRepo.FindPublic(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return []PublicShare{}, nil
	}

	ids := make([]uint64, 0, len(shares))
	for _, sh := range shares {
		ids = append(ids, sh.EntryID)
	}
	entries, err := s.entryRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*models.Entry, len(entries))
	for i := range entries {
		entries[i].IconClass = iconOf(&entries[i])
		byID[entries[i].ID] = &entries[i]
	}

	out := make([]PublicShare, 0, len(shares))
	for i := range shares {
		entry, ok := byID[shares[i].EntryID]
		if !ok {
			continue
		}
		out = append(out, PublicShare{Share: &shares[i], Entry: entry})
	}
	return out, nil
}

func iconOf(e *models.Entry) string {
	return filetype.EntryIcon(e.IsDir, e.Extension)
}
