package janitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/metrics"
	"github.com/3Eeeecho/go-pan/internal/pkg/storage"
	"github.com/3Eeeecho/go-pan/internal/repositories"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrAlreadyRunning = errors.New("cleanup already in progress")

// Report 一次清理的结果
type Report struct {
	StagingRemoved int
	SharesPurged   int64
}

// Janitor 定时清理暂存区残留文件和失效的分享链接
type Janitor struct {
	storage   storage.StorageService
	shareRepo repositories.ShareRepository
	metrics   *metrics.Metrics
	cfg       config.JanitorConfig

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

func NewJanitor(ss storage.StorageService, shareRepo repositories.ShareRepository, m *metrics.Metrics, cfg config.JanitorConfig) *Janitor {
	return &Janitor{
		storage:   ss,
		shareRepo: shareRepo,
		metrics:   m,
		cfg:       cfg,
		cron:      cron.New(),
	}
}

// RunOnce 同步执行一轮清理，上一轮未结束时返回 ErrAlreadyRunning
func (j *Janitor) RunOnce(ctx context.Context) (Report, error) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return Report{}, ErrAlreadyRunning
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	var report Report
	removed, err := j.storage.SweepStaging(j.cfg.StagingTTL)
	report.StagingRemoved = removed
	j.metrics.ObserveJanitor("staging", removed)
	if err != nil {
		return report, fmt.Errorf("failed to sweep staging area: %w", err)
	}

	if j.cfg.PurgeOrphanShares {
		purged, err := j.shareRepo.DeleteOrphans(ctx)
		if err != nil {
			return report, err
		}
		report.SharesPurged = purged
		j.metrics.ObserveJanitor("orphan_share", int(purged))
	}

	logger.Info("RunOnce: cleanup finished",
		zap.Int("stagingRemoved", report.StagingRemoved),
		zap.Int64("sharesPurged", report.SharesPurged))
	return report, nil
}

// Start 按配置的 cron 表达式调度清理任务
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.cfg.Schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			logger.Error("Janitor: scheduled cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.cfg.Schedule, err)
	}
	j.cron.Start()
	logger.Info("Janitor: scheduled", zap.String("schedule", j.cfg.Schedule))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("Janitor: stop timed out while a cleanup was running")
	}
}
