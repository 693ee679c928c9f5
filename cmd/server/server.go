package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/handlers"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/metrics"
	"github.com/3Eeeecho/go-pan/internal/repositories"
	"github.com/3Eeeecho/go-pan/internal/router"
	"github.com/3Eeeecho/go-pan/internal/services/explorer"
	"github.com/3Eeeecho/go-pan/internal/services/janitor"
	"github.com/3Eeeecho/go-pan/internal/services/share"
	"github.com/3Eeeecho/go-pan/internal/setup"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	httpServer *http.Server
	db         *gorm.DB
	closeCache func()
	janitor    *janitor.Janitor
}

// NewServer 负责构建所有依赖
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	// 初始化数据库连接
	db, err := setup.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Redis 未启用时使用进程内缓存
	attempts, closeCache, err := setup.InitCache(ctx, &cfg.Redis)
	if err != nil {
		setup.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	ss, err := setup.InitStorage(&cfg.Storage)
	if err != nil {
		closeCache()
		setup.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	//  初始化 Repositories
	entryRepo := repositories.NewEntryRepository(db)
	shareRepo := repositories.NewShareRepository(db)

	//  初始化 Services
	tm := explorer.NewTransactionManager(db)
	treeService := explorer.NewTreeService(entryRepo, tm, ss, m)
	uploadService := explorer.NewUploadService(entryRepo, tm, ss, m, cfg.Server.MaxUploadBytes())
	shareService := share.NewShareService(shareRepo, entryRepo, ss, attempts, m, cfg.Share)

	//  初始化 Handlers
	fileHandler := handlers.NewFileHandler(treeService, uploadService)
	shareHandler := handlers.NewShareHandler(shareService)

	engine := router.InitRouter(router.NewRouterConfig(cfg, fileHandler, shareHandler, m))

	s := &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		db:         db,
		closeCache: closeCache,
	}
	if cfg.Janitor.Enabled {
		s.janitor = janitor.NewJanitor(ss, shareRepo, m, cfg.Janitor)
	}
	return s, nil
}

// Run 启动 HTTP 服务器与清理任务，收到停止信号后优雅关机
func (s *Server) Run(stopChan <-chan os.Signal) error {
	defer s.closeCache()
	defer setup.CloseDatabase(s.db)

	if s.janitor != nil {
		if err := s.janitor.Start(); err != nil {
			return err
		}
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server is running", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// 等待停止信号或启动失败
	select {
	case sig := <-stopChan:
		logger.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-errChan:
		return fmt.Errorf("server failed to start: %w", err)
	}

	// 优雅关机
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.janitor != nil {
		s.janitor.Stop(shutdownCtx)
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited gracefully")
	return nil
}

// Sweep 同步执行一轮清理，不启动 HTTP 服务
func Sweep(ctx context.Context, cfg *config.Config) (janitor.Report, error) {
	db, err := setup.InitDatabase(&cfg.Database)
	if err != nil {
		return janitor.Report{}, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer setup.CloseDatabase(db)

	ss, err := setup.InitStorage(&cfg.Storage)
	if err != nil {
		return janitor.Report{}, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return janitor.NewJanitor(ss, repositories.NewShareRepository(db), nil, cfg.Janitor).RunOnce(ctx)
}
