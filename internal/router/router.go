package router

import (
	"net/http"

	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/handlers"
	"github.com/3Eeeecho/go-pan/internal/middlewares"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart 边界、表单字段等额外开销的余量
const multipartSlack = 64 << 10

// RouterConfig 包含初始化路由所需的所有依赖
type RouterConfig struct {
	cfg          *config.Config
	fileHandler  *handlers.FileHandler
	shareHandler *handlers.ShareHandler
	metrics      *metrics.Metrics
}

func NewRouterConfig(cfg *config.Config, fileHandler *handlers.FileHandler, shareHandler *handlers.ShareHandler, m *metrics.Metrics) *RouterConfig {
	return &RouterConfig{
		cfg:          cfg,
		fileHandler:  fileHandler,
		shareHandler: shareHandler,
		metrics:      m,
	}
}

func InitRouter(routerCfg *RouterConfig) *gin.Engine {
	cfg := routerCfg.cfg
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(middlewares.RequestLogger(), middlewares.Recovery())
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("InitRouter: invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	// multipart 超出内存阈值的部分由 net/http 写入临时文件
	router.MaxMultipartMemory = 8 << 20

	// Health Check 路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if cfg.Metrics.Enabled && routerCfg.metrics != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(routerCfg.metrics.Handler()))
	}

	// 公开访问的分享路由
	shares := routerCfg.shareHandler
	router.GET("/public/shares", shares.ListPublicShares)
	router.GET("/s/:key", shares.ViewShare)
	router.GET("/s/:key/download", shares.DownloadShared)

	v1 := router.Group("/api/v1")
	authenticated := v1.Group("/")
	authenticated.Use(middlewares.AuthMiddleware(&cfg.JWT))

	files := routerCfg.fileHandler
	fileGroup := authenticated.Group("/files")
	{
		fileGroup.GET("", files.ListFiles)
		fileGroup.POST("/folder", files.CreateFolder)
		fileGroup.POST("/upload", middlewares.BodyLimit(cfg.Server.MaxUploadBytes()+multipartSlack), files.UploadFile)
		fileGroup.GET("/check", files.CheckDigest)
		fileGroup.GET("/:id/download", files.DownloadFile)
		fileGroup.DELETE("/:id", files.DeleteEntry)
	}

	shareGroup := authenticated.Group("/shares")
	{
		shareGroup.POST("", shares.CreateShare)
		shareGroup.GET("/my", shares.ListMyShares)
		shareGroup.PUT("/:id", shares.UpdateShare)
		shareGroup.DELETE("/:id", shares.DeleteShare)
	}

	return router
}
