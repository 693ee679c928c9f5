package middlewares

import (
	"strings"

	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/utils"
	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware 校验 Bearer Token，并把操作者身份写入上下文
func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从请求头获取 Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, xerr.ErrUnauthorized)
			return
		}

		// Token 格式是 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			abort(c, xerr.ErrUnauthorized)
			return
		}

		// 2. 解析和验证 Token
		claims, err := utils.ParseToken(strings.TrimSpace(parts[1]), cfg.SecretKey, cfg.Issuer)
		if err != nil {
			logger.Debug("AuthMiddleware: token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			abort(c, xerr.ErrTokenInvalid)
			return
		}

		// 3. 身份存入上下文，供后续 Handler 使用
		c.Set(utils.ContextActorKey, claims.Username)
		c.Next()
	}
}

func abort(c *gin.Context, err *xerr.CodeError) {
	xerr.Fail(c, err)
	c.Abort()
}

func abortServerError(c *gin.Context) {
	abort(c, xerr.ErrInternalServer)
}
