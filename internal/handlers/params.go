package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/utils"
	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// optionalID 解析可选的 id 参数，空串表示根目录
func optionalID(raw string) (*uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, xerr.ErrInvalidParams
	}
	return &id, nil
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		xerr.Fail(c, xerr.ErrInvalidParams)
		return 0, false
	}
	return id, true
}

// actor 取出当前操作者，缺失时直接返回 401
func actor(c *gin.Context) (string, bool) {
	a, ok := utils.ActorFromContext(c)
	if !ok {
		xerr.AbortWithError(c, xerr.ErrUnauthorized.Kind.HTTPStatus(), xerr.UnauthorizedCode, xerr.ErrUnauthorized.Error())
		return "", false
	}
	return a, true
}

func bindFailed(c *gin.Context, handler string, err error) {
	logger.Debug(handler+": invalid request body", zap.Error(err))
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		xerr.Fail(c, xerr.ErrValidationFailed)
		return
	}
	xerr.Fail(c, xerr.ErrInvalidParams)
}

// fail 渲染错误响应，服务器错误额外记录日志
func fail(c *gin.Context, handler string, err error) {
	if xerr.KindOf(err).HTTPStatus() >= 500 {
		logger.Error(handler+": request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	xerr.Fail(c, err)
}
