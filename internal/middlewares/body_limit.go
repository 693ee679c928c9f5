package middlewares

import (
	"errors"
	"net/http"

	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
)

// BodyLimit 限制请求体大小
// 声明的 Content-Length 超限直接拒绝，未声明长度的请求在读取超过 limit 时报错
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			abort(c, xerr.ErrFileTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// IsBodyTooLarge 判断错误是否来自 BodyLimit 的截断
func IsBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
