package utils

import (
	"github.com/gin-gonic/gin"
)

// ContextActorKey 认证中间件写入 gin 上下文的身份键
const ContextActorKey = "username"

// ActorFromContext 取出认证中间件写入的操作者身份
func ActorFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextActorKey)
	if !exists {
		return "", false
	}
	actor, ok := v.(string)
	return actor, ok && actor != ""
}
