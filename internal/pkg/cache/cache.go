package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("缓存未命中,key不存在")

// Cache 带过期时间的计数存储
// 用于分享密码尝试次数等需要跨请求、可外部过期的状态
type Cache interface {
	// Incr 将 key 加一并返回新值，key 首次出现时设置过期时间 ttl
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// TTL 返回 key 的剩余存活时间，key 不存在时返回 ErrCacheMiss
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Del 删除一个或多个 key
	Del(ctx context.Context, keys ...string) error
}

func ShareAttemptKey(shareKey, client string) string {
	return "share:attempts:" + shareKey + ":" + client
}
