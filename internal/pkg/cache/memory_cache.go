package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	count     int64
	expiresAt time.Time // 零值表示永不过期
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryCache 单进程使用的 Cache 实现，Redis 未启用时作为替代
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache 创建内存缓存，sweepEvery > 0 时后台定期清理过期 key
func NewMemoryCache(sweepEvery time.Duration) *MemoryCache {
	c := &MemoryCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.sweepLoop(sweepEvery)
	}
	return c
}

func (c *MemoryCache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}

// Sweep 删除所有已过期的 key，返回删除数量
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, item := range c.items {
		if item.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	item, ok := c.items[key]
	if !ok || item.expired(now) {
		item = memoryItem{}
		if ttl > 0 {
			item.expiresAt = now.Add(ttl)
		}
	}
	item.count++
	c.items[key] = item
	return item.count, nil
}

func (c *MemoryCache) TTL(_ context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	item, ok := c.items[key]
	if !ok || item.expired(now) {
		return 0, ErrCacheMiss
	}
	if item.expiresAt.IsZero() {
		return 0, nil
	}
	return item.expiresAt.Sub(now), nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}
