package rate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps counters as Redis keys that expire with their window.
type RedisCounter struct {
	redis redis.UniversalClient
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{redis: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// Fixed window: only the first hit sets the TTL.
	if count == 1 {
		if err := c.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func (c *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	count, err := c.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (c *RedisCounter) Del(ctx context.Context, keys ...string) error {
	return c.redis.Del(ctx, keys...).Err()
}

type window struct {
	count   int64
	expires time.Time
}

// MemoryCounter is a process-local Counter for single-instance deployments.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

// NewMemoryCounter uses now as its clock; nil means time.Now.
func NewMemoryCounter(now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{windows: make(map[string]window), now: now}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok || !now.Before(w.expires) {
		w = window{expires: now.Add(ttl)}
	}
	w.count++
	c.windows[key] = w

	// Opportunistic sweep keeps the map bounded by live windows.
	if len(c.windows) > 4096 {
		for k, v := range c.windows {
			if !now.Before(v.expires) {
				delete(c.windows, k)
			}
		}
	}
	return w.count, nil
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok || !now.Before(w.expires) {
		return 0, nil
	}
	return w.count, nil
}

func (c *MemoryCounter) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.windows, k)
	}
	return nil
}
