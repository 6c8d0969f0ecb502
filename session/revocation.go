package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryRevocationList keeps revoked jtis in process memory. Entries past
// their expiry are pruned on Revoke.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList honours WithClock; other options are ignored.
func NewMemoryRevocationList(opts ...Option) *MemoryRevocationList {
	o := applyOptions(opts)
	return &MemoryRevocationList{
		revoked: make(map[string]time.Time),
		now:     o.now,
	}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, until time.Time) error {
	if jti == "" {
		return errEmptyJTI
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, exp := range l.revoked {
		if !now.Before(exp) {
			delete(l.revoked, id)
		}
	}
	if now.Before(until) {
		l.revoked[jti] = until
	}
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.RLock()
	until, ok := l.revoked[jti]
	l.mu.RUnlock()

	return ok && l.now().Before(until), nil
}

// Len returns the number of tracked revocations.
func (l *MemoryRevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.revoked)
}

// RedisRevocationList stores revoked jtis as keys that expire with the token,
// so every process sharing the Redis sees the same revocations.
type RedisRevocationList struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRevocationList honours WithPrefix (default "gs:revoked:") and WithClock.
func NewRedisRevocationList(client redis.UniversalClient, opts ...Option) *RedisRevocationList {
	o := defaultOptions()
	o.prefix = "gs:revoked:"
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &RedisRevocationList{
		redis:  client,
		prefix: o.prefix,
		now:    o.now,
	}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return errEmptyJTI
	}
	ttl := until.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.redis.Set(ctx, l.prefix+jti, 1, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.redis.Exists(ctx, l.prefix+jti).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}
