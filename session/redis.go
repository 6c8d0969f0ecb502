package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis as binary records under prefix+id.
// Records carry their own expiry; the key TTL only reclaims memory.
type RedisStore[In, U any] struct {
	redis   redis.UniversalClient
	project func(In) U
	opts    options
}

// NewRedisStore wraps an existing client. The client is owned by the caller.
func NewRedisStore[In, U any](client redis.UniversalClient, project func(In) U, opts ...Option) *RedisStore[In, U] {
	return &RedisStore[In, U]{
		redis:   client,
		project: project,
		opts:    applyOptions(opts),
	}
}

func (s *RedisStore[In, U]) key(sessionID string) string {
	return s.opts.prefix + sessionID
}

func (s *RedisStore[In, U]) Create(ctx context.Context, in In) (string, error) {
	if s.project == nil {
		return "", ErrNoProjection
	}

	payload, err := s.opts.codec.Marshal(s.project(in))
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	now := s.opts.now()
	data, err := encodeRecord(record{
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: s.opts.expiry(now),
	})
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		id, err := s.opts.newID()
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}

		ok, err := s.redis.SetNX(ctx, s.key(id), data, s.opts.ttl).Result()
		if err != nil {
			return "", unavailable(err)
		}
		if ok {
			return id, nil
		}
	}

	return "", ErrIDCollision
}

func (s *RedisStore[In, U]) Verify(ctx context.Context, sessionID string) (U, bool, error) {
	var zero U

	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, unavailable(err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return zero, false, err
	}
	if rec.expired(s.opts.now()) {
		return zero, false, nil
	}

	u, err := decodeUser[U](s.opts.codec, rec.Payload)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return u, true, nil
}

func (s *RedisStore[In, U]) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// EstimateActive counts keys under the store prefix with SCAN. The count is
// approximate while sessions are being created or deleted.
func (s *RedisStore[In, U]) EstimateActive(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	pattern := s.opts.prefix + "*"

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			return 0, unavailable(err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// Ping measures one round trip to Redis.
func (s *RedisStore[In, U]) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}
