package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// backend is an opened session store plus what the server needs to probe and
// release it.
type backend struct {
	store goSession.Store[User, User]
	ping  func(ctx context.Context) (time.Duration, error)
	// redis is set when the store talks to Redis; the login throttle shares it.
	redis   redis.UniversalClient
	closers []func() error
}

func (b *backend) close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// openBackend builds the store selected by cfg.Kind. Background cleanup
// loops stop when ctx is done.
func openBackend(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (*backend, error) {
	opts := []session.Option{session.WithTTL(cfg.TTL)}
	b := &backend{}

	switch strings.ToLower(cfg.Kind) {
	case "memory":
		store := session.NewMemoryStore(session.Identity[User], append(opts, session.WithMaxSessions(cfg.MaxSessions))...)
		go store.RunCleanup(ctx, cfg.Cleanup)
		b.store = store

	case "redis":
		client, err := openRedis(cfg.Redis, b, logger)
		if err != nil {
			return nil, err
		}
		store := session.NewRedisStore(client, session.Identity[User], append(opts, session.WithPrefix(cfg.Redis.Prefix))...)
		b.store = store
		b.redis = client
		b.ping = store.Ping

	case "token":
		var revoked session.RevocationList = session.NewMemoryRevocationList()
		if cfg.Token.RevokeInRedis {
			client, err := openRedis(cfg.Redis, b, logger)
			if err != nil {
				return nil, err
			}
			revoked = session.NewRedisRevocationList(client)
			b.redis = client
			b.ping = func(ctx context.Context) (time.Duration, error) {
				start := time.Now()
				err := client.Ping(ctx).Err()
				return time.Since(start), err
			}
		}
		store, err := session.NewTokenStore(session.Identity[User], jwt.Config{
			TTL:           cfg.TTL,
			SigningMethod: jwt.MethodHS256,
			PrivateKey:    []byte(cfg.Token.Secret),
			Issuer:        cfg.Token.Issuer,
		}, revoked)
		if err != nil {
			_ = b.close()
			return nil, fmt.Errorf("token store: %w", err)
		}
		b.store = store

	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		b.closers = append(b.closers, db.Close)

		store := session.NewSQLStore(db, session.Identity[User], append(opts, session.WithTable(cfg.Postgres.Table))...)
		if cfg.Postgres.Migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = b.close()
				return nil, fmt.Errorf("migrate sessions table: %w", err)
			}
		}
		go runSQLCleanup(ctx, store, cfg.Cleanup, logger)
		b.store = store
		b.ping = store.Ping

	default:
		return nil, fmt.Errorf("%w: unknown store.kind %q", ErrInvalidConfig, cfg.Kind)
	}

	logger.Info("session store ready", "kind", cfg.Kind, "ttl", cfg.TTL)
	return b, nil
}

// openRedis connects to cfg.Addr, or to an in-process miniredis when Addr is
// empty. Both are registered as closers on b.
func openRedis(cfg RedisConfig, b *backend, logger *slog.Logger) (*redis.Client, error) {
	addr := cfg.Addr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		b.closers = append(b.closers, func() error {
			mr.Close()
			return nil
		})
		addr = mr.Addr()
		logger.Warn("store.redis.addr is empty; using embedded miniredis, sessions are not persisted", "addr", addr)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	b.closers = append(b.closers, client.Close)
	return client, nil
}

func runSQLCleanup(ctx context.Context, store *session.SQLStore[User, User], interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx)
			if err != nil {
				logger.Warn("session cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
