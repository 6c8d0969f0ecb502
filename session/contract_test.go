package session_test

import (
	"context"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type user struct {
	Name string `json:"name"`
}

var (
	_ goSession.Store[user, user] = (*session.MemoryStore[user, user])(nil)
	_ goSession.Store[user, user] = (*session.RedisStore[user, user])(nil)
	_ goSession.Store[user, user] = (*session.TokenStore[user, user])(nil)
	_ goSession.Store[user, user] = (*session.SQLStore[user, user])(nil)

	_ session.RevocationList = (*session.MemoryRevocationList)(nil)
	_ session.RevocationList = (*session.RedisRevocationList)(nil)
)

func contractStores(t *testing.T) map[string]goSession.Store[user, user] {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	tokens, err := session.NewTokenStore(session.Identity[user], jwt.Config{
		TTL:           time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	}, session.NewRedisRevocationList(rdb))
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}

	return map[string]goSession.Store[user, user]{
		"memory": session.NewMemoryStore(session.Identity[user]),
		"redis":  session.NewRedisStore(rdb, session.Identity[user]),
		"token":  tokens,
	}
}

// TestStoreContract runs the interceptor against every backend and checks the
// three outcomes end to end.
func TestStoreContract(t *testing.T) {
	for name, store := range contractStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			engine, err := goSession.New[user, user](store).WithCookieName("test-id").Build()
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			defer engine.Close()

			id, err := engine.CreateSession(ctx, user{Name: "alice"})
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}

			if o := engine.VerifyToken(ctx, id); o.State() != goSession.HaveSession {
				t.Fatalf("expected HaveSession, got %s", o)
			} else if u, _ := o.User(); u.Name != "alice" {
				t.Fatalf("expected alice, got %+v", u)
			}

			if o := engine.VerifyToken(ctx, "no-such-session"); o.State() != goSession.NoSession || o.Err() != nil {
				t.Fatalf("expected plain NoSession, got %s err=%v", o, o.Err())
			}

			if err := engine.DeleteSession(ctx, id); err != nil {
				t.Fatalf("DeleteSession: %v", err)
			}
			if err := engine.DeleteSession(ctx, id); err != nil {
				t.Fatalf("second DeleteSession: %v", err)
			}
			if o := engine.VerifyToken(ctx, id); o.State() != goSession.NoSession {
				t.Fatalf("expected NoSession after delete, got %s", o)
			}
		})
	}
}
