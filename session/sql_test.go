package session

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

func openTestPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("GOSESSION_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GOSESSION_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLStoreLifecycle(t *testing.T) {
	db := openTestPostgres(t)
	clock := newFakeClock()
	table := "gosession_test_" + time.Now().Format("150405")
	store := NewSQLStore(db, projectLogin, WithTable(table), WithTTL(time.Minute), WithClock(clock.Now))
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _, _ = db.Exec(`DROP TABLE IF EXISTS ` + table) })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate must be idempotent: %v", err)
	}

	id, err := store.Create(ctx, loginInput{Username: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	u, ok, err := store.Verify(ctx, id)
	if err != nil || !ok || u.Name != "alice" {
		t.Fatalf("Verify: %+v ok=%v err=%v", u, ok, err)
	}

	clock.Advance(2 * time.Minute)
	if _, ok, err := store.Verify(ctx, id); ok || err != nil {
		t.Fatalf("expired row must be absent, ok=%v err=%v", ok, err)
	}
	n, err := store.Cleanup(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Cleanup removed %d, err=%v", n, err)
	}

	for i := 0; i < 2; i++ {
		if err := store.Delete(ctx, id); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
}

func TestSQLStoreIDCollision(t *testing.T) {
	db := openTestPostgres(t)
	table := "gosession_collide_" + time.Now().Format("150405")
	store := NewSQLStore(db, Identity[testUser], WithTable(table), WithIDGenerator(func() (string, error) { return "fixed", nil }))
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _, _ = db.Exec(`DROP TABLE IF EXISTS ` + table) })

	if _, err := store.Create(ctx, testUser{Name: "a"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := store.Create(ctx, testUser{Name: "b"}); !errors.Is(err, ErrIDCollision) {
		t.Fatalf("expected ErrIDCollision, got %v", err)
	}
}

func TestSQLStoreClosedPoolIsUnavailable(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://invalid@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = db.Close()

	store := NewSQLStore(db, Identity[testUser])
	if _, _, err := store.Verify(context.Background(), "x"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
