package goSession

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

type testUser struct {
	Name  string
	Roles []string
}

func (u testUser) Clone() testUser {
	out := u
	if u.Roles != nil {
		out.Roles = append([]string(nil), u.Roles...)
	}
	return out
}

var errBackendDown = errors.New("backend down")

// fakeStore is an identity-projection store with switchable failure modes.
type fakeStore struct {
	mu       sync.RWMutex
	data     map[string]testUser
	next     int
	verifyN  atomic.Int64
	failWith error
	panicOn  bool
	failDel  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]testUser)}
}

func (s *fakeStore) Create(_ context.Context, in testUser) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	s.next++
	id := "sid-" + strconv.Itoa(s.next)
	s.data[id] = in.Clone()
	return id, nil
}

func (s *fakeStore) Verify(ctx context.Context, id string) (testUser, bool, error) {
	s.verifyN.Add(1)
	if s.panicOn {
		panic("store exploded")
	}
	if err := ctx.Err(); err != nil {
		return testUser{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return testUser{}, false, s.failWith
	}
	u, ok := s.data[id]
	if !ok {
		return testUser{}, false, nil
	}
	return u.Clone(), true, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDel != nil {
		return s.failDel
	}
	delete(s.data, id)
	return nil
}

func (s *fakeStore) put(id string, u testUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = u
}

func buildTestEngine(t testing.TB, store Store[testUser, testUser], configure func(*Builder[testUser, testUser])) *Engine[testUser, testUser] {
	t.Helper()

	b := New[testUser, testUser](store).WithMetricsEnabled(true)
	if configure != nil {
		configure(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
