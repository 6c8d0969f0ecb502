package session

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. It is safe for concurrent
// use: Verify takes a shared lock, Create and Delete an exclusive one, and no
// lock is held while user data is decoded.
type MemoryStore[In, U any] struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	order   *list.List

	project func(In) U
	opts    options
}

type memoryEntry struct {
	rec  record
	elem *list.Element
}

// NewMemoryStore returns an empty store. project maps the login input to the
// user data Verify returns; use Identity when they are the same type.
func NewMemoryStore[In, U any](project func(In) U, opts ...Option) *MemoryStore[In, U] {
	return &MemoryStore[In, U]{
		entries: make(map[string]*memoryEntry),
		order:   list.New(),
		project: project,
		opts:    applyOptions(opts),
	}
}

func (s *MemoryStore[In, U]) Create(ctx context.Context, in In) (string, error) {
	if s.project == nil {
		return "", ErrNoProjection
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload, err := s.opts.codec.Marshal(s.project(in))
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	now := s.opts.now()
	rec := record{
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: s.opts.expiry(now),
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		id, err := s.opts.newID()
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}
		if s.insert(id, rec) {
			return id, nil
		}
	}

	return "", ErrIDCollision
}

func (s *MemoryStore[In, U]) insert(id string, rec record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return false
	}

	if s.opts.maxSessions > 0 {
		for len(s.entries) >= s.opts.maxSessions {
			oldest := s.order.Front()
			if oldest == nil {
				break
			}
			s.removeLocked(oldest.Value.(string))
		}
	}

	s.entries[id] = &memoryEntry{
		rec:  rec,
		elem: s.order.PushBack(id),
	}
	return true
}

func (s *MemoryStore[In, U]) Verify(ctx context.Context, sessionID string) (U, bool, error) {
	var zero U
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	var rec record
	if ok {
		rec = entry.rec
	}
	s.mu.RUnlock()

	if !ok || rec.expired(s.opts.now()) {
		return zero, false, nil
	}

	// Payload bytes are never mutated after insert, so decoding outside the
	// lock is safe.
	u, err := decodeUser[U](s.opts.codec, rec.Payload)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return u, true, nil
}

func (s *MemoryStore[In, U]) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(sessionID)
	return nil
}

func (s *MemoryStore[In, U]) removeLocked(sessionID string) {
	entry, ok := s.entries[sessionID]
	if !ok {
		return
	}
	s.order.Remove(entry.elem)
	delete(s.entries, sessionID)
}

// Cleanup drops expired sessions and reports how many were removed.
func (s *MemoryStore[In, U]) Cleanup(ctx context.Context) (int, error) {
	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.rec.expired(now) {
			s.removeLocked(id)
			removed++
		}
	}
	return removed, nil
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *MemoryStore[In, U]) RunCleanup(ctx context.Context, interval time.Duration) {
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
			_, _ = s.Cleanup(ctx)
		}
	}
}

// Len returns the number of stored sessions, expired ones included until the
// next Cleanup.
func (s *MemoryStore[In, U]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
