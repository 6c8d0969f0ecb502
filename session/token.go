package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// TokenStore keeps no server-side session state: the session identifier is a
// signed token that carries the encoded user data. Delete revokes the token's
// jti through a RevocationList until the token would have expired anyway.
type TokenStore[In, U any] struct {
	manager *jwt.Manager
	revoked RevocationList
	project func(In) U
	opts    options
}

// NewTokenStore builds a TokenStore. A nil revocation list gets an in-memory
// one, which is only correct for a single process.
func NewTokenStore[In, U any](project func(In) U, cfg jwt.Config, revoked RevocationList, opts ...Option) (*TokenStore[In, U], error) {
	o := applyOptions(opts)
	if cfg.Now == nil {
		cfg.Now = o.now
	}

	manager, err := jwt.NewManager(cfg)
	if err != nil {
		return nil, err
	}

	if revoked == nil {
		revoked = NewMemoryRevocationList(WithClock(o.now))
	}

	return &TokenStore[In, U]{
		manager: manager,
		revoked: revoked,
		project: project,
		opts:    o,
	}, nil
}

func (s *TokenStore[In, U]) Create(_ context.Context, in In) (string, error) {
	if s.project == nil {
		return "", ErrNoProjection
	}

	payload, err := s.opts.codec.Marshal(s.project(in))
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	token, _, err := s.manager.Issue(payload)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Verify reports any signature, format or lifetime failure as an unknown
// session. Only a failing revocation lookup is an error.
func (s *TokenStore[In, U]) Verify(ctx context.Context, sessionID string) (U, bool, error) {
	var zero U

	claims, err := s.manager.Parse(sessionID)
	if err != nil {
		return zero, false, nil
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return zero, false, err
	}
	if revoked {
		return zero, false, nil
	}

	u, err := decodeUser[U](s.opts.codec, claims.Data)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return u, true, nil
}

// Delete revokes sessionID. Tokens that no longer verify are already dead and
// need no revocation.
func (s *TokenStore[In, U]) Delete(ctx context.Context, sessionID string) error {
	claims, err := s.manager.Parse(sessionID)
	if err != nil {
		return nil
	}

	until := s.opts.now().Add(s.manager.TTL())
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return s.revoked.Revoke(ctx, claims.ID, until)
}

// RevocationList records revoked token identifiers until they expire.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

var errEmptyJTI = errors.New("empty jti")
