package rate

import (
	"context"
	"fmt"
	"time"
)

// Config holds login throttle tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	// PerIP adds a second budget keyed by client address.
	PerIP bool
}

// Counter is a fixed-window counter store. Incr starts the window on the
// first hit of a key.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// Limiter enforces failed-login budgets per user name and, optionally, per IP.
type Limiter struct {
	counter Counter
	config  Config
}

// New creates a [Limiter] over counter.
func New(counter Counter, cfg Config) (*Limiter, error) {
	if counter == nil {
		return nil, fmt.Errorf("rate: nil counter")
	}
	if cfg.MaxAttempts <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("rate: MaxAttempts and Window must be > 0")
	}
	return &Limiter{counter: counter, config: cfg}, nil
}

// CheckLogin returns ErrRateLimited once name (or ip) has used its budget of
// failed attempts in the current window.
func (l *Limiter) CheckLogin(ctx context.Context, name, ip string) error {
	for _, key := range l.keys(name, ip) {
		count, err := l.counter.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// FailLogin records a failed attempt and reports ErrRateLimited when it
// exhausted the budget.
func (l *Limiter) FailLogin(ctx context.Context, name, ip string) error {
	limited := false
	for _, key := range l.keys(name, ip) {
		count, err := l.counter.Incr(ctx, key, l.config.Window)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the user counter after a successful login. IP counters
// are only ever cleared by window expiry.
func (l *Limiter) ResetLogin(ctx context.Context, name string) error {
	if err := l.counter.Del(ctx, loginUserKey(name)); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (l *Limiter) keys(name, ip string) []string {
	keys := []string{loginUserKey(name)}
	if l.config.PerIP && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	return keys
}

func loginUserKey(name string) string { return "gs:rl:login:u:" + name }
func loginIPKey(ip string) string     { return "gs:rl:login:ip:" + ip }
