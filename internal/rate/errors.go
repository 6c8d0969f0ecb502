package rate

import "errors"

var (
	// ErrRateLimited means the caller has used its attempt budget for the window.
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable wraps counter backend failures.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
)
