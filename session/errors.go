package session

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable wraps driver failures (network, timeouts, closed pools).
	ErrBackendUnavailable = errors.New("session backend unavailable")

	// ErrCorruptRecord is returned when a stored record cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt session record")

	// ErrIDCollision is returned when Create could not find a free identifier.
	ErrIDCollision = errors.New("session id collision")

	// ErrNoProjection is returned by Create when the store has no projection
	// function.
	ErrNoProjection = errors.New("session projection required")

	// ErrUnsupportedRecordVersion is returned for records written by an unknown schema.
	ErrUnsupportedRecordVersion = errors.New("unsupported session record version")
)

// unavailable wraps a driver error. Context errors pass through unchanged so
// callers can tell a canceled request from a backend outage.
func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
