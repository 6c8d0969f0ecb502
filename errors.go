package goSession

import "errors"

var (
	// ErrStoreRequired is returned by Build when no session store was supplied.
	ErrStoreRequired = errors.New("session store required")
	// ErrInvalidCarrier is returned when the token carrier kind or name is unusable.
	ErrInvalidCarrier = errors.New("invalid token carrier")
	// ErrInvalidCookieConfig is returned when cookie attributes cannot be issued.
	ErrInvalidCookieConfig = errors.New("invalid cookie configuration")
	// ErrInvalidAuditConfig is returned for negative audit buffer sizes.
	ErrInvalidAuditConfig = errors.New("invalid audit configuration")
	// ErrBuilderUsed is returned when Build is called twice on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrEngineNotReady is returned by Engine methods called on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrEmptySessionID is returned by DeleteSession for an empty identifier.
	ErrEmptySessionID = errors.New("empty session id")
)

// StoreError reports a session backend failure surfaced to a caller. Verify
// failures never reach handlers as errors; they are folded into NoSession.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return "session store " + e.Op + " failed"
	}
	return "session store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
