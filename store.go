package goSession

import "context"

// Store is the capability a session backend provides to the engine.
//
// In is the value a login handler hands to Create; U is the user data the
// backend resolves a session identifier to. Backends choose how In maps to U
// (often the identity projection) and how identifiers are generated, but the
// identifiers must be unguessable.
//
// Implementations must be safe for concurrent use. Verify must return user
// data that does not alias backend-internal state, and a Create that returned
// before a Verify started must be visible to that Verify.
type Store[In, U any] interface {
	// Create persists in under a fresh identifier and returns the identifier.
	Create(ctx context.Context, in In) (string, error)

	// Verify resolves sessionID. An unknown, expired or revoked identifier is
	// reported as (zero, false, nil); an error means the backend could not
	// answer.
	Verify(ctx context.Context, sessionID string) (U, bool, error)

	// Delete removes sessionID. Deleting an unknown identifier is not an error.
	Delete(ctx context.Context, sessionID string) error
}

// Cloner is implemented by user data types that hold references (maps,
// slices, pointers) and need an explicit deep copy. The engine clones such
// values before attaching them to a request and again on every Outcome.User
// call.
type Cloner[U any] interface {
	Clone() U
}

func cloneUser[U any](u U) U {
	if c, ok := any(u).(Cloner[U]); ok {
		return c.Clone()
	}
	return u
}
