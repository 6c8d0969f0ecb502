package goSession

// State classifies what the interceptor found on a request.
type State uint8

const (
	// HaveSession means a token was presented and resolved to user data.
	HaveSession State = iota + 1
	// NoSession means a token was presented but did not resolve, or the
	// store could not be consulted.
	NoSession
	// NoCookie means no token was presented at all.
	NoCookie
)

func (s State) String() string {
	switch s {
	case HaveSession:
		return "have_session"
	case NoSession:
		return "no_session"
	case NoCookie:
		return "no_cookie"
	default:
		return "unknown"
	}
}

// Outcome is the read-only evidence attached to every intercepted request.
// It is not an authorization decision.
type Outcome[U any] struct {
	state State
	user  U
	err   error
}

// SessionFound builds a HaveSession outcome carrying user.
func SessionFound[U any](user U) Outcome[U] {
	return Outcome[U]{state: HaveSession, user: cloneUser(user)}
}

// SessionMissing builds a NoSession outcome. cause is the absorbed backend
// error, or nil when the token simply did not resolve.
func SessionMissing[U any](cause error) Outcome[U] {
	return Outcome[U]{state: NoSession, err: cause}
}

// CookieMissing builds a NoCookie outcome.
func CookieMissing[U any]() Outcome[U] {
	return Outcome[U]{state: NoCookie}
}

func (o Outcome[U]) State() State {
	return o.state
}

// HasSession reports whether the request carries a resolved session.
func (o Outcome[U]) HasSession() bool {
	return o.state == HaveSession
}

// User returns the resolved user data. The second result is false unless the
// state is HaveSession.
func (o Outcome[U]) User() (U, bool) {
	if o.state != HaveSession {
		var zero U
		return zero, false
	}
	return cloneUser(o.user), true
}

// Err returns the store failure that produced a NoSession outcome. It is nil
// for every other outcome, including a NoSession caused by an unknown token.
// Handlers must still treat such a request as unauthenticated.
func (o Outcome[U]) Err() error {
	return o.err
}

func (o Outcome[U]) String() string {
	return o.state.String()
}
