package connection

import "fmt"

// AuthError indicates the session credential was rejected. It is fatal: the
// manager stops, the caller must re-authenticate, and no automatic retry
// happens.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected: %s", e.Reason)
}

// TransportError indicates a recoverable channel failure. The manager keeps
// the backoff loop running; a resync heals anything missed once the channel
// is back.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
