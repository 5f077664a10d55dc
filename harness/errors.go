package harness

import "fmt"

// AuthError means an identity could not be established. It is fatal for the
// descriptor whose worker hit it, and for nothing else.
type AuthError struct {
	Identity string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("cannot authenticate as %q: %s", e.Identity, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError means a request could not be completed at the network level
// after the retry budget was exhausted. It aborts only the current check or
// case, never the suite.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
