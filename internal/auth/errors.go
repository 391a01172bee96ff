package auth

import "fmt"

// ErrAuthRequired signals that a session has no usable credentials and the
// user must complete (or redo) the authorization flow. It is recoverable by
// user action and is not an error condition on first occurrence.
var ErrAuthRequired = fmt.Errorf("authentication required")

// ExchangeError reports a rejected authorization-code exchange.
type ExchangeError struct {
	Description string
	Err         error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed: %s", e.Description)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// RefreshError reports a rejected refresh-token exchange. The owning session
// reverts to the unauthenticated state when this occurs.
type RefreshError struct {
	Description string
	Err         error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %s", e.Description)
}

func (e *RefreshError) Unwrap() error { return e.Err }
