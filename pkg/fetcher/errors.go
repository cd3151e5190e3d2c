package fetcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetcher package.
var (
	// ErrMissingCredentials is returned when username, password, OIB
	// or OMM is empty.
	ErrMissingCredentials = errors.New("missing portal credentials")

	// ErrLoginFailed is returned when the portal rejects the login call.
	ErrLoginFailed = errors.New("portal login failed")

	// ErrTokenMissing is returned when a login response carries no token.
	ErrTokenMissing = errors.New("portal token missing in login response")

	// ErrRetriesExhausted is returned when the transient-retry budget
	// runs out; it wraps the last transient error.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// StatusError reports an unexpected portal HTTP status.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected portal status %d", e.Code)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.Code == 429 || e.Code >= 500
}

// transientError marks a network-level failure worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// isTransient reports whether an error should consume retry budget
// rather than abort the call.
func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}

	var netErr *transientError
	return errors.As(err, &netErr)
}
