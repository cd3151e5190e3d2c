// Package fetcher retrieves monthly CSV exports from the remote
// metering portal.
//
// The portal serves one base64-encoded CSV file per month and
// direction behind a bearer token. Tokens expire silently, so the
// client re-runs the login call once on an authorization failure and
// repeats the request without consuming retry budget. Transient
// failures (429, 5xx, network) are retried with exponential backoff.
//
// Outcomes are a tagged result rather than errors: a month with no
// data is a normal condition the portal reports with 404, and callers
// must be able to tell it apart from a failure.
package fetcher

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/dkralj/hepmeter/pkg/meter"
)

// Status tags the outcome of a successful fetch call.
type Status int

const (
	// StatusOK means the month's CSV payload was retrieved.
	StatusOK Status = iota

	// StatusNotFound means the portal has no data for the month.
	StatusNotFound
)

// Result is the tagged outcome of a fetch.
type Result struct {
	// Status tags the outcome.
	Status Status

	// Body holds the decoded CSV bytes. Empty for StatusNotFound and
	// for months the portal reports as present but empty.
	Body []byte
}

// RetryPolicy controls retrying of transient fetch failures.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget (default: 3).
	MaxAttempts int

	// Backoff returns the delay before the given retry attempt
	// (1-based). Default: DefaultBackoff.
	Backoff func(attempt int) time.Duration
}

// DefaultBackoff implements the portal retry delay:
// min(2^attempt + 0.1*attempt, 5s).
func DefaultBackoff(attempt int) time.Duration {
	seconds := math.Pow(2, float64(attempt)) + 0.1*float64(attempt)
	if seconds > 5.0 {
		seconds = 5.0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Client fetches monthly CSV exports from the portal.
type Client interface {
	// Login authenticates and stores the bearer token.
	//
	// Returns ErrLoginFailed when the portal rejects the credentials
	// and ErrTokenMissing when the response carries no token. Login
	// failures are not retried internally.
	Login(ctx context.Context) error

	// FetchMonth retrieves one direction of one month's raw CSV.
	//
	// Parameters:
	//   - month: Calendar month to fetch
	//   - direction: Consumption or export flow
	//
	// Returns:
	//   - Result tagged StatusOK or StatusNotFound
	//   - Error when retries are exhausted or the call fails fatally
	//
	// A 401 triggers one re-login and a same-budget retry; 429 and
	// 5xx are retried per the configured RetryPolicy; 404 yields
	// StatusNotFound without error.
	//
	// Thread-safety: This method is safe for concurrent use; only the
	// bearer token is mutated, under an internal lock.
	FetchMonth(ctx context.Context, month meter.MonthKey, direction meter.Direction) (Result, error)
}

// Config contains portal client configuration.
type Config struct {
	// BaseURL is the portal API root.
	BaseURL string

	// Username for the portal account.
	Username string

	// Password for the portal account.
	Password string

	// OIB is the account identifier scoping the portal account.
	OIB string

	// OMM is the metering point identifier.
	OMM string

	// Timeout bounds each request (default: 30 seconds).
	Timeout time.Duration

	// Retry controls transient failure retrying.
	Retry RetryPolicy

	// HTTPClient overrides the underlying client. Used in tests;
	// when nil a client with the configured timeout is built.
	HTTPClient *http.Client
}
