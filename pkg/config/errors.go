package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when the config file cannot be parsed.
	ErrInvalidYAML = errors.New("invalid YAML in config file")

	// ErrNoBaseURL is returned when the portal base URL is empty.
	ErrNoBaseURL = errors.New("portal base URL must not be empty")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("request timeout must be > 0")

	// ErrInvalidMaxAttempts is returned when the retry budget is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be > 0")

	// ErrInvalidColumnIndex is returned when a CSV column index is negative.
	ErrInvalidColumnIndex = errors.New("column indices must be >= 0")

	// ErrInvalidLayout is returned when a date or time layout is empty.
	ErrInvalidLayout = errors.New("date and time layouts must not be empty")

	// ErrInvalidScanInterval is returned when the scan interval is not positive.
	ErrInvalidScanInterval = errors.New("scan interval must be > 0")

	// ErrInvalidBackfill is returned when the backfill window is negative.
	ErrInvalidBackfill = errors.New("backfill months must be >= 0")

	// ErrInvalidConcurrency is returned when the import concurrency cap is not positive.
	ErrInvalidConcurrency = errors.New("max concurrent imports must be > 0")

	// ErrInvalidLogLevel is returned for unknown log levels.
	ErrInvalidLogLevel = errors.New("log level must be debug, info, warn or error")

	// ErrInvalidLogFormat is returned for unknown log formats.
	ErrInvalidLogFormat = errors.New("log format must be text or json")
)
