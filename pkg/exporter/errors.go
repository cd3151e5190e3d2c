package exporter

import (
	"errors"
	"fmt"
)

// Common errors returned by the exporter package.
var (
	// ErrMissingURL is returned when the sink URL is empty.
	ErrMissingURL = errors.New("influx url is empty")

	// ErrMissingBucket is returned when no bucket is configured.
	ErrMissingBucket = errors.New("influx bucket is empty")
)

// WriteError reports a rejected write.
type WriteError struct {
	// Code is the HTTP status code returned by the sink.
	Code int
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("influx write rejected with status %d", e.Code)
}
