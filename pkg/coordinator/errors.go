package coordinator

import "errors"

// Common errors returned by the coordinator package.
var (
	// ErrRefreshInProgress is returned by TryRefresh when another
	// operation already holds the coordinator lock.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrNilClient is returned when no fetch client is provided.
	ErrNilClient = errors.New("fetch client is nil")

	// ErrNilParser is returned when no parser is provided.
	ErrNilParser = errors.New("parser is nil")

	// ErrNilStore is returned when no state store is provided.
	ErrNilStore = errors.New("state store is nil")

	// ErrEmptyMeterID is returned when the meter identity is empty.
	ErrEmptyMeterID = errors.New("meter id is empty")
)
