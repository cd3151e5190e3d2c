package store

import "errors"

// Common errors returned by the store package.
var (
	// ErrEmptyID is returned when a metering point identity is empty.
	ErrEmptyID = errors.New("metering point id is empty")

	// ErrNilState is returned when a nil state is passed to Save.
	ErrNilState = errors.New("state is nil")
)
