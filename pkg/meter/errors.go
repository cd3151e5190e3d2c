package meter

import "errors"

// Common errors returned by the meter package.
var (
	// ErrInvalidMonthKey is returned when a month key string is not "MM.YYYY".
	ErrInvalidMonthKey = errors.New("invalid month key: expected MM.YYYY")

	// ErrInvalidDirection is returned when a direction is neither "P" nor "R".
	ErrInvalidDirection = errors.New("invalid direction: expected P or R")
)
