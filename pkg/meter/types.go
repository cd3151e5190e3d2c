// Package meter defines the domain types shared across hepmeter:
// energy flow directions, calendar month keys and interval readings.
//
// A MonthKey is the unit of fetch and import granularity; the portal
// serves one CSV file per month and direction.
package meter

import (
	"fmt"
	"time"
)

// Direction identifies the energy flow of a meter reading.
type Direction string

const (
	// DirectionConsumption is energy drawn from the grid ("P" on the portal).
	DirectionConsumption Direction = "P"

	// DirectionExport is energy fed into the grid ("R" on the portal).
	DirectionExport Direction = "R"
)

// String returns the portal code for the direction.
func (d Direction) String() string {
	return string(d)
}

// Valid reports whether the direction is one of the two known flows.
func (d Direction) Valid() bool {
	return d == DirectionConsumption || d == DirectionExport
}

// MonthKey identifies a calendar month in "MM.YYYY" form, e.g. "03.2024".
//
// Two MonthKeys are equal iff they name the same month and year.
// Ordering is chronological.
type MonthKey struct {
	// Month is the calendar month (1-12).
	Month time.Month

	// Year is the four-digit year.
	Year int
}

// Reading is one interval sample for one direction in one month file.
//
// The timestamp is naive meter-local time; the value is the raw column
// value before any unit conversion. Immutable once parsed.
type Reading struct {
	// Timestamp is the sample time in meter-local time.
	Timestamp time.Time

	// Value is the raw numeric column value (kWh or kW, per layout).
	Value float64
}

// MonthKeyFor returns the MonthKey containing the given time.
func MonthKeyFor(t time.Time) MonthKey {
	return MonthKey{Month: t.Month(), Year: t.Year()}
}

// String formats the key in the portal's "MM.YYYY" form.
func (k MonthKey) String() string {
	return fmt.Sprintf("%02d.%04d", int(k.Month), k.Year)
}

// Time returns midnight on the first day of the month, meter-local.
func (k MonthKey) Time() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.Local)
}

// Next returns the following calendar month.
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Month: time.January, Year: k.Year + 1}
	}
	return MonthKey{Month: k.Month + 1, Year: k.Year}
}

// Prev returns the preceding calendar month.
func (k MonthKey) Prev() MonthKey {
	if k.Month == time.January {
		return MonthKey{Month: time.December, Year: k.Year - 1}
	}
	return MonthKey{Month: k.Month - 1, Year: k.Year}
}

// Before reports whether k is chronologically before other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// Contains reports whether the given time falls inside the month.
func (k MonthKey) Contains(t time.Time) bool {
	return t.Year() == k.Year && t.Month() == k.Month
}
