// Package parser converts raw portal CSV exports into ordered interval
// readings.
//
// The portal's export format has changed silently across versions:
// column order, delimiter and header labels all drift. The parser
// therefore works in two tiers. The primary strategy reads the
// configured fixed columns, which keeps the common case cheap and
// exact. When the fixed layout yields no rows at all, a fallback
// strategy locates columns by header keywords instead, so format drift
// degrades into a diagnostic flag rather than an outage.
package parser

import (
	"github.com/dkralj/hepmeter/pkg/meter"
)

// Layout describes the expected fixed CSV layout.
type Layout struct {
	// DateColumn is the zero-based index of the date column.
	DateColumn int

	// TimeColumn is the zero-based index of the time column.
	TimeColumn int

	// ValueColumn is the zero-based index of the numeric value column.
	ValueColumn int

	// DateLayout is the Go time layout for the date column.
	DateLayout string

	// TimeLayout is the Go time layout for the time column.
	TimeLayout string
}

// Parser converts raw CSV bytes into interval readings.
type Parser interface {
	// Parse extracts readings from one month's raw CSV export.
	//
	// Parameters:
	//   - raw: Raw CSV bytes as fetched from the portal
	//   - layout: Expected fixed column layout
	//
	// Returns:
	//   - Readings in file order (empty for empty input)
	//   - Whether the header-keyword fallback strategy was used
	//
	// Rows whose timestamp or value cannot be parsed are skipped
	// individually; a malformed row is never fatal. The fallback flag
	// is a diagnostic signal, not an error.
	//
	// Thread-safety: This method is thread-safe.
	Parse(raw []byte, layout Layout) ([]meter.Reading, bool)
}
