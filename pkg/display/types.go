// Package display provides output formatting for meter snapshots.
//
// It supports multiple output formats (table, JSON, simple text)
// and handles energy value formatting for display.
package display

import (
	"io"

	"github.com/dkralj/hepmeter/pkg/coordinator"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays the snapshot in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays the snapshot as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays the snapshot in simple text format.
	FormatSimple Format = "simple"
)

// Valid reports whether the format is one of the supported values.
func (f Format) Valid() bool {
	return f == FormatTable || f == FormatJSON || f == FormatSimple
}

// Formatter formats and displays meter snapshots.
type Formatter interface {
	// FormatSnapshot formats an aggregated snapshot.
	//
	// Parameters:
	//   - w: Output writer
	//   - snapshot: Snapshot to format; nil prints a placeholder
	//
	// Returns error if formatting fails.
	FormatSnapshot(w io.Writer, snapshot *coordinator.Snapshot) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowDiagnostics enables the diagnostics section.
	// Default: true is recommended for interactive use.
	ShowDiagnostics bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
