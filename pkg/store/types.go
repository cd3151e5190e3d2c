// Package store persists accumulated meter state across runs.
//
// State is keyed by meter identity so one database can serve several
// metering points. The bbolt implementation is the production store;
// the in-memory implementation backs tests.
package store

import "time"

// State is the persisted accumulation state of one metering point.
type State struct {
	// ConsumptionTotal is the lifetime consumed energy in kWh.
	ConsumptionTotal float64 `json:"consumption_total"`

	// ExportTotal is the lifetime exported energy in kWh.
	ExportTotal float64 `json:"export_total"`

	// ImportedMonths lists months already folded into the totals,
	// formatted MM.YYYY.
	ImportedMonths []string `json:"imported_months"`
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	clone := *s
	clone.ImportedMonths = append([]string(nil), s.ImportedMonths...)
	return &clone
}

// HasMonth reports whether a month is already folded into the totals.
func (s *State) HasMonth(month string) bool {
	for _, m := range s.ImportedMonths {
		if m == month {
			return true
		}
	}
	return false
}

// AddMonth records a month as imported. Duplicates are ignored.
func (s *State) AddMonth(month string) {
	if !s.HasMonth(month) {
		s.ImportedMonths = append(s.ImportedMonths, month)
	}
}

// Store provides persistence for meter state.
type Store interface {
	// Load retrieves the state for a metering point.
	//
	// Parameters:
	//   - id: Metering point identity key
	//
	// Returns:
	//   - Stored state, or a zero state if none is stored yet
	//   - Error if retrieval fails
	Load(id string) (*State, error)

	// Save stores the state for a metering point.
	//
	// Parameters:
	//   - id: Metering point identity key
	//   - state: State to persist
	//
	// Returns error if storage fails.
	Save(id string, state *State) error

	// Close closes the store and releases resources.
	//
	// Returns error if cleanup fails.
	Close() error
}

// Config contains store configuration.
type Config struct {
	// DBPath is the path to the database file. A leading ~ expands to
	// the user's home directory.
	DBPath string

	// Timeout is the maximum time to wait for the database file lock.
	// Default: 1s.
	Timeout time.Duration
}
