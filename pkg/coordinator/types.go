// Package coordinator aggregates meter readings into lifetime and
// period totals.
//
// One coordinator owns the persisted state of one metering point. All
// operations hold a single coarse lock, so a refresh and an import can
// never interleave against the persisted totals. Operations are
// infrequent and I/O-bound, which favors the simple lock over finer
// granularity.
package coordinator

import (
	"context"
	"time"

	"github.com/dkralj/hepmeter/pkg/fetcher"
	"github.com/dkralj/hepmeter/pkg/meter"
	"github.com/dkralj/hepmeter/pkg/parser"
	"github.com/dkralj/hepmeter/pkg/store"
)

// DirectionSums holds one energy value per flow direction, in kWh.
type DirectionSums struct {
	// Consumption is energy drawn from the grid.
	Consumption float64 `json:"consumption"`

	// Export is energy fed into the grid.
	Export float64 `json:"export"`
}

// Diagnostics carries non-fatal signals from the last operation.
type Diagnostics struct {
	// CurrentMonthRows counts parsed rows across both directions of
	// the current month.
	CurrentMonthRows int `json:"current_month_rows"`

	// PrevMonthRows counts parsed rows across both directions of the
	// previous month.
	PrevMonthRows int `json:"prev_month_rows"`

	// LastConsumptionAt is the newest consumption timestamp seen in
	// the current month. Zero when the month has no consumption rows.
	LastConsumptionAt time.Time `json:"last_consumption_at"`

	// LastExportAt is the newest export timestamp seen in the current
	// month. Zero when the month has no export rows.
	LastExportAt time.Time `json:"last_export_at"`

	// SkippedMonths lists months dropped from the operation because a
	// fetch failed, formatted MM.YYYY.
	SkippedMonths []string `json:"skipped_months,omitempty"`

	// FallbackUsed reports whether any parse fell back to the
	// header-driven strategy.
	FallbackUsed bool `json:"fallback_used"`
}

// Snapshot is the read-only aggregated result of one operation.
type Snapshot struct {
	// Lifetime holds the persisted lifetime totals.
	Lifetime DirectionSums `json:"lifetime"`

	// Month holds the current calendar month's sums.
	Month DirectionSums `json:"month"`

	// Yesterday holds sums of readings dated yesterday.
	Yesterday DirectionSums `json:"yesterday"`

	// PrevMonth holds the previous calendar month's sums.
	PrevMonth DirectionSums `json:"prev_month"`

	// YearToDate holds cumulative sums from January 1st through the
	// current month.
	YearToDate DirectionSums `json:"year_to_date"`

	// Diagnostics carries non-fatal signals from the operation.
	Diagnostics Diagnostics `json:"diagnostics"`

	// UpdatedAt is when the snapshot was produced.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clock supplies the current time. Injected so tests can pin a date.
type Clock interface {
	Now() time.Time
}

// systemClock implements Clock with the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Exporter forwards raw current-month readings to an external sink.
// Failures are logged by the coordinator and never fail the operation.
type Exporter interface {
	Export(ctx context.Context, month meter.MonthKey, consumption, export []meter.Reading) error
}

// Coordinator aggregates one metering point's readings.
type Coordinator interface {
	// Refresh runs one full update cycle: fetch and parse the current
	// and previous months, recompute year-to-date if stale, apply the
	// sync-to-YTD policy, and emit a snapshot.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//
	// Returns:
	//   - Fresh snapshot
	//   - Error if state cannot be loaded or persisted
	//
	// Thread-safety: Serializes against all other operations. A caller
	// arriving during a running refresh waits; use TryRefresh to fail
	// fast instead.
	Refresh(ctx context.Context) (*Snapshot, error)

	// TryRefresh behaves like Refresh but returns
	// ErrRefreshInProgress immediately when another operation holds
	// the lock.
	TryRefresh(ctx context.Context) (*Snapshot, error)

	// ImportHistory folds whole months into the lifetime totals.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - months: Months to import
	//   - force: Re-import months already recorded as imported
	//
	// Returns:
	//   - Snapshot with updated lifetime totals and zeroed period sums
	//   - Error if state cannot be loaded or persisted
	//
	// Months whose fetch fails are dropped from the pass and recorded
	// in the snapshot diagnostics, never retried automatically.
	ImportHistory(ctx context.Context, months []meter.MonthKey, force bool) (*Snapshot, error)

	// ImportYears expands years into month keys, stopping at the
	// current month of the current year, and delegates to
	// ImportHistory.
	ImportYears(ctx context.Context, years []int, force bool) (*Snapshot, error)

	// ResetTotals clears lifetime totals and the imported-months set,
	// persists the zero state, and emits a zeroed snapshot.
	ResetTotals() (*Snapshot, error)

	// ClearImportCache clears only the imported-months set, leaving
	// lifetime totals untouched.
	ClearImportCache() error

	// Snapshot returns the latest emitted snapshot, or nil before the
	// first operation completes.
	Snapshot() *Snapshot
}

// Config contains coordinator configuration.
type Config struct {
	// MeterID keys the persisted state, typically the OMM.
	MeterID string

	// Layout describes the expected CSV layout.
	Layout parser.Layout

	// ValueIsEnergy selects the value interpretation: true means kWh
	// per interval, false means kW samples divided by 4 (fixed
	// 15-minute interval assumption).
	ValueIsEnergy bool

	// SyncTotalToYTD raises lifetime totals to year-to-date when the
	// latter is larger.
	SyncTotalToYTD bool

	// MaxConcurrentImports caps concurrent month fetches during an
	// import. Default: 2.
	MaxConcurrentImports int

	// Clock supplies the current time. Default: SystemClock().
	Clock Clock
}

// Dependencies are the coordinator's injected collaborators.
type Dependencies struct {
	// Client fetches monthly CSV exports.
	Client fetcher.Client

	// Parser parses raw CSV bytes.
	Parser parser.Parser

	// Store persists the accumulated state.
	Store store.Store

	// Exporter forwards readings to the external sink. Optional.
	Exporter Exporter
}
