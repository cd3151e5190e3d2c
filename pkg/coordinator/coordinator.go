package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkralj/hepmeter/pkg/fetcher"
	"github.com/dkralj/hepmeter/pkg/logger"
	"github.com/dkralj/hepmeter/pkg/meter"
	"github.com/dkralj/hepmeter/pkg/store"
)

// maxYTDIterations bounds the year-to-date month walk against clock
// skew or a corrupted month key.
const maxYTDIterations = 24

// coordinator implements the Coordinator interface.
type coordinator struct {
	config Config
	deps   Dependencies
	logger logger.Logger

	// mu serializes all operations against the persisted state and
	// the year-to-date cache.
	mu sync.Mutex

	// ytd is the daily-invalidated year-to-date memoization. Guarded
	// by mu. Never persisted.
	ytd *ytdCache

	snapMu sync.RWMutex
	last   *Snapshot
}

// ytdCache memoizes year-to-date sums for one calendar date.
type ytdCache struct {
	sums       DirectionSums
	skipped    []string
	computedOn time.Time
}

// monthData holds both directions of one parsed month.
type monthData struct {
	consumption []meter.Reading
	export      []meter.Reading
	fallback    bool
}

func (d monthData) rows() int {
	return len(d.consumption) + len(d.export)
}

// New creates a new coordinator.
//
// Parameters:
//   - cfg: Coordinator configuration
//   - deps: Injected collaborators
//   - log: Logger instance
//
// Returns:
//   - Configured Coordinator
//   - Error if a required collaborator is missing
func New(cfg Config, deps Dependencies, log logger.Logger) (Coordinator, error) {
	if deps.Client == nil {
		return nil, ErrNilClient
	}
	if deps.Parser == nil {
		return nil, ErrNilParser
	}
	if deps.Store == nil {
		return nil, ErrNilStore
	}
	if cfg.MeterID == "" {
		return nil, ErrEmptyMeterID
	}

	// Set defaults.
	if cfg.MaxConcurrentImports <= 0 {
		cfg.MaxConcurrentImports = 2
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}

	return &coordinator{
		config: cfg,
		deps:   deps,
		logger: log,
	}, nil
}

// Refresh implements Coordinator.Refresh.
func (c *coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refreshLocked(ctx)
}

// TryRefresh implements Coordinator.TryRefresh.
func (c *coordinator) TryRefresh(ctx context.Context) (*Snapshot, error) {
	if !c.mu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer c.mu.Unlock()

	return c.refreshLocked(ctx)
}

func (c *coordinator) refreshLocked(ctx context.Context) (*Snapshot, error) {
	// Best-effort login; individual fetches re-authenticate on their
	// own when the token is missing or expired.
	if err := c.deps.Client.Login(ctx); err != nil {
		c.logger.Warn("login failed, continuing with per-fetch auth", "error", err)
	}

	state, err := c.deps.Store.Load(c.config.MeterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	now := c.config.Clock.Now()
	currentKey := meter.MonthKeyFor(now)
	prevKey := currentKey.Prev()

	var (
		skipped  []string
		fallback bool
	)

	current, err := c.fetchMonth(ctx, currentKey)
	if err != nil {
		c.logger.Warn("current month skipped", "month", currentKey.String(), "error", err)
		skipped = append(skipped, currentKey.String())
		current = monthData{}
	}
	fallback = fallback || current.fallback

	prev, err := c.fetchMonth(ctx, prevKey)
	if err != nil {
		c.logger.Warn("previous month skipped", "month", prevKey.String(), "error", err)
		skipped = append(skipped, prevKey.String())
		prev = monthData{}
	}
	fallback = fallback || prev.fallback

	// Fetched months are reused for the year-to-date walk so a cache
	// miss does not refetch them.
	fetched := map[meter.MonthKey]monthData{
		currentKey: current,
		prevKey:    prev,
	}

	ytd, ytdSkipped := c.yearToDate(ctx, now, fetched)
	skipped = append(skipped, ytdSkipped...)

	if c.config.SyncTotalToYTD {
		changed := false
		if ytd.Consumption > state.ConsumptionTotal {
			state.ConsumptionTotal = ytd.Consumption
			changed = true
		}
		if ytd.Export > state.ExportTotal {
			state.ExportTotal = ytd.Export
			changed = true
		}
		if changed {
			if err := c.deps.Store.Save(c.config.MeterID, state); err != nil {
				return nil, fmt.Errorf("failed to persist synced totals: %w", err)
			}
			c.logger.Info("lifetime totals raised to year-to-date",
				"consumption", state.ConsumptionTotal,
				"export", state.ExportTotal)
		}
	}

	yesterday := now.AddDate(0, 0, -1)

	snapshot := &Snapshot{
		Lifetime: DirectionSums{
			Consumption: state.ConsumptionTotal,
			Export:      state.ExportTotal,
		},
		Month: DirectionSums{
			Consumption: c.sum(current.consumption),
			Export:      c.sum(current.export),
		},
		Yesterday: DirectionSums{
			Consumption: c.sumOn(current.consumption, yesterday) + c.sumOn(prev.consumption, yesterday),
			Export:      c.sumOn(current.export, yesterday) + c.sumOn(prev.export, yesterday),
		},
		PrevMonth: DirectionSums{
			Consumption: c.sum(prev.consumption),
			Export:      c.sum(prev.export),
		},
		YearToDate: ytd,
		Diagnostics: Diagnostics{
			CurrentMonthRows:  current.rows(),
			PrevMonthRows:     prev.rows(),
			LastConsumptionAt: lastTimestamp(current.consumption),
			LastExportAt:      lastTimestamp(current.export),
			SkippedMonths:     skipped,
			FallbackUsed:      fallback,
		},
		UpdatedAt: now,
	}

	if c.deps.Exporter != nil {
		if err := c.deps.Exporter.Export(ctx, currentKey, current.consumption, current.export); err != nil {
			c.logger.Warn("export sink failed", "month", currentKey.String(), "error", err)
		}
	}

	c.setSnapshot(snapshot)

	c.logger.Info("refresh complete",
		"month", currentKey.String(),
		"month_consumption", snapshot.Month.Consumption,
		"month_export", snapshot.Month.Export,
		"skipped_months", len(skipped))

	return snapshot, nil
}

// ImportHistory implements Coordinator.ImportHistory.
func (c *coordinator) ImportHistory(ctx context.Context, months []meter.MonthKey, force bool) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.importLocked(ctx, months, force)
}

// ImportYears implements Coordinator.ImportYears.
func (c *coordinator) ImportYears(ctx context.Context, years []int, force bool) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.config.Clock.Now()

	var months []meter.MonthKey
	for _, year := range years {
		months = append(months, meter.MonthsOfYear(year, now)...)
	}

	return c.importLocked(ctx, months, force)
}

// importResult is one month's outcome within an import pass.
type importResult struct {
	month meter.MonthKey
	data  monthData
	err   error
}

func (c *coordinator) importLocked(ctx context.Context, months []meter.MonthKey, force bool) (*Snapshot, error) {
	state, err := c.deps.Store.Load(c.config.MeterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	// Work set: with force all requested months, otherwise only the
	// ones not yet recorded as imported.
	var work []meter.MonthKey
	for _, m := range months {
		if force || !state.HasMonth(m.String()) {
			work = append(work, m)
		}
	}

	c.logger.Info("import starting",
		"requested", len(months),
		"work", len(work),
		"force", force)

	results := make([]importResult, len(work))

	sem := make(chan struct{}, c.config.MaxConcurrentImports)
	var wg sync.WaitGroup

	for i, m := range work {
		wg.Add(1)
		go func(i int, m meter.MonthKey) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			data, fetchErr := c.fetchMonth(ctx, m)
			results[i] = importResult{month: m, data: data, err: fetchErr}
		}(i, m)
	}
	wg.Wait()

	var (
		skipped  []string
		fallback bool
	)

	for _, r := range results {
		if r.err != nil {
			c.logger.Warn("month skipped during import",
				"month", r.month.String(), "error", r.err)
			skipped = append(skipped, r.month.String())
			continue
		}

		state.ConsumptionTotal += c.sum(r.data.consumption)
		state.ExportTotal += c.sum(r.data.export)
		fallback = fallback || r.data.fallback

		if !force {
			state.AddMonth(r.month.String())
		}
	}

	if err := c.deps.Store.Save(c.config.MeterID, state); err != nil {
		return nil, fmt.Errorf("failed to persist imported totals: %w", err)
	}

	totals := DirectionSums{
		Consumption: state.ConsumptionTotal,
		Export:      state.ExportTotal,
	}

	// Import is a lifetime-total operation, not a live read: period
	// sums stay zeroed and year-to-date mirrors the new totals.
	snapshot := &Snapshot{
		Lifetime:   totals,
		YearToDate: totals,
		Diagnostics: Diagnostics{
			SkippedMonths: skipped,
			FallbackUsed:  fallback,
		},
		UpdatedAt: c.config.Clock.Now(),
	}

	c.setSnapshot(snapshot)

	c.logger.Info("import complete",
		"imported", len(work)-len(skipped),
		"skipped", len(skipped),
		"consumption_total", totals.Consumption,
		"export_total", totals.Export)

	return snapshot, nil
}

// ResetTotals implements Coordinator.ResetTotals.
func (c *coordinator) ResetTotals() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := &store.State{}
	if err := c.deps.Store.Save(c.config.MeterID, state); err != nil {
		return nil, fmt.Errorf("failed to persist reset state: %w", err)
	}

	snapshot := &Snapshot{
		UpdatedAt: c.config.Clock.Now(),
	}

	c.setSnapshot(snapshot)

	c.logger.Info("totals reset")

	return snapshot, nil
}

// ClearImportCache implements Coordinator.ClearImportCache.
func (c *coordinator) ClearImportCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.deps.Store.Load(c.config.MeterID)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	state.ImportedMonths = nil

	if err := c.deps.Store.Save(c.config.MeterID, state); err != nil {
		return fmt.Errorf("failed to persist cleared import cache: %w", err)
	}

	c.logger.Info("import cache cleared")

	return nil
}

// Snapshot implements Coordinator.Snapshot.
func (c *coordinator) Snapshot() *Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()

	return c.last
}

func (c *coordinator) setSnapshot(s *Snapshot) {
	c.snapMu.Lock()
	c.last = s
	c.snapMu.Unlock()
}

// yearToDate returns cumulative sums from January of the current year
// through the current month, recomputing only when the cached value
// was produced on a different calendar date.
func (c *coordinator) yearToDate(ctx context.Context, now time.Time, fetched map[meter.MonthKey]monthData) (DirectionSums, []string) {
	if c.ytd != nil && sameDate(c.ytd.computedOn, now) {
		return c.ytd.sums, c.ytd.skipped
	}

	var (
		sums    DirectionSums
		skipped []string
	)

	currentKey := meter.MonthKeyFor(now)
	month := meter.MonthKey{Month: time.January, Year: now.Year()}

	for i := 0; i < maxYTDIterations; i++ {
		data, ok := fetched[month]
		if !ok {
			var err error
			data, err = c.fetchMonth(ctx, month)
			if err != nil {
				c.logger.Warn("month skipped in year-to-date walk",
					"month", month.String(), "error", err)
				skipped = append(skipped, month.String())
				data = monthData{}
			}
		}

		sums.Consumption += c.sum(data.consumption)
		sums.Export += c.sum(data.export)

		if month == currentKey {
			break
		}
		month = month.Next()
	}

	c.ytd = &ytdCache{
		sums:       sums,
		skipped:    skipped,
		computedOn: now,
	}

	return sums, skipped
}

// fetchMonth retrieves and parses both directions of one month. Any
// fetch failure fails the whole month; a not-found direction yields
// no readings.
func (c *coordinator) fetchMonth(ctx context.Context, month meter.MonthKey) (monthData, error) {
	var data monthData

	consumption, fallbackC, err := c.fetchDirection(ctx, month, meter.DirectionConsumption)
	if err != nil {
		return monthData{}, err
	}

	export, fallbackE, err := c.fetchDirection(ctx, month, meter.DirectionExport)
	if err != nil {
		return monthData{}, err
	}

	data.consumption = consumption
	data.export = export
	data.fallback = fallbackC || fallbackE

	return data, nil
}

func (c *coordinator) fetchDirection(ctx context.Context, month meter.MonthKey, direction meter.Direction) ([]meter.Reading, bool, error) {
	result, err := c.deps.Client.FetchMonth(ctx, month, direction)
	if err != nil {
		return nil, false, err
	}
	if result.Status == fetcher.StatusNotFound {
		return nil, false, nil
	}

	readings, fallback := c.deps.Parser.Parse(result.Body, c.config.Layout)
	return readings, fallback, nil
}

// convert maps a raw column value to kWh. Power samples are divided
// by 4, assuming the portal's fixed 15-minute sampling interval; the
// interval is not derived from timestamps.
func (c *coordinator) convert(value float64) float64 {
	if c.config.ValueIsEnergy {
		return value
	}
	return value / 4
}

func (c *coordinator) sum(readings []meter.Reading) float64 {
	var total float64
	for _, r := range readings {
		total += c.convert(r.Value)
	}
	return total
}

// sumOn sums readings whose calendar date matches day.
func (c *coordinator) sumOn(readings []meter.Reading, day time.Time) float64 {
	var total float64
	for _, r := range readings {
		if sameDate(r.Timestamp, day) {
			total += c.convert(r.Value)
		}
	}
	return total
}

func lastTimestamp(readings []meter.Reading) time.Time {
	var last time.Time
	for _, r := range readings {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return last
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
