package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dkralj/hepmeter/pkg/config"
	"github.com/dkralj/hepmeter/pkg/coordinator"
	"github.com/dkralj/hepmeter/pkg/display"
	"github.com/dkralj/hepmeter/pkg/exporter"
	"github.com/dkralj/hepmeter/pkg/fetcher"
	"github.com/dkralj/hepmeter/pkg/logger"
	"github.com/dkralj/hepmeter/pkg/meter"
	"github.com/dkralj/hepmeter/pkg/parser"
	"github.com/dkralj/hepmeter/pkg/store"
	"github.com/dkralj/hepmeter/pkg/watcher"
)

// app bundles the wired components behind every command.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	store store.Store
	coord coordinator.Coordinator
}

// newApp loads configuration and wires the component graph.
func newApp(configPath string) (*app, error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})

	client, err := fetcher.New(fetcher.Config{
		BaseURL:  cfg.Portal.BaseURL,
		Username: cfg.Portal.Username,
		Password: cfg.Portal.Password,
		OIB:      cfg.Portal.OIB,
		OMM:      cfg.Portal.OMM,
		Timeout:  cfg.Portal.RequestTimeout,
		Retry:    fetcher.RetryPolicy{MaxAttempts: cfg.Portal.MaxAttempts},
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize portal client: %w", err)
	}

	st, err := store.New(store.Config{DBPath: cfg.Storage.DBPath}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}

	var sink coordinator.Exporter
	if cfg.Influx.Enabled {
		sink, err = exporter.New(exporter.Config{
			URL:           cfg.Influx.URL,
			Token:         cfg.Influx.Token,
			Org:           cfg.Influx.Org,
			Bucket:        cfg.Influx.Bucket,
			OMM:           cfg.Portal.OMM,
			ValueIsEnergy: cfg.Parser.ValueIsEnergy,
			SeriesRaw:     cfg.Influx.SeriesRaw,
			SeriesDaily:   cfg.Influx.SeriesDaily,
			SeriesMonthly: cfg.Influx.SeriesMonthly,
		}, log)
		if err != nil {
			closeStore(st, log)
			return nil, fmt.Errorf("failed to initialize influx exporter: %w", err)
		}
	} else {
		sink = exporter.Noop()
	}

	coord, err := coordinator.New(coordinator.Config{
		MeterID: cfg.Portal.OMM,
		Layout: parser.Layout{
			DateColumn:  cfg.Parser.DateColumn,
			TimeColumn:  cfg.Parser.TimeColumn,
			ValueColumn: cfg.Parser.ValueColumn,
			DateLayout:  cfg.Parser.DateLayout,
			TimeLayout:  cfg.Parser.TimeLayout,
		},
		ValueIsEnergy:        cfg.Parser.ValueIsEnergy,
		SyncTotalToYTD:       cfg.Coordinator.SyncTotalToYTD,
		MaxConcurrentImports: cfg.Coordinator.MaxConcurrentImports,
	}, coordinator.Dependencies{
		Client:   client,
		Parser:   parser.New(),
		Store:    st,
		Exporter: sink,
	}, log)
	if err != nil {
		closeStore(st, log)
		return nil, fmt.Errorf("failed to initialize coordinator: %w", err)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: st,
		coord: coord,
	}, nil
}

// Close releases the application's resources.
func (a *app) Close() {
	closeStore(a.store, a.log)
}

func closeStore(st store.Store, log logger.Logger) {
	if err := st.Close(); err != nil {
		log.Error("failed to close state store", "error", err)
	}
}

// formatter builds a display formatter, auto-detecting the format
// from the terminal when none was requested.
func formatter(format string, compact bool) (display.Formatter, error) {
	f := display.Format(format)
	if format == "" {
		f = display.DetectFormat(os.Stdout)
	} else if !f.Valid() {
		return nil, fmt.Errorf("unknown output format: %s", format)
	}

	return display.New(display.Config{
		Format:          f,
		ShowDiagnostics: true,
		Compact:         compact,
	}), nil
}

// refreshCommand runs one update cycle.
type refreshCommand struct {
	format     string
	compact    bool
	configPath string
}

// Execute runs the refresh command.
func (c *refreshCommand) Execute() error {
	fmtr, err := formatter(c.format, c.compact)
	if err != nil {
		return err
	}

	a, err := newApp(c.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.coord.Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	return fmtr.FormatSnapshot(os.Stdout, snapshot)
}

// watchCommand runs the periodic refresh daemon.
type watchCommand struct {
	format     string
	configPath string
}

// Execute runs the watch command.
func (c *watchCommand) Execute() error {
	fmtr, err := formatter(c.format, false)
	if err != nil {
		return err
	}

	a, err := newApp(c.configPath)
	if err != nil {
		return err
	}
	defer func() { a.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.backfill(ctx, a); err != nil {
		return err
	}

	runCycle := func() {
		snapshot, refreshErr := a.coord.TryRefresh(ctx)
		if refreshErr != nil {
			if errors.Is(refreshErr, coordinator.ErrRefreshInProgress) {
				a.log.Warn("refresh still running, skipping cycle")
				return
			}
			a.log.Error("refresh failed", "error", refreshErr)
			return
		}
		if err := fmtr.FormatSnapshot(os.Stdout, snapshot); err != nil {
			a.log.Error("failed to print snapshot", "error", err)
		}
	}

	runCycle()

	configWatcher := c.startConfigWatcher(ctx, a.log)
	if configWatcher != nil {
		defer func() { _ = configWatcher.Close() }()
	}

	ticker := time.NewTicker(a.cfg.Coordinator.ScanInterval)
	defer ticker.Stop()

	a.log.Info("watch daemon started",
		"scan_interval", a.cfg.Coordinator.ScanInterval)

	for {
		var events <-chan watcher.Event
		var watchErrs <-chan error
		if configWatcher != nil {
			events = configWatcher.Events()
			watchErrs = configWatcher.Errors()
		}

		select {
		case <-ctx.Done():
			a.log.Info("watch daemon stopping")
			return nil

		case <-ticker.C:
			runCycle()

		case event, ok := <-events:
			if !ok {
				configWatcher = nil
				continue
			}
			a.log.Info("config changed, reloading", "path", event.Path)

			reloaded, reloadErr := c.reload(a)
			if reloadErr != nil {
				if reloaded == nil {
					return fmt.Errorf("config reload failed: %w", reloadErr)
				}
				a.log.Error("config reload failed, keeping previous config",
					"error", reloadErr)
				continue
			}
			a = reloaded
			ticker.Reset(a.cfg.Coordinator.ScanInterval)
			runCycle()

		case watchErr, ok := <-watchErrs:
			if !ok {
				configWatcher = nil
				continue
			}
			if errors.Is(watchErr, watcher.ErrCircuitBreakerOpen) {
				a.log.Error("config watcher gave up, hot-reload disabled")
				_ = configWatcher.Close()
				configWatcher = nil
				continue
			}
			a.log.Warn("config watcher error", "error", watchErr)
		}
	}
}

// backfill imports the configured window of past months on the first
// run, when no month has been imported yet.
func (c *watchCommand) backfill(ctx context.Context, a *app) error {
	window := a.cfg.Coordinator.BackfillMonths
	if window <= 0 {
		return nil
	}

	state, err := a.store.Load(a.cfg.Portal.OMM)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if len(state.ImportedMonths) > 0 {
		return nil
	}

	months := meter.MonthsBack(window, time.Now())
	a.log.Info("first run, backfilling history", "months", len(months))

	if _, err := a.coord.ImportHistory(ctx, months, false); err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	return nil
}

// startConfigWatcher watches the active config file when one exists.
func (c *watchCommand) startConfigWatcher(ctx context.Context, log logger.Logger) watcher.Watcher {
	path := activeConfigPath(c.configPath)
	if path == "" {
		log.Debug("no config file found, hot-reload disabled")
		return nil
	}

	w, err := watcher.New(watcher.Config{Path: path}, log)
	if err != nil {
		log.Warn("failed to create config watcher, hot-reload disabled", "error", err)
		return nil
	}
	if err := w.Start(ctx); err != nil {
		log.Warn("failed to start config watcher, hot-reload disabled", "error", err)
		_ = w.Close()
		return nil
	}

	return w
}

// reload rebuilds the component graph from the current config file.
// The new config is validated before the old app is torn down, so a
// broken edit never takes the daemon down. Returns the old app
// unchanged when validation fails.
func (c *watchCommand) reload(old *app) (*app, error) {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return old, fmt.Errorf("new config rejected: %w", err)
	}

	// The bolt file is single-writer; release it before reopening.
	old.Close()

	return newApp(c.configPath)
}

// activeConfigPath resolves the config file the loader would use.
func activeConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, path := range []string{"config.yaml", config.DefaultPath()} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// importCommand imports specific months.
type importCommand struct {
	months     string
	force      bool
	configPath string
}

// Execute runs the import command.
func (c *importCommand) Execute() error {
	months, err := parseMonths(c.months)
	if err != nil {
		return err
	}

	a, err := newApp(c.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.coord.ImportHistory(context.Background(), months, c.force)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	printImportResult(snapshot)
	return nil
}

// importYearsCommand imports whole years.
type importYearsCommand struct {
	years      string
	force      bool
	configPath string
}

// Execute runs the import-years command.
func (c *importYearsCommand) Execute() error {
	years, err := parseYears(c.years)
	if err != nil {
		return err
	}

	a, err := newApp(c.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.coord.ImportYears(context.Background(), years, c.force)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	printImportResult(snapshot)
	return nil
}

// resetCommand clears lifetime totals and the imported-months set.
type resetCommand struct {
	configPath string
}

// Execute runs the reset command.
func (c *resetCommand) Execute() error {
	a, err := newApp(c.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.coord.ResetTotals(); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	fmt.Println("Lifetime totals and import cache cleared")
	return nil
}

// clearImportsCommand clears only the imported-months set.
type clearImportsCommand struct {
	configPath string
}

// Execute runs the clear-imports command.
func (c *clearImportsCommand) Execute() error {
	a, err := newApp(c.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.coord.ClearImportCache(); err != nil {
		return fmt.Errorf("clear-imports failed: %w", err)
	}

	fmt.Println("Import cache cleared; previously imported months are eligible again")
	return nil
}

func printImportResult(snapshot *coordinator.Snapshot) {
	fmt.Printf("Lifetime totals: consumption %.2f kWh, export %.2f kWh\n",
		snapshot.Lifetime.Consumption, snapshot.Lifetime.Export)
	if len(snapshot.Diagnostics.SkippedMonths) > 0 {
		fmt.Printf("Skipped months: %s\n",
			strings.Join(snapshot.Diagnostics.SkippedMonths, ", "))
	}
}

// parseMonths parses a comma-separated month list.
func parseMonths(s string) ([]meter.MonthKey, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("no months given")
	}

	months, err := meter.ParseMonthKeys(parts)
	if err != nil {
		return nil, fmt.Errorf("invalid month list: %w", err)
	}
	return months, nil
}

// parseYears parses a comma-separated year list.
func parseYears(s string) ([]int, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("no years given")
	}

	years := make([]int, 0, len(parts))
	for _, part := range parts {
		year, err := strconv.Atoi(part)
		if err != nil || year < 2000 || year > 2200 {
			return nil, fmt.Errorf("invalid year: %s", part)
		}
		years = append(years, year)
	}
	return years, nil
}

func splitList(s string) []string {
	var parts []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
