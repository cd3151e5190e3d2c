// Package config provides configuration management for hepmeter.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file
// 3. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("metering point: %s\n", cfg.Portal.OMM)
package config

import (
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Portal.RequestTimeout must be > 0
// - Portal.MaxAttempts must be > 0
// - Parser column indices must be >= 0
// - Parser layouts must be non-empty
// - Coordinator.ScanInterval must be > 0
// - Coordinator.BackfillMonths must be >= 0
// - Coordinator.MaxConcurrentImports must be > 0.
type Config struct {
	// Portal contains remote metering portal settings.
	Portal PortalConfig `yaml:"portal"`

	// Parser contains the expected CSV layout.
	Parser ParserConfig `yaml:"parser"`

	// Coordinator contains aggregation policy settings.
	Coordinator CoordinatorConfig `yaml:"coordinator"`

	// Influx contains the optional time-series export sink settings.
	Influx InfluxConfig `yaml:"influx"`

	// Storage contains persisted state settings.
	Storage StorageConfig `yaml:"storage"`

	// Logging contains logging settings.
	Logging LoggingConfig `yaml:"logging"`
}

// PortalConfig contains credentials and connection settings for the
// remote metering portal.
type PortalConfig struct {
	// BaseURL is the portal API root.
	BaseURL string `yaml:"base_url"`

	// Username for the portal account.
	Username string `yaml:"username"`

	// Password for the portal account.
	Password string `yaml:"password"`

	// OIB is the account/tax identifier scoping the portal account.
	OIB string `yaml:"oib"`

	// OMM is the metering point identifier.
	OMM string `yaml:"omm"`

	// RequestTimeout bounds each portal request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxAttempts caps retries of transient portal failures.
	MaxAttempts int `yaml:"max_attempts"`
}

// ParserConfig describes the expected fixed CSV layout.
//
// The portal's export format has changed silently across versions, so
// these describe the common case only; the parser falls back to header
// keyword matching when this layout yields no rows.
type ParserConfig struct {
	// DateColumn is the zero-based index of the date column.
	DateColumn int `yaml:"date_column"`

	// TimeColumn is the zero-based index of the time column.
	TimeColumn int `yaml:"time_column"`

	// ValueColumn is the zero-based index of the numeric value column.
	ValueColumn int `yaml:"value_column"`

	// DateLayout is the Go time layout for the date column.
	DateLayout string `yaml:"date_layout"`

	// TimeLayout is the Go time layout for the time column.
	TimeLayout string `yaml:"time_layout"`

	// ValueIsEnergy is true when values are already kWh per interval.
	// When false, values are kW samples on a 15-minute grid and are
	// divided by 4 to obtain kWh.
	ValueIsEnergy bool `yaml:"value_is_energy"`
}

// CoordinatorConfig contains aggregation policy settings.
type CoordinatorConfig struct {
	// ScanInterval is how often the watch daemon refreshes.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// BackfillMonths is the first-run import window length.
	BackfillMonths int `yaml:"backfill_months"`

	// SyncTotalToYTD raises lifetime totals to year-to-date sums when
	// year-to-date exceeds them.
	SyncTotalToYTD bool `yaml:"sync_total_to_ytd"`

	// MaxConcurrentImports caps concurrent month fetches during imports.
	MaxConcurrentImports int `yaml:"max_concurrent_imports"`
}

// InfluxConfig contains the InfluxDB v2 export sink settings.
type InfluxConfig struct {
	// Enabled toggles the exporter as a whole.
	Enabled bool `yaml:"enabled"`

	// URL is the InfluxDB base URL, e.g. http://influxdb:8086.
	URL string `yaml:"url"`

	// Token is the InfluxDB API token.
	Token string `yaml:"token"`

	// Org is the InfluxDB organization.
	Org string `yaml:"org"`

	// Bucket is the target bucket.
	Bucket string `yaml:"bucket"`

	// SeriesRaw toggles raw interval points.
	SeriesRaw bool `yaml:"series_raw"`

	// SeriesDaily toggles daily sum points.
	SeriesDaily bool `yaml:"series_daily"`

	// SeriesMonthly toggles the single monthly aggregate point.
	SeriesMonthly bool `yaml:"series_monthly"`
}

// StorageConfig contains persisted state settings.
type StorageConfig struct {
	// DBPath is the BoltDB file path.
	DBPath string `yaml:"db_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`

	// Output is the log destination (stdout, stderr, file path).
	Output string `yaml:"output"`

	// Format is the log format (text, json).
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Credentials are deliberately not validated here; commands that talk
// to the portal check them when constructing the client, so that
// config init and config show work on an unconfigured machine.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return ErrNoBaseURL
	}
	if c.Portal.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Portal.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	if c.Parser.DateColumn < 0 || c.Parser.TimeColumn < 0 || c.Parser.ValueColumn < 0 {
		return ErrInvalidColumnIndex
	}
	if c.Parser.DateLayout == "" || c.Parser.TimeLayout == "" {
		return ErrInvalidLayout
	}

	if c.Coordinator.ScanInterval <= 0 {
		return ErrInvalidScanInterval
	}
	if c.Coordinator.BackfillMonths < 0 {
		return ErrInvalidBackfill
	}
	if c.Coordinator.MaxConcurrentImports <= 0 {
		return ErrInvalidConcurrency
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}
