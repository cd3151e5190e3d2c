package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default returns a configuration with sensible default values.
//
// The parser defaults describe the portal's XLS-era export: date in
// column 1 as "02.01.2006", time in column 2 as "15:04:05", energy in
// column 7, values already in kWh.
func Default() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:        "https://mjerenje.hep.hr/mjerenja/v1/api",
			RequestTimeout: 30 * time.Second,
			MaxAttempts:    3,
		},
		Parser: ParserConfig{
			DateColumn:    1,
			TimeColumn:    2,
			ValueColumn:   7,
			DateLayout:    "02.01.2006",
			TimeLayout:    "15:04:05",
			ValueIsEnergy: true,
		},
		Coordinator: CoordinatorConfig{
			ScanInterval:         6 * time.Hour,
			BackfillMonths:       12,
			SyncTotalToYTD:       true,
			MaxConcurrentImports: 2,
		},
		Influx: InfluxConfig{
			Enabled:       false,
			SeriesRaw:     true,
			SeriesDaily:   true,
			SeriesMonthly: true,
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}

// defaultConfigPath returns the standard config file location.
func defaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultDBPath returns the standard database file location.
func defaultDBPath() string {
	return filepath.Join(configDir(), "hepmeter.db")
}

// configDir returns the hepmeter configuration directory.
//
// Falls back to the current directory when the home directory
// cannot be determined.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hepmeter"
	}
	return filepath.Join(home, ".config", "hepmeter")
}
