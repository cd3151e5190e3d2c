// Package main provides the hepmeter CLI application.
//
// hepmeter pulls interval meter data from the HEP metering portal,
// aggregates consumption and export totals, and optionally forwards
// readings to InfluxDB. It runs one-shot commands or a long-lived
// watch daemon.
package main

import (
	"flag"
	"fmt"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	// Define global flags.
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	// Parse command.
	flag.Parse()

	// Handle version flag.
	if *showVersion {
		fmt.Printf("hepmeter %s\n", version)
		return nil
	}

	// Get command.
	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	switch command {
	case "refresh":
		return runRefreshCommand(*configPath, args[1:])
	case "watch":
		return runWatchCommand(*configPath, args[1:])
	case "import":
		return runImportCommand(*configPath, args[1:])
	case "import-years":
		return runImportYearsCommand(*configPath, args[1:])
	case "reset":
		return runResetCommand(*configPath)
	case "clear-imports":
		return runClearImportsCommand(*configPath)
	case "config":
		return runConfigCommand(*configPath, args[1:])
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runRefreshCommand runs the refresh command.
func runRefreshCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	format := fs.String("format", "", "output format (table, json, simple; default: auto-detect)")
	compact := fs.Bool("compact", false, "compact output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &refreshCommand{
		format:     *format,
		compact:    *compact,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runWatchCommand runs the watch daemon.
func runWatchCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	format := fs.String("format", "simple", "output format per cycle (table, json, simple)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &watchCommand{
		format:     *format,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runImportCommand runs the import command.
func runImportCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	months := fs.String("months", "", "comma-separated months to import (MM.YYYY)")
	force := fs.Bool("force", false, "re-import months already recorded as imported")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *months == "" {
		return fmt.Errorf("import requires -months (e.g. -months 03.2024,04.2024)")
	}

	cmd := &importCommand{
		months:     *months,
		force:      *force,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runImportYearsCommand runs the import-years command.
func runImportYearsCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("import-years", flag.ExitOnError)
	years := fs.String("years", "", "comma-separated years to import (e.g. 2023,2024)")
	force := fs.Bool("force", false, "re-import months already recorded as imported")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *years == "" {
		return fmt.Errorf("import-years requires -years (e.g. -years 2023,2024)")
	}

	cmd := &importYearsCommand{
		years:      *years,
		force:      *force,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runResetCommand runs the reset command.
func runResetCommand(configPath string) error {
	cmd := &resetCommand{configPath: configPath}
	return cmd.Execute()
}

// runClearImportsCommand runs the clear-imports command.
func runClearImportsCommand(configPath string) error {
	cmd := &clearImportsCommand{configPath: configPath}
	return cmd.Execute()
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string) error {
	cmd := &configCommand{configPath: configPath}
	return cmd.Execute(args)
}

// showUsage displays usage information.
func showUsage() error {
	usage := `hepmeter - HEP metering portal aggregation tool

Usage:
  hepmeter [flags] <command> [command flags]

Commands:
  refresh        Run one update cycle and print the snapshot
  watch          Run the daemon: periodic refresh with config hot-reload
  import         Import whole months into the lifetime totals
  import-years   Import whole years into the lifetime totals
  reset          Clear lifetime totals and the imported-months set
  clear-imports  Clear only the imported-months set
  config         Configuration management (show, path, init)
  help           Show this help message

Global Flags:
  -config        Path to configuration file
  -version       Show version information

Refresh Command Flags:
  -format        Output format (table, json, simple; default: auto-detect)
  -compact       Compact output

Watch Command Flags:
  -format        Output format per cycle (table, json, simple)

Import Command Flags:
  -months        Comma-separated months (MM.YYYY), required
  -force         Re-import already imported months

Import-Years Command Flags:
  -years         Comma-separated years, required
  -force         Re-import already imported months

Examples:
  # One refresh cycle, table output
  hepmeter refresh

  # Refresh with JSON output
  hepmeter refresh -format json

  # Run the daemon
  hepmeter watch

  # Backfill two specific months
  hepmeter import -months 03.2024,04.2024

  # Re-import a whole year
  hepmeter import-years -years 2023 -force

  # Start over
  hepmeter reset

  # Write a default configuration file
  hepmeter config init

Version: %s
`

	fmt.Printf(usage, version)
	return nil
}
