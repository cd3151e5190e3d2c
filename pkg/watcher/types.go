// Package watcher monitors the configuration file for changes.
//
// The watch daemon uses it to reload configuration without a restart.
// Editors typically replace files on save (write to a temp file, then
// rename), so the watcher monitors the containing directory and
// filters events down to the configured file. Rapid event bursts are
// debounced into a single change notification.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    Path: "~/.config/hepmeter/config.yaml",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range w.Events() {
//	    cfg, _ := config.LoadFromFile(event.Path)
//	    apply(cfg)
//	}
package watcher

import (
	"context"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // File created
	OpWrite                 // File modified
	OpRemove                // File deleted
	OpRename                // File renamed/moved
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Event represents a change to the watched file.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Op is the operation that triggered the event.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Watcher monitors one configuration file.
type Watcher interface {
	// Start begins watching the configured file's directory.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//
	// Returns error if watching cannot be started.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the watcher.
	//
	// Returns error if shutdown fails.
	Stop() error

	// Events returns the channel for receiving change events.
	//
	// Events are debounced based on the configured interval.
	// The channel is closed when the watcher closes.
	Events() <-chan Event

	// Errors returns the channel for receiving watcher errors.
	//
	// Non-fatal errors are sent to this channel. After repeated
	// failures the circuit breaker opens and ErrCircuitBreakerOpen
	// is sent.
	Errors() <-chan error

	// Close closes the watcher and releases resources.
	//
	// Returns error if resources cannot be released cleanly.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// Path is the configuration file to watch. A leading ~ expands to
	// the user's home directory.
	Path string

	// DebounceInterval is the time to wait before emitting an event.
	// Multiple events within this interval are coalesced.
	// Default: 250ms.
	DebounceInterval time.Duration

	// CircuitBreakerThreshold is the number of watcher failures
	// before the circuit breaker opens.
	// Default: 5.
	CircuitBreakerThreshold int
}
