package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/dkralj/hepmeter/pkg/coordinator"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatSnapshot implements Formatter.FormatSnapshot.
func (f *simpleFormatter) FormatSnapshot(w io.Writer, snapshot *coordinator.Snapshot) error {
	if snapshot == nil {
		_, err := fmt.Fprintln(w, "No data yet")
		return err
	}

	_, err := fmt.Fprintf(w, "Lifetime: %s/%s | YTD: %s/%s | Month: %s/%s | Yesterday: %s/%s\n",
		formatEnergy(snapshot.Lifetime.Consumption),
		formatEnergy(snapshot.Lifetime.Export),
		formatEnergy(snapshot.YearToDate.Consumption),
		formatEnergy(snapshot.YearToDate.Export),
		formatEnergy(snapshot.Month.Consumption),
		formatEnergy(snapshot.Month.Export),
		formatEnergy(snapshot.Yesterday.Consumption),
		formatEnergy(snapshot.Yesterday.Export))
	if err != nil {
		return err
	}

	if !f.config.ShowDiagnostics {
		return nil
	}

	diag := snapshot.Diagnostics
	if len(diag.SkippedMonths) > 0 {
		if _, err := fmt.Fprintf(w, "Skipped months: %s\n",
			strings.Join(diag.SkippedMonths, ", ")); err != nil {
			return err
		}
	}
	if diag.FallbackUsed {
		if _, err := fmt.Fprintln(w, "Fallback parse used"); err != nil {
			return err
		}
	}

	return nil
}
