package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/dkralj/hepmeter/pkg/coordinator"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatSnapshot implements Formatter.FormatSnapshot.
func (f *tableFormatter) FormatSnapshot(w io.Writer, snapshot *coordinator.Snapshot) error {
	if snapshot == nil {
		_, err := fmt.Fprintln(w, "No data yet")
		return err
	}

	if err := writeHeader(w, "Energy Totals", f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Lifetime", formatEnergy(snapshot.Lifetime.Consumption), formatEnergy(snapshot.Lifetime.Export)},
		{"Year to Date", formatEnergy(snapshot.YearToDate.Consumption), formatEnergy(snapshot.YearToDate.Export)},
		{"This Month", formatEnergy(snapshot.Month.Consumption), formatEnergy(snapshot.Month.Export)},
		{"Previous Month", formatEnergy(snapshot.PrevMonth.Consumption), formatEnergy(snapshot.PrevMonth.Export)},
		{"Yesterday", formatEnergy(snapshot.Yesterday.Consumption), formatEnergy(snapshot.Yesterday.Export)},
	}

	if err := f.writeTable(w, []string{"Period", "Consumption (kWh)", "Export (kWh)"}, rows); err != nil {
		return err
	}

	if !f.config.ShowDiagnostics {
		return nil
	}

	if err := writeHeader(w, "Diagnostics", f.config.Compact); err != nil {
		return err
	}

	diag := snapshot.Diagnostics
	diagRows := [][]string{
		{"Current Month Rows", fmt.Sprintf("%d", diag.CurrentMonthRows)},
		{"Previous Month Rows", fmt.Sprintf("%d", diag.PrevMonthRows)},
		{"Fallback Parse Used", fmt.Sprintf("%t", diag.FallbackUsed)},
	}
	if !diag.LastConsumptionAt.IsZero() {
		diagRows = append(diagRows,
			[]string{"Last Consumption At", diag.LastConsumptionAt.Format("2006-01-02 15:04:05")})
	}
	if !diag.LastExportAt.IsZero() {
		diagRows = append(diagRows,
			[]string{"Last Export At", diag.LastExportAt.Format("2006-01-02 15:04:05")})
	}
	if len(diag.SkippedMonths) > 0 {
		diagRows = append(diagRows,
			[]string{"Skipped Months", strings.Join(diag.SkippedMonths, ", ")})
	}
	if !snapshot.UpdatedAt.IsZero() {
		diagRows = append(diagRows,
			[]string{"Updated At", snapshot.UpdatedAt.Format("2006-01-02 15:04:05")})
	}

	return f.writeTable(w, []string{"Metric", "Value"}, diagRows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Write header.
	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	// Write separator.
	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	// Write rows.
	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	// Add spacing.
	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	for i, cell := range cells {
		if i > 0 {
			if f.config.Compact {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(w, "  "); err != nil {
					return err
				}
			}
		}

		format := fmt.Sprintf("%%-%ds", widths[i])
		if _, err := fmt.Fprintf(w, format, cell); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}
