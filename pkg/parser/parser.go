package parser

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/dkralj/hepmeter/pkg/meter"
)

// fallbackTimestampLayouts are tried, in order, for rows that do not
// match the configured layout. They cover the datetime shapes the
// portal has been seen to emit across export versions.
var fallbackTimestampLayouts = []string{
	"02.01.2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// csvParser implements the Parser interface.
type csvParser struct{}

// New creates a new Parser instance.
func New() Parser {
	return &csvParser{}
}

// Parse implements Parser.Parse.
func (p *csvParser) Parse(raw []byte, layout Layout) ([]meter.Reading, bool) {
	rows := splitRows(raw)
	if len(rows) == 0 {
		return nil, false
	}

	readings := p.parseFixed(rows, layout)
	if len(readings) > 0 {
		return readings, false
	}

	// The fixed layout produced nothing; let the header decide.
	return p.parseByHeader(rows, layout), true
}

// parseFixed applies the configured fixed-column layout.
//
// The header row is discarded unread. Rows that are too short, or
// whose timestamp or value fails to parse, are skipped.
func (p *csvParser) parseFixed(rows [][]string, layout Layout) []meter.Reading {
	minLen := layout.DateColumn
	if layout.TimeColumn > minLen {
		minLen = layout.TimeColumn
	}
	if layout.ValueColumn > minLen {
		minLen = layout.ValueColumn
	}

	readings := make([]meter.Reading, 0, len(rows))

	for _, row := range rows[1:] {
		if len(row) <= minLen {
			continue
		}

		ts, ok := parseTimestamp(row[layout.DateColumn], row[layout.TimeColumn], layout)
		if !ok {
			continue
		}

		value, ok := parseValue(row[layout.ValueColumn])
		if !ok {
			continue
		}

		readings = append(readings, meter.Reading{Timestamp: ts, Value: value})
	}

	return readings
}

// parseByHeader locates columns by header keywords.
//
// Date and time columns are matched exactly ("datum"/"date",
// "vrijeme"/"time", case-insensitive). The value column is matched by
// substring: "energ" for energy, then "snaga"/"power" for power. When
// no labeled value column exists, each row is scanned right to left
// for the first numeric cell, skipping a column labeled "status".
func (p *csvParser) parseByHeader(rows [][]string, layout Layout) []meter.Reading {
	dateIdx, timeIdx, energyIdx, powerIdx, statusIdx := -1, -1, -1, -1, -1

	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "datum" || h == "date":
			dateIdx = i
		case h == "vrijeme" || h == "time":
			timeIdx = i
		case strings.Contains(h, "energ"):
			if energyIdx < 0 {
				energyIdx = i
			}
		case strings.Contains(h, "snaga") || strings.Contains(h, "power"):
			if powerIdx < 0 {
				powerIdx = i
			}
		case h == "status":
			statusIdx = i
		}
	}

	if dateIdx < 0 || timeIdx < 0 {
		return nil
	}

	valueCandidates := make([]int, 0, 2)
	if energyIdx >= 0 {
		valueCandidates = append(valueCandidates, energyIdx)
	}
	if powerIdx >= 0 {
		valueCandidates = append(valueCandidates, powerIdx)
	}

	readings := make([]meter.Reading, 0, len(rows))

	for _, row := range rows[1:] {
		if len(row) <= dateIdx || len(row) <= timeIdx {
			continue
		}

		ts, ok := parseTimestamp(row[dateIdx], row[timeIdx], layout)
		if !ok {
			continue
		}

		value, ok := pickValue(row, valueCandidates, statusIdx)
		if !ok {
			continue
		}

		readings = append(readings, meter.Reading{Timestamp: ts, Value: value})
	}

	return readings
}

// pickValue extracts the numeric value from a fallback-parsed row.
func pickValue(row []string, candidates []int, statusIdx int) (float64, bool) {
	for _, idx := range candidates {
		if idx >= len(row) {
			continue
		}
		if v, ok := parseValue(row[idx]); ok {
			return v, true
		}
	}

	// No labeled column parsed; scan right to left for the first
	// numeric cell that is not the status/flag column.
	for idx := len(row) - 1; idx >= 0; idx-- {
		if idx == statusIdx {
			continue
		}
		if v, ok := parseValue(row[idx]); ok {
			return v, true
		}
	}

	return 0, false
}

// parseTimestamp parses a date and time cell pair into a meter-local
// timestamp, trying the configured layout first and then the common
// fallback layouts.
func parseTimestamp(date, tm string, layout Layout) (time.Time, bool) {
	date = strings.TrimSpace(date)
	tm = padHour(strings.TrimSpace(tm))
	combined := date + " " + tm

	if ts, err := time.ParseInLocation(layout.DateLayout+" "+layout.TimeLayout, combined, time.Local); err == nil {
		return ts, true
	}

	for _, l := range fallbackTimestampLayouts {
		if ts, err := time.ParseInLocation(l, combined, time.Local); err == nil {
			return ts, true
		}
	}

	return time.Time{}, false
}

// parseValue parses a numeric cell, accepting both decimal comma and
// decimal point.
func parseValue(cell string) (float64, bool) {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, ",", "."))
	if cell == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// padHour left-pads a single-digit hour in an H:MM:SS token, so that
// "9:15:00" parses with the same layout as "09:15:00".
func padHour(tm string) string {
	parts := strings.Split(tm, ":")
	if len(parts) == 3 && len(parts[0]) == 1 {
		return "0" + tm
	}
	return tm
}

// splitRows splits raw CSV bytes into field rows.
//
// The field delimiter is detected from the first non-blank line: tab
// when present, semicolon otherwise. Blank lines are dropped. Rows are
// split manually rather than through encoding/csv because the portal
// emits unquoted fields with stray quote characters that the csv
// package rejects.
func splitRows(raw []byte) [][]string {
	if len(raw) == 0 {
		return nil
	}

	delim := ""
	rows := make([][]string, 0, 64)

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	buf := make([]byte, 0, 4*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if delim == "" {
			if strings.Contains(line, "\t") {
				delim = "\t"
			} else {
				delim = ";"
			}
		}

		rows = append(rows, strings.Split(line, delim))
	}

	return rows
}
