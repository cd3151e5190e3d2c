package exporter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dkralj/hepmeter/pkg/logger"
	"github.com/dkralj/hepmeter/pkg/meter"
)

type capturedWrite struct {
	path  string
	query string
	auth  string
	lines []string
}

func newTestExporter(t *testing.T, mutate func(cfg *Config)) (Exporter, *capturedWrite) {
	t.Helper()

	captured := &capturedWrite{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read write body: %v", err)
		}
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.auth = r.Header.Get("Authorization")
		captured.lines = strings.Split(strings.TrimSpace(string(body)), "\n")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	cfg := Config{
		URL:           srv.URL,
		Token:         "secret",
		Org:           "home",
		Bucket:        "energy",
		OMM:           "7654321",
		ValueIsEnergy: true,
		SeriesRaw:     true,
		SeriesDaily:   true,
		SeriesMonthly: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	e, err := New(cfg, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return e, captured
}

func sampleReadings() (consumption, export []meter.Reading) {
	day1 := time.Date(2024, time.March, 1, 0, 15, 0, 0, time.Local)
	day2 := time.Date(2024, time.March, 2, 0, 15, 0, 0, time.Local)

	consumption = []meter.Reading{
		{Timestamp: day1, Value: 1.25},
		{Timestamp: day1.Add(15 * time.Minute), Value: 2.0},
		{Timestamp: day2, Value: 0.5},
	}
	export = []meter.Reading{
		{Timestamp: day1, Value: 0.75},
	}
	return consumption, export
}

func marchKey() meter.MonthKey {
	return meter.MonthKey{Month: time.March, Year: 2024}
}

func countPrefix(lines []string, prefix string) int {
	n := 0
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Bucket: "b"}, logger.Noop()); !errors.Is(err, ErrMissingURL) {
		t.Errorf("New() error = %v, want ErrMissingURL", err)
	}
	if _, err := New(Config{URL: "http://x"}, logger.Noop()); !errors.Is(err, ErrMissingBucket) {
		t.Errorf("New() error = %v, want ErrMissingBucket", err)
	}
}

func TestExportWritesAllSeries(t *testing.T) {
	e, captured := newTestExporter(t, nil)
	consumption, export := sampleReadings()

	if err := e.Export(context.Background(), marchKey(), consumption, export); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if captured.path != "/api/v2/write" {
		t.Errorf("path = %q, want /api/v2/write", captured.path)
	}
	if !strings.Contains(captured.query, "org=home") ||
		!strings.Contains(captured.query, "bucket=energy") ||
		!strings.Contains(captured.query, "precision=ns") {
		t.Errorf("query = %q, missing org/bucket/precision", captured.query)
	}
	if captured.auth != "Token secret" {
		t.Errorf("auth = %q, want Token secret", captured.auth)
	}

	// 4 raw points, 2 daily sums, 1 monthly aggregate.
	if len(captured.lines) != 7 {
		t.Fatalf("got %d lines, want 7:\n%s", len(captured.lines), strings.Join(captured.lines, "\n"))
	}
	if got := countPrefix(captured.lines, "hep_energy,omm=7654321 "); got != 4 {
		t.Errorf("raw lines = %d, want 4", got)
	}
	if got := countPrefix(captured.lines, "hep_energy,omm=7654321,granularity=daily "); got != 2 {
		t.Errorf("daily lines = %d, want 2", got)
	}
	if got := countPrefix(captured.lines, "hep_energy,omm=7654321,granularity=monthly "); got != 1 {
		t.Errorf("monthly lines = %d, want 1", got)
	}
}

func TestExportLineContent(t *testing.T) {
	e, captured := newTestExporter(t, nil)
	consumption, export := sampleReadings()

	if err := e.Export(context.Background(), marchKey(), consumption, export); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	first := consumption[0]
	wantRaw := "hep_energy,omm=7654321 consumption_kwh=1.25 " +
		formatTimestamp(first.Timestamp)
	if captured.lines[0] != wantRaw {
		t.Errorf("lines[0] = %q, want %q", captured.lines[0], wantRaw)
	}

	day1 := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)
	wantDaily := "hep_energy,omm=7654321,granularity=daily consumption_kwh=3.25,export_kwh=0.75 " +
		formatTimestamp(day1)
	if !containsLine(captured.lines, wantDaily) {
		t.Errorf("missing daily line %q in:\n%s", wantDaily, strings.Join(captured.lines, "\n"))
	}

	wantMonthly := "hep_energy,omm=7654321,granularity=monthly consumption_kwh=3.75,export_kwh=0.75 " +
		formatTimestamp(marchKey().Time())
	if !containsLine(captured.lines, wantMonthly) {
		t.Errorf("missing monthly line %q in:\n%s", wantMonthly, strings.Join(captured.lines, "\n"))
	}
}

func TestExportSeriesToggles(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantLines int
	}{
		{
			name: "raw only",
			mutate: func(cfg *Config) {
				cfg.SeriesDaily = false
				cfg.SeriesMonthly = false
			},
			wantLines: 4,
		},
		{
			name: "daily only",
			mutate: func(cfg *Config) {
				cfg.SeriesRaw = false
				cfg.SeriesMonthly = false
			},
			wantLines: 2,
		},
		{
			name: "monthly only",
			mutate: func(cfg *Config) {
				cfg.SeriesRaw = false
				cfg.SeriesDaily = false
			},
			wantLines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, captured := newTestExporter(t, tt.mutate)
			consumption, export := sampleReadings()

			if err := e.Export(context.Background(), marchKey(), consumption, export); err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			if len(captured.lines) != tt.wantLines {
				t.Errorf("got %d lines, want %d", len(captured.lines), tt.wantLines)
			}
		})
	}
}

func TestExportNothingToWrite(t *testing.T) {
	written := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		written = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	e, err := New(Config{
		URL: srv.URL, Bucket: "energy", OMM: "1",
		SeriesRaw: true, SeriesDaily: true, SeriesMonthly: true,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Export(context.Background(), marchKey(), nil, nil); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if written {
		t.Error("empty export must not issue a write")
	}
}

func TestExportPowerConversion(t *testing.T) {
	e, captured := newTestExporter(t, func(cfg *Config) {
		cfg.ValueIsEnergy = false
		cfg.SeriesDaily = false
		cfg.SeriesMonthly = false
	})

	readings := []meter.Reading{{
		Timestamp: time.Date(2024, time.March, 1, 0, 15, 0, 0, time.Local),
		Value:     4.0,
	}}

	if err := e.Export(context.Background(), marchKey(), readings, nil); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if !strings.Contains(captured.lines[0], "consumption_kwh=1 ") {
		t.Errorf("line = %q, want 4kW sample converted to 1 kWh", captured.lines[0])
	}
}

func TestExportRejectedWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, err := New(Config{URL: srv.URL, Bucket: "energy", OMM: "1", SeriesRaw: true, ValueIsEnergy: true}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	consumption, _ := sampleReadings()
	err = e.Export(context.Background(), marchKey(), consumption, nil)

	var writeErr *WriteError
	if !errors.As(err, &writeErr) || writeErr.Code != http.StatusUnauthorized {
		t.Errorf("Export() error = %v, want WriteError 401", err)
	}
}

func TestNoopExporter(t *testing.T) {
	consumption, export := sampleReadings()
	if err := Noop().Export(context.Background(), marchKey(), consumption, export); err != nil {
		t.Errorf("Noop().Export() error = %v", err)
	}
}

func containsLine(lines []string, want string) bool {
	for _, line := range lines {
		if line == want {
			return true
		}
	}
	return false
}

func formatTimestamp(ts time.Time) string {
	return strconv.FormatInt(ts.UnixNano(), 10)
}
