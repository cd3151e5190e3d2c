package exporter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dkralj/hepmeter/pkg/logger"
	"github.com/dkralj/hepmeter/pkg/meter"
)

// influxExporter implements Exporter against the InfluxDB v2 write API.
type influxExporter struct {
	config Config
	http   *http.Client
	logger logger.Logger
}

// New creates an InfluxDB exporter.
//
// Parameters:
//   - cfg: Exporter configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Exporter
//   - Error if the sink location is incomplete
func New(cfg Config, log logger.Logger) (Exporter, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	// Set default timeout.
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &influxExporter{
		config: cfg,
		http:   httpClient,
		logger: log,
	}, nil
}

// noopExporter implements Exporter by discarding everything.
type noopExporter struct{}

func (noopExporter) Export(context.Context, meter.MonthKey, []meter.Reading, []meter.Reading) error {
	return nil
}

// Noop returns an Exporter that writes nothing. Used when the sink is
// disabled in configuration.
func Noop() Exporter { return noopExporter{} }

// Export implements Exporter.Export.
func (e *influxExporter) Export(ctx context.Context, month meter.MonthKey, consumption, export []meter.Reading) error {
	lines := e.buildLines(month, consumption, export)
	if len(lines) == 0 {
		return nil
	}

	writeURL := fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s&precision=ns",
		strings.TrimRight(e.config.URL, "/"),
		url.QueryEscape(e.config.Org),
		url.QueryEscape(e.config.Bucket))

	body := strings.Join(lines, "\n")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, writeURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build write request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+e.config.Token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("influx write failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &WriteError{Code: resp.StatusCode}
	}

	e.logger.Debug("influx write complete",
		"month", month.String(),
		"lines", len(lines))

	return nil
}

// buildLines renders all enabled series as line protocol.
func (e *influxExporter) buildLines(month meter.MonthKey, consumption, export []meter.Reading) []string {
	var lines []string

	if e.config.SeriesRaw {
		lines = append(lines, e.rawLines("consumption_kwh", consumption)...)
		lines = append(lines, e.rawLines("export_kwh", export)...)
	}
	if e.config.SeriesDaily {
		lines = append(lines, e.dailyLines(consumption, export)...)
	}
	if e.config.SeriesMonthly {
		if line, ok := e.monthlyLine(month, consumption, export); ok {
			lines = append(lines, line)
		}
	}

	return lines
}

func (e *influxExporter) rawLines(field string, readings []meter.Reading) []string {
	lines := make([]string, 0, len(readings))
	for _, r := range readings {
		lines = append(lines, fmt.Sprintf("%s,omm=%s %s=%s %d",
			measurement, e.config.OMM,
			field, formatValue(e.convert(r.Value)),
			r.Timestamp.UnixNano()))
	}
	return lines
}

func (e *influxExporter) dailyLines(consumption, export []meter.Reading) []string {
	type daySums struct {
		consumption float64
		export      float64
	}

	days := make(map[time.Time]*daySums)
	bucket := func(ts time.Time) *daySums {
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
		if days[day] == nil {
			days[day] = &daySums{}
		}
		return days[day]
	}

	for _, r := range consumption {
		bucket(r.Timestamp).consumption += e.convert(r.Value)
	}
	for _, r := range export {
		bucket(r.Timestamp).export += e.convert(r.Value)
	}

	keys := make([]time.Time, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	lines := make([]string, 0, len(keys))
	for _, day := range keys {
		sums := days[day]
		lines = append(lines, fmt.Sprintf("%s,omm=%s,granularity=daily consumption_kwh=%s,export_kwh=%s %d",
			measurement, e.config.OMM,
			formatValue(sums.consumption), formatValue(sums.export),
			day.UnixNano()))
	}
	return lines
}

func (e *influxExporter) monthlyLine(month meter.MonthKey, consumption, export []meter.Reading) (string, bool) {
	if len(consumption) == 0 && len(export) == 0 {
		return "", false
	}

	var sumC, sumE float64
	for _, r := range consumption {
		sumC += e.convert(r.Value)
	}
	for _, r := range export {
		sumE += e.convert(r.Value)
	}

	// The aggregate point is stamped on the first of the month.
	return fmt.Sprintf("%s,omm=%s,granularity=monthly consumption_kwh=%s,export_kwh=%s %d",
		measurement, e.config.OMM,
		formatValue(sumC), formatValue(sumE),
		month.Time().UnixNano()), true
}

func (e *influxExporter) convert(value float64) float64 {
	if e.config.ValueIsEnergy {
		return value
	}
	return value / 4
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
