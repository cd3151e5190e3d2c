// Package exporter forwards meter readings to an InfluxDB v2 sink.
//
// Three write granularities are independently toggleable: raw interval
// points, daily sums, and one monthly aggregate point. The coordinator
// treats the sink as best-effort; errors returned here are logged by
// the caller and never fail a refresh.
package exporter

import (
	"context"
	"net/http"
	"time"

	"github.com/dkralj/hepmeter/pkg/meter"
)

// measurement is the Influx measurement name for all series.
const measurement = "hep_energy"

// Exporter writes one month of readings to the sink.
type Exporter interface {
	// Export writes the month's readings at the enabled granularities.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - month: Month the readings belong to
	//   - consumption: Consumption readings
	//   - export: Export readings
	//
	// Returns error if the write fails. Writing nothing (no readings,
	// or all series disabled) is not an error.
	Export(ctx context.Context, month meter.MonthKey, consumption, export []meter.Reading) error
}

// Config contains exporter configuration.
type Config struct {
	// URL is the InfluxDB base URL.
	URL string

	// Token authenticates the write.
	Token string

	// Org is the InfluxDB organization.
	Org string

	// Bucket receives the points.
	Bucket string

	// OMM tags every point with the metering point identifier.
	OMM string

	// ValueIsEnergy selects the value interpretation, matching the
	// coordinator's: false divides raw values by 4.
	ValueIsEnergy bool

	// SeriesRaw enables raw interval points.
	SeriesRaw bool

	// SeriesDaily enables daily sum points.
	SeriesDaily bool

	// SeriesMonthly enables the monthly aggregate point.
	SeriesMonthly bool

	// Timeout bounds each write request. Default: 20s.
	Timeout time.Duration

	// HTTPClient overrides the underlying client. Used in tests.
	HTTPClient *http.Client
}
