// Package metrics provides Prometheus metrics for report runs. A run is a
// batch job, so the collected values are written once to a node-exporter
// textfile instead of being served over HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of a report run.
type Metrics struct {
	PartitionRows  *prometheus.GaugeVec   // Rows per table partition
	DroppedColumns *prometheus.CounterVec // Columns removed per pruning filter
	KeptFeatures   prometheus.Gauge       // Features left after pruning
	StageSeconds   *prometheus.GaugeVec   // Wall time per pipeline stage
	Accuracy       *prometheus.GaugeVec   // Test-subset accuracy per model
	RunsTotal      prometheus.Counter     // Completed runs

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates metrics on the given registerer. When it is also a
// Gatherer, WriteTextfile exports from it; otherwise from the default gatherer.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	gatherer := prometheus.DefaultGatherer
	if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Metrics{
		PartitionRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "har_rows",
			Help: "Number of rows per table partition",
		}, []string{"partition"}),
		DroppedColumns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "har_columns_dropped_total",
			Help: "Total number of columns removed by each pruning filter",
		}, []string{"filter"}),
		KeptFeatures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "har_features_kept",
			Help: "Number of features kept after pruning",
		}),
		StageSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "har_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		}, []string{"stage"}),
		Accuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "har_model_accuracy",
			Help: "Accuracy of each model on the testing subset",
		}, []string{"model"}),
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "har_runs_total",
			Help: "Total number of completed runs",
		}),
		gatherer: gatherer,
	}
}

func (m *Metrics) SetRows(partition string, n int) {
	m.PartitionRows.WithLabelValues(partition).Set(float64(n))
}

func (m *Metrics) ColumnsDropped(filter string, n int) {
	m.DroppedColumns.WithLabelValues(filter).Add(float64(n))
}

func (m *Metrics) FeaturesKept(n int) {
	m.KeptFeatures.Set(float64(n))
}

func (m *Metrics) StageDuration(stage string, d time.Duration) {
	m.StageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

func (m *Metrics) SetAccuracy(model string, v float64) {
	m.Accuracy.WithLabelValues(model).Set(v)
}

func (m *Metrics) RunsInc() {
	m.RunsTotal.Inc()
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
