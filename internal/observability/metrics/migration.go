// Package metrics provides migration pipeline metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MigrationMetrics contains Prometheus metrics for the migration pipeline
type MigrationMetrics struct {
	registry *prometheus.Registry

	recordsTotal    *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	overallProgress prometheus.Gauge
	runsTotal       *prometheus.CounterVec
}

// NewMigrationMetrics creates a new MigrationMetrics instance and registers
// its collectors with the provided registry.
func NewMigrationMetrics(registry *prometheus.Registry) (*MigrationMetrics, error) {
	m := &MigrationMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MigrationMetrics) initMetrics() error {
	m.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_records_total",
			Help: "Number of source records processed, by entity and result",
		},
		[]string{"entity", "result"},
	)

	m.stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "migration_step_duration_seconds",
			Help:    "Duration of migration pipeline steps",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"step"},
	)

	m.overallProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "migration_overall_progress_ratio",
			Help: "Overall migration progress as a fraction between 0 and 1",
		},
	)

	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_runs_total",
			Help: "Number of migration runs, by terminal state",
		},
		[]string{"state"},
	)

	collectors := []prometheus.Collector{
		m.recordsTotal,
		m.stepDuration,
		m.overallProgress,
		m.runsTotal,
	}
	for _, collector := range collectors {
		if err := m.registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// IncRecords adds n processed records for an entity and result label.
func (m *MigrationMetrics) IncRecords(entity, result string, n int) {
	if n <= 0 {
		return
	}
	m.recordsTotal.WithLabelValues(entity, result).Add(float64(n))
}

// ObserveStepDuration records the duration of one pipeline step.
func (m *MigrationMetrics) ObserveStepDuration(step string, seconds float64) {
	m.stepDuration.WithLabelValues(step).Observe(seconds)
}

// SetOverallProgress updates the overall progress gauge.
func (m *MigrationMetrics) SetOverallProgress(ratio float64) {
	m.overallProgress.Set(ratio)
}

// IncRuns counts one finished run with its terminal state.
func (m *MigrationMetrics) IncRuns(state string) {
	m.runsTotal.WithLabelValues(state).Inc()
}
