// Package observability provides metrics collection for the migration engine.
// The engine never starts a listener of its own; callers expose the
// registry if they want scraping.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kitabu/kitabu-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Migration *metrics.MigrationMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors against a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	migrationMetrics, err := metrics.NewMigrationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Migration: migrationMetrics,
	}, nil
}

// Registry returns the underlying prometheus registry for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
