// Package metrics exports audit run statistics in the Prometheus text format,
// for pickup by the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/idelchi/staleaudit/internal/audit"
)

// Metrics holds the gauges describing a single audit run.
type Metrics struct {
	registry *prometheus.Registry

	Entries       *prometheus.GaugeVec
	EntryErrors   *prometheus.GaugeVec
	PhaseDuration *prometheus.GaugeVec
	CutoffDays    prometheus.Gauge
	Workers       prometheus.Gauge
	LastRun       prometheus.Gauge
}

// New creates the run metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Entries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "staleaudit_entries",
			Help: "Entries seen in the last audit, by outcome",
		}, []string{"state"}),
		EntryErrors: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "staleaudit_entry_errors",
			Help: "Per-entry errors in the last audit, by phase and kind",
		}, []string{"phase", "kind"}),
		PhaseDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "staleaudit_phase_duration_seconds",
			Help: "Duration of the last audit, by phase",
		}, []string{"phase"}),
		CutoffDays: factory.NewGauge(prometheus.GaugeOpts{
			Name: "staleaudit_cutoff_days",
			Help: "Access-age cutoff used by the last audit",
		}),
		Workers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "staleaudit_workers",
			Help: "Walker goroutines used by the last audit",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "staleaudit_last_run_timestamp_seconds",
			Help: "Unix time the last audit finished",
		}),
	}
}

// Observe records the statistics and errors of a finished run.
func (m *Metrics) Observe(stats *audit.Stats, errs []audit.EntryError, finished time.Time) {
	m.Entries.WithLabelValues("discovered").Set(float64(stats.Discovered))
	m.Entries.WithLabelValues("eligible").Set(float64(stats.Eligible))
	m.Entries.WithLabelValues("ineligible").Set(float64(stats.Ineligible))
	m.Entries.WithLabelValues("qualifying").Set(float64(stats.Qualifying))
	m.Entries.WithLabelValues("excluded").Set(float64(stats.Excluded))

	for _, e := range errs {
		m.EntryErrors.WithLabelValues(string(e.Phase), e.Kind.String()).Inc()
	}

	m.PhaseDuration.WithLabelValues("discovery").Set(stats.Discovery.Seconds())
	m.PhaseDuration.WithLabelValues("classification").Set(stats.Classification.Seconds())
	m.PhaseDuration.WithLabelValues("write").Set(stats.Write.Seconds())

	m.CutoffDays.Set(float64(stats.CutoffDays))
	m.Workers.Set(float64(stats.Workers))
	m.LastRun.Set(float64(finished.Unix()))
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile atomically writes the metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}
