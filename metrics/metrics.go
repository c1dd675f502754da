// Package metrics counts campaign progress on a private Prometheus registry
// that is written as a node_exporter textfile when the campaign ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "benchcamp"

// Metrics is the set of campaign collectors.
type Metrics struct {
	registry *prometheus.Registry

	Runs             *prometheus.CounterVec
	Failures         *prometheus.CounterVec
	RecordsDone      prometheus.Counter
	Reconfigurations prometheus.Counter
	Pending          prometheus.Gauge
	Estimate         prometheus.Gauge
	RunDuration      prometheus.Histogram
}

// New registers every collector on a fresh registry. Campaign and kind are
// attached as constant labels.
func New(campaign, kind string) *Metrics {
	labels := prometheus.Labels{"campaign": campaign, "kind": kind}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "runs_total",
			Help:        "Repetitions executed, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "failures_total",
			Help:        "Step failures, by phase.",
			ConstLabels: labels,
		}, []string{"phase"}),
		RecordsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "records_done_total",
			Help:        "Records marked done in this launch.",
			ConstLabels: labels,
		}),
		Reconfigurations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "reconfigurations_total",
			Help:        "Environment reconfigurations performed.",
			ConstLabels: labels,
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "records_pending",
			Help:        "Records not yet marked done.",
			ConstLabels: labels,
		}),
		Estimate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "estimate_seconds",
			Help:        "Estimated duration of the pending records.",
			ConstLabels: labels,
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "run_duration_seconds",
			Help:        "Wall-clock duration of one repetition.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	m.registry.MustRegister(
		m.Runs,
		m.Failures,
		m.RecordsDone,
		m.Reconfigurations,
		m.Pending,
		m.Estimate,
		m.RunDuration,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one repetition.
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
