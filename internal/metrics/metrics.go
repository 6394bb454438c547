// Package metrics exports expiration run statistics in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
)

const namespace = "crm_notifier"

// Metrics implements expiration.Recorder on a dedicated registry.
type Metrics struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	candidates prometheus.Counter
	sent       prometheus.Counter
	skipped    *prometheus.CounterVec
	failed     prometheus.Counter
	errors     prometheus.Counter
	duration   prometheus.Histogram
	lastRun    prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Expiration runs by result (ok, error).",
		}, []string{"result"}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Services found inside the renewal window.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Renewal reminders delivered.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_skipped_total",
			Help:      "Candidates skipped, by reason.",
		}, []string{"reason"}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_failed_total",
			Help:      "Candidates whose reminder could not be delivered.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_errors_total",
			Help:      "Per-candidate errors reported in run summaries.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of expiration runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without a fatal error.",
		}),
	}
	m.registry.MustRegister(
		m.runs, m.candidates, m.sent, m.skipped, m.failed, m.errors, m.duration, m.lastRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun implements expiration.Recorder.
func (m *Metrics) ObserveRun(summary *expiration.RunSummary, err error, elapsed time.Duration) {
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.runs.WithLabelValues("error").Inc()
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.lastRun.SetToCurrentTime()
	if summary == nil || summary.DryRun {
		return
	}
	m.candidates.Add(float64(summary.Found))
	m.sent.Add(float64(summary.Sent))
	m.failed.Add(float64(summary.Failed))
	m.errors.Add(float64(len(summary.Errors)))
	for reason, n := range summary.SkipCounts() {
		m.skipped.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
