// Package observability owns the prometheus registry and otel tracer setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	executions      *prometheus.CounterVec
	executionTime   *prometheus.HistogramVec
	pluginRuns      *prometheus.CounterVec
	writeRetries    *prometheus.CounterVec
	writeFailures   *prometheus.CounterVec
	xpEarned        prometheus.Counter
	rejected        *prometheus.CounterVec
	reaped          prometheus.Counter
	progressUpdates *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "growthops",
			Subsystem: "runner",
			Name:      "executions_total",
			Help:      "Strategy executions by terminal status",
		}, []string{"status"}),
		executionTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "growthops",
			Subsystem: "runner",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock time of one strategy execution",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"status"}),
		pluginRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "growthops",
			Subsystem: "runner",
			Name:      "plugin_runs_total",
			Help:      "Plugin attempts by outcome (success, failure, skipped)",
		}, []string{"outcome"}),
		writeRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "growthops",
			Subsystem: "runner",
			Name:      "write_retries_total",
			Help:      "Retried execution record writes",
		}, []string{"op"}),
		writeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "growthops",
			Subsystem: "runner",
			Name:      "write_failures_total",
			Help:      "Best-effort writes that were given up on",
		}, []string{"op"}),
		xpEarned: f.NewCounter(prometheus.CounterOpts{
			Namespace: "growthops",
			Subsystem: "runner",
			Name:      "xp_earned_total",
			Help:      "XP awarded across all executions",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "growthops",
			Subsystem: "runner",
			Name:      "rejected_total",
			Help:      "Requests rejected before any plugin ran",
		}, []string{"reason"}),
		reaped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "growthops",
			Subsystem: "reaper",
			Name:      "executions_reaped_total",
			Help:      "Stale pending executions marked as failed",
		}),
		progressUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "growthops",
			Subsystem: "runner",
			Name:      "progress_updates_total",
			Help:      "Strategy completion increments by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveExecution(status string, d time.Duration, xp int) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(status).Inc()
	m.executionTime.WithLabelValues(status).Observe(d.Seconds())
	if xp > 0 {
		m.xpEarned.Add(float64(xp))
	}
}

func (m *Metrics) PluginRun(outcome string) {
	if m == nil {
		return
	}
	m.pluginRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WriteRetry(op string) {
	if m == nil {
		return
	}
	m.writeRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) WriteFailure(op string) {
	if m == nil {
		return
	}
	m.writeFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ProgressUpdate(result string) {
	if m == nil {
		return
	}
	m.progressUpdates.WithLabelValues(result).Inc()
}

func (m *Metrics) Reaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reaped.Add(float64(n))
}
