package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for playbook runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	config MetricsConfig

	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	tasks         *prometheus.CounterVec
	errorsByKind  *prometheus.CounterVec
	lockContended prometheus.Counter
	lastRun       *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector on a private registry.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of playbook runs by resolved state",
			},
			[]string{"state"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of playbook runs in seconds",
				Buckets:   buckets,
			},
			[]string{"state"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Total number of tasks reported by the playbook runner",
			},
			[]string{"result"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed invocations by error kind",
			},
			[]string{"kind"},
		),
		lockContended: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_contention_total",
				Help:      "Total number of runs rejected because the playbook lock was held",
			},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last run per playbook",
			},
			[]string{"playbook"},
		),
	}

	registry.MustRegister(
		m.runs,
		m.runDuration,
		m.tasks,
		m.errorsByKind,
		m.lockContended,
		m.lastRun,
	)

	return m, nil
}

// RecordRun records a finished run with its resolved state and duration.
func (m *Metrics) RecordRun(playbook, state string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(state).Inc()
	m.runDuration.WithLabelValues(state).Observe(duration.Seconds())
	m.lastRun.WithLabelValues(playbook).SetToCurrentTime()
}

// RecordTasks adds the task counters of one run.
func (m *Metrics) RecordTasks(ok, changed, failed, skipped int) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues("ok").Add(float64(ok))
	m.tasks.WithLabelValues("changed").Add(float64(changed))
	m.tasks.WithLabelValues("failed").Add(float64(failed))
	m.tasks.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordError records a failed invocation by error kind.
func (m *Metrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// RecordLockContention records a run rejected by a held lock.
func (m *Metrics) RecordLockContention() {
	if m == nil {
		return
	}
	m.lockContended.Inc()
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the registry to the configured textfile path. The
// write goes through a temporary file and a rename, so a collector never
// reads a partial file.
func (m *Metrics) WriteTextfile() error {
	if m == nil || m.config.TextfilePath == "" {
		return nil
	}
	return prometheus.WriteToTextfile(m.config.TextfilePath, m.registry)
}
