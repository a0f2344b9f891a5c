// Package metrics records slice copy runs in a Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// Metrics implements slicetypes.MetricsRecorder. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	objectsListedTotal  prometheus.Counter
	copiesTotal         *prometheus.CounterVec
	copyDurationSeconds *prometheus.HistogramVec
	runDurationSeconds  *prometheus.GaugeVec
}

// New creates the run metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.objectsListedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slicecopy_objects_listed_total",
		Help: "Total number of source objects listed, folder markers excluded.",
	})
	m.copiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slicecopy_copies_total",
		Help: "Total number of finished tasks.",
	}, []string{"status", "error_code"})
	m.copyDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slicecopy_copy_duration_seconds",
		Help:    "Duration of single object copies in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"status"})
	m.runDurationSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slicecopy_run_duration_seconds",
		Help: "Wall-clock duration of the last run, per phase.",
	}, []string{"phase"})

	reg.MustRegister(
		m.objectsListedTotal,
		m.copiesTotal,
		m.copyDurationSeconds,
		m.runDurationSeconds,
	)

	return m
}

// Registry returns the underlying registry, or nil for a nil *Metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AddListed counts n listed source objects.
func (m *Metrics) AddListed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.objectsListedTotal.Add(float64(n))
}

// ObserveTask counts a finished task by status and error code. Copy
// duration is recorded only for tasks that reached the backend.
func (m *Metrics) ObserveTask(status slicetypes.TaskStatus, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.copiesTotal.WithLabelValues(string(status), code).Inc()
	// skipped and planned tasks never reach the backend
	if status == slicetypes.StatusCopied || status == slicetypes.StatusFailed {
		m.copyDurationSeconds.WithLabelValues(string(status)).Observe(duration.Seconds())
	}
}

// ObservePhase records the wall-clock duration of a run phase.
func (m *Metrics) ObservePhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDurationSeconds.WithLabelValues(phase).Set(duration.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// The file is written to a temporary name and renamed into place.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
