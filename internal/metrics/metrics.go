// Package metrics exposes the worker's Prometheus instrumentation:
// submission throughput by verdict, queue wait time, and active
// worker count.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the collectors the scheduler updates.
type Registry struct {
	SubmissionsTotal *prometheus.CounterVec
	QueueWaitSeconds prometheus.Histogram
	ActiveWorkers    prometheus.Gauge
}

// NewRegistry builds and registers the judger's collectors against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "judger_submissions_total",
			Help: "Submissions judged, partitioned by final verdict.",
		}, []string{"verdict"}),
		QueueWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "judger_queue_wait_seconds",
			Help:    "Time a worker spent blocked waiting for a task.",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "judger_active_workers",
			Help: "Workers currently processing a submission (not idle-polling).",
		}),
	}
	reg.MustRegister(r.SubmissionsTotal, r.QueueWaitSeconds, r.ActiveWorkers)
	return r
}

// NewTestRegistry builds a Registry backed by a fresh, unshared
// prometheus.Registry for use in tests.
func NewTestRegistry() *Registry {
	return NewRegistry(prometheus.NewRegistry())
}
