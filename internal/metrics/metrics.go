// Package metrics exposes prometheus instrumentation for the timeline
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's collectors. A fresh set registers on its
// own registry so independent services never collide.
type Metrics struct {
	registry *prometheus.Registry

	Computations     prometheus.Counter
	ComputeDuration  prometheus.Histogram
	CacheHits        prometheus.Counter
	DegradedProfiles prometheus.Counter
	DroppedRecords   prometheus.Counter
}

// New creates and registers the engine collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Computations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glycotrace_timeline_computations_total",
			Help: "Number of timeline computations performed.",
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "glycotrace_timeline_compute_duration_seconds",
			Help:    "Wall time of timeline computations.",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glycotrace_timeline_cache_hits_total",
			Help: "Number of computations served from the snapshot cache.",
		}),
		DegradedProfiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glycotrace_kinetics_degraded_profiles_total",
			Help: "Number of source types that resolved to the default kinetic profile.",
		}),
		DroppedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glycotrace_records_dropped_total",
			Help: "Number of malformed input records filtered before computation.",
		}),
	}

	m.registry.MustRegister(
		m.Computations,
		m.ComputeDuration,
		m.CacheHits,
		m.DegradedProfiles,
		m.DroppedRecords,
	)
	return m
}

// Registry returns the registry backing this metric set, for exposition
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
