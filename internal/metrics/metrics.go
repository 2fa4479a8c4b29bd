// Package metrics exposes Prometheus counters for the cache, the board API,
// alerts and background jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eric"

// Metrics holds the collectors on a private registry. It implements
// items.Observer, alert.Counter and jobs.Observer.
type Metrics struct {
	registry      *prometheus.Registry
	cacheLookups  *prometheus.CounterVec
	upstreamCalls *prometheus.CounterVec
	alerts        prometheus.Counter
	jobs          *prometheus.CounterVec
}

// New registers the collectors, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache reads by record type and result (hit or miss).",
		}, []string{"record_type", "result"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Board API calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Operator alerts raised.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Background jobs by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	m.registry.MustRegister(
		m.cacheLookups,
		m.upstreamCalls,
		m.alerts,
		m.jobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// CacheLookup counts one cache read.
func (m *Metrics) CacheLookup(recordType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(recordType, result).Inc()
}

// UpstreamCall counts one board API call.
func (m *Metrics) UpstreamCall(op string, err error) {
	m.upstreamCalls.WithLabelValues(op, outcome(err)).Inc()
}

// AlertRaised counts one operator alert.
func (m *Metrics) AlertRaised() {
	m.alerts.Inc()
}

// JobFinished counts one completed job.
func (m *Metrics) JobFinished(kind string, err error) {
	m.jobs.WithLabelValues(kind, outcome(err)).Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
