// Package metrics defines the prometheus collectors for search and indexing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scripture"

// Outcome labels
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeBlank     = "blank"
	OutcomeUnchanged = "unchanged"
)

// Metrics holds the collectors registered on its own registry
type Metrics struct {
	registry *prometheus.Registry

	Searches       *prometheus.CounterVec
	SearchLatency  *prometheus.HistogramVec
	StaleHits      prometheus.Counter
	IndexOps       *prometheus.CounterVec
	IndexedDocs    prometheus.Gauge
	EventsReceived *prometheus.CounterVec
}

// New creates and registers all collectors, including the go runtime and
// process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches executed, by search type and outcome.",
		}, []string{"type", "outcome"}),
		SearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Time to run a search including hit resolution.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"type"}),
		StaleHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_hits_dropped_total",
			Help:      "Index hits dropped because the verse no longer exists.",
		}),
		IndexOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_operations_total",
			Help:      "Index replace operations, by entity kind and outcome.",
		}, []string{"kind", "outcome"}),
		IndexedDocs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_documents",
			Help:      "Verse documents currently in the text index.",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Change notifications received, by action and outcome.",
		}, []string{"action", "outcome"}),
	}
	reg.MustRegister(
		m.Searches,
		m.SearchLatency,
		m.StaleHits,
		m.IndexOps,
		m.IndexedDocs,
		m.EventsReceived,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSearch records one finished search
func (m *Metrics) ObserveSearch(searchType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(searchType, outcome).Inc()
	if outcome == OutcomeOK {
		m.SearchLatency.WithLabelValues(searchType).Observe(elapsed.Seconds())
	}
}

// AddStaleHits counts hits dropped during resolution
func (m *Metrics) AddStaleHits(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StaleHits.Add(float64(n))
}

// ObserveIndexOp records one index replace
func (m *Metrics) ObserveIndexOp(kind, outcome string) {
	if m == nil {
		return
	}
	m.IndexOps.WithLabelValues(kind, outcome).Inc()
}

// SetIndexedDocs sets the indexed document gauge
func (m *Metrics) SetIndexedDocs(n uint64) {
	if m == nil {
		return
	}
	m.IndexedDocs.Set(float64(n))
}

// ObserveEvent records one change notification
func (m *Metrics) ObserveEvent(action, outcome string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(action, outcome).Inc()
}
