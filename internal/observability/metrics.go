package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "facility_freshness"

// Metrics holds the Prometheus counters, histograms, and gauges for the reconciliation service.
type Metrics struct {
	Refreshes       *prometheus.CounterVec   // labels: outcome={success,error,superseded}
	FetchDuration   *prometheus.HistogramVec // labels: source={catalog,links}
	FetchErrors     *prometheus.CounterVec   // labels: source={catalog,links}
	LinkRowsDropped prometheus.Counter

	// Snapshot metrics.
	SnapshotRecords    *prometheus.GaugeVec // labels: kind={catalog,links,merged}
	FreshnessRecords   *prometheus.GaugeVec // labels: status={FRESH,WARNING,STALE,UNCLASSIFIED,MISSING}
	SnapshotGeneration prometheus.Gauge
	LastSuccess        prometheus.Gauge

	// Snapshot publishing.
	SnapshotsPublished *prometheus.CounterVec // labels: outcome={success,error}

	// API response cache.
	APICache *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh cycles by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Source fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed source fetches by source.",
		}, []string{"source"}),
		LinkRowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_rows_dropped_total",
			Help:      "Link sheet rows discarded for a missing identifier or malformed CSV.",
		}),
		SnapshotRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Record counts of the current snapshot by kind.",
		}, []string{"kind"}),
		FreshnessRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "freshness_records",
			Help:      "Merged records of the current snapshot by document state.",
		}, []string{"status"}),
		SnapshotGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_generation",
			Help:      "Generation of the current snapshot.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Snapshot publications by outcome.",
		}, []string{"outcome"}),
		APICache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_cache_total",
			Help:      "API response cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Refreshes,
		m.FetchDuration,
		m.FetchErrors,
		m.LinkRowsDropped,
		m.SnapshotRecords,
		m.FreshnessRecords,
		m.SnapshotGeneration,
		m.LastSuccess,
		m.SnapshotsPublished,
		m.APICache,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all service metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}
