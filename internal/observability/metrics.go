package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the feed service.
type Metrics struct {
	// Feed client metrics.
	FeedRequests        *prometheus.CounterVec // labels: outcome={success,error}
	FeedRequestDuration prometheus.Histogram
	FeedFeatures        prometheus.Histogram

	// Session cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,stale}
	CacheErrors  *prometheus.CounterVec // labels: op={read,write}

	// Store metrics.
	LoadCycles     *prometheus.CounterVec // labels: outcome={loaded,failed}, source={cache,network}
	LoadState      prometheus.Gauge
	RecordsHeld    prometheus.Gauge
	NormalizeError prometheus.Counter

	// Publishing metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
	PipelineRunning  prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeedRequests,
		m.FeedRequestDuration,
		m.FeedFeatures,
		m.CacheLookups,
		m.CacheErrors,
		m.LoadCycles,
		m.LoadState,
		m.RecordsHeld,
		m.NormalizeError,
		m.RecordsPublished,
		m.PublishErrors,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "feed_requests_total",
			Help:      "Feed requests by outcome.",
		}, []string{"outcome"}),
		FeedRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_feed",
			Name:      "feed_request_duration_seconds",
			Help:      "Feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FeedFeatures: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_feed",
			Name:      "feed_features",
			Help:      "Number of features per decoded feed document.",
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "cache_lookups_total",
			Help:      "Session cache lookups by result.",
		}, []string{"result"}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "cache_errors_total",
			Help:      "Session cache failures absorbed by operation.",
		}, []string{"op"}),
		LoadCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "load_cycles_total",
			Help:      "Completed store load cycles by outcome and source.",
		}, []string{"outcome", "source"}),
		LoadState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "load_state",
			Help:      "Current store state: 0 idle, 1 loading, 2 loaded, 3 failed.",
		}),
		RecordsHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "records_held",
			Help:      "Number of records currently held by the store.",
		}),
		NormalizeError: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "normalize_errors_total",
			Help:      "Feed documents rejected by the normalizer.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "records_published_total",
			Help:      "Records written to the publish topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "publish_errors_total",
			Help:      "Failed publish batches.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "pipeline_running",
			Help:      "1 when the refresh pipeline is active, 0 when shut down.",
		}),
	}
}
