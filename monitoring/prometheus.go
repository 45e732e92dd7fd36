package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	IndexerDuration  *prometheus.HistogramVec
	IndexerErrors    *prometheus.CounterVec
	IndexerRequests  *prometheus.CounterVec
	IndexerResults   *prometheus.CounterVec
	MetadataDuration *prometheus.HistogramVec
	MetadataErrors   *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	CacheErrors      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		IndexerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "indexer_duration_seconds",
			Help:    "Duration of indexer searches",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"indexer"}),
		IndexerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indexer_errors_total",
			Help: "Number of indexer errors",
		}, []string{"indexer", "kind"}),
		IndexerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indexer_requests_total",
			Help: "Number of indexer searches",
		}, []string{"indexer"}),
		IndexerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indexer_results_total",
			Help: "Number of results returned by indexers before merging",
		}, []string{"indexer"}),
		MetadataDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metadata_duration_seconds",
			Help:    "Duration of metadata lookups",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		}, []string{"source"}),
		MetadataErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metadata_errors_total",
			Help: "Number of failed metadata lookups",
		}, []string{"source"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Number of cache hits",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Number of cache misses",
		}, []string{"cache"}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Number of swallowed cache read/write failures",
		}, []string{"cache", "op"}),
	}
}

func (m *Metrics) Register() {
	m.MustRegister(prometheus.DefaultRegisterer)
}

// MustRegister registers every collector on r. Tests use a private registry.
func (m *Metrics) MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		m.IndexerDuration,
		m.IndexerErrors,
		m.IndexerRequests,
		m.IndexerResults,
		m.MetadataDuration,
		m.MetadataErrors,
		m.CacheHits,
		m.CacheMisses,
		m.CacheErrors,
	)
}
