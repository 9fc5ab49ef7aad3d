package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Indexing and search Prometheus metrics.
var (
	IndexBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_batches_total",
			Help:      "Indexing batches by outcome",
		},
		[]string{"status"}, // "ok" / "error" / "skipped"
	)

	IndexDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_documents_total",
			Help:      "Documents written to the index by outcome",
		},
		[]string{"status"}, // "ok" / "failed"
	)

	IndexBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_batch_duration_seconds",
			Help:      "Time to embed and write one batch",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Semantic search requests by outcome",
		},
		[]string{"status"},
	)
)

var registerIndexing sync.Once

// RegisterIndexingMetrics registers indexing and search metrics. Safe to call more than once.
func RegisterIndexingMetrics() {
	registerIndexing.Do(func() {
		prometheus.MustRegister(
			IndexBatchesTotal,
			IndexDocumentsTotal,
			IndexBatchDuration,
			SearchRequestsTotal,
		)
	})
}
