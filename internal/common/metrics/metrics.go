// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_backend_requests_total",
			Help: "Backend requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricelens_backend_request_duration_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 35},
		},
		[]string{"endpoint"},
	)

	LoaderFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_loader_fetches_total",
			Help: "Page fetches issued by the incremental loader by request class",
		},
		[]string{"class"},
	)

	StaleResponsesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricelens_stale_responses_discarded_total",
			Help: "Responses dropped because their provenance no longer matched",
		},
	)

	RequestsAborted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_requests_aborted_total",
			Help: "In-flight requests aborted by the cancellation registry",
		},
		[]string{"reason"},
	)

	PrefetchCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_prefetch_cache_total",
			Help: "Load-more lookups against the prefetch cache",
		},
		[]string{"result"},
	)

	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_records_dropped_total",
			Help: "Backend records dropped during normalization",
		},
		[]string{"kind", "reason"},
	)

	CompareCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_compare_cache_total",
			Help: "Comparison cache lookups",
		},
		[]string{"result"},
	)
)
