package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chorussearch",
			Name:      "llm_requests_total",
			Help:      "Total number of generation provider calls",
		},
		[]string{"kind", "status"}, // kind: embed / expand / reason / analysis
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chorussearch",
			Name:      "llm_request_duration_seconds",
			Help:      "Generation provider call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	VectorSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chorussearch",
			Name:      "vector_search_duration_seconds",
			Help:      "Vector store similarity search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"status"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chorussearch",
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"operation", "result"}, // result: "hit" / "miss"
	)

	DocumentsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chorussearch",
			Name:      "documents_ingested_total",
			Help:      "Total documents accepted by the ingestion path",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(VectorSearchDuration)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(DocumentsIngestedTotal)
	pipelineMetricsRegistered = true
}
