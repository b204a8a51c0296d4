package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumenkb",
			Name:      "retrieval_requests_total",
			Help:      "Total retrieval requests by winning strategy",
		},
		[]string{"strategy", "status"},
	)

	RetrievalFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumenkb",
			Name:      "retrieval_fallbacks_total",
			Help:      "Vector retrievals that fell back to keyword ranking",
		},
		[]string{"reason"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lumenkb",
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"strategy"},
	)

	RAGGateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumenkb",
			Name:      "rag_gate_decisions_total",
			Help:      "Chat messages admitted to or bypassing knowledge retrieval",
		},
		[]string{"decision"}, // "retrieve" / "bypass"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalFallbacksTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RAGGateDecisionsTotal)
	retrievalMetricsRegistered = true
}
