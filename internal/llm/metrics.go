package llm

import "github.com/prometheus/client_golang/prometheus"

var (
	// llmReqs counts completion calls by model and outcome (ok|error|empty).
	llmReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of completion requests.",
		},
		[]string{"model", "status"},
	)

	llmLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Duration of completion requests in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"model"},
	)

	// llmPromptTokens records prompt sizes, from the API usage block when
	// present and from a local tokenizer estimate otherwise.
	llmPromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_prompt_tokens",
			Help:    "Prompt size in tokens.",
			Buckets: prometheus.ExponentialBuckets(16, 2, 10), // 16..8192
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(llmReqs, llmLat, llmPromptTokens)
}
