package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookout",
			Name:      "llm_calls_total",
			Help:      "Total language model calls",
		},
		[]string{"status"},
	)

	llmCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lookout",
			Name:      "llm_call_duration_seconds",
			Help:      "Duration of language model calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)
