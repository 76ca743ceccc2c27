package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookout",
			Name:      "events_total",
			Help:      "Trigger events by terminal disposition",
		},
		[]string{"status"},
	)

	dedupSkipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lookout",
			Name:      "dedup_skips_total",
			Help:      "Trigger events skipped because they were already claimed",
		},
	)

	repliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookout",
			Name:      "replies_total",
			Help:      "Replies posted by kind",
		},
		[]string{"kind"},
	)

	pollBackoffSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lookout",
			Name:      "poll_backoff_seconds",
			Help:      "Current delay before the next poll cycle",
		},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lookout",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of poll cycles in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)
