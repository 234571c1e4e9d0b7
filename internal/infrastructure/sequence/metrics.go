package sequence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sequence names come from callers, so they stay out of label values.
var (
	valuesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seqstore_values_issued_total",
			Help: "Total number of sequence values issued",
		},
	)

	// Failed NextValue calls, partitioned by error code
	nextValueFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seqstore_next_value_failures_total",
			Help: "Total number of failed next-value calls",
		},
		[]string{"code"},
	)

	// Time spent in one NextValue call, lock wait included
	nextValueDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seqstore_next_value_duration_seconds",
			Help:    "Next-value latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	cachedEngines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seqstore_cached_engines",
			Help: "Number of validated sequence configurations held in memory",
		},
	)
)
