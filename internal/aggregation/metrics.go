package aggregation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storegraph_aggregation_query_duration_seconds",
		Help:    "Duration of individual aggregation sub-queries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	degradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storegraph_aggregation_degraded_total",
		Help: "Aggregation sub-queries that failed and were degraded to their zero value.",
	}, []string{"operation"})
)
