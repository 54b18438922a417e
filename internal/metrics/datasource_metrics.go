// Package metrics defines data source metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Data source counter vectors
var (
	DataSourceFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitwall",
		Name:      "datasource_fetch_total",
		Help:      "Total number of data source fetches by source, resource and status",
	}, []string{"source", "resource", "status"})

	DataSourceFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitwall",
		Name:      "datasource_fallbacks_total",
		Help:      "Total number of fetches answered by the mock after an upstream failure",
	}, []string{"resource"})

	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pitwall",
		Name:      "datasource_circuit_breaker_trips_total",
		Help:      "Total number of upstream HTTP circuit breaker trips",
	})

	CacheWarmupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitwall",
		Name:      "datasource_cache_warmups_total",
		Help:      "Total number of scheduled cache warmups by outcome",
	}, []string{"outcome"})
)

// Data source histogram vectors
var (
	DataSourceFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pitwall",
		Name:      "datasource_fetch_duration_seconds",
		Help:      "Latency of data source fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source", "resource"})
)

// Data source gauges
var (
	DataSourceCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pitwall",
		Name:      "datasource_cache_hit_ratio",
		Help:      "Hit ratio of the data source cache",
	})
)

// RecordFetch records the outcome and latency of a data source fetch.
func RecordFetch(source, resource string, err error, durationSeconds float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DataSourceFetchTotal.WithLabelValues(source, resource, status).Inc()
	DataSourceFetchDuration.WithLabelValues(source, resource).Observe(durationSeconds)
}

// RecordFallback records a fetch answered by the mock provider.
func RecordFallback(resource string) {
	DataSourceFallbacksTotal.WithLabelValues(resource).Inc()
}

// RecordCircuitBreakerTrip records the upstream circuit breaker opening.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// RecordCacheWarmup records a scheduled cache warmup outcome.
func RecordCacheWarmup(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	CacheWarmupsTotal.WithLabelValues(outcome).Inc()
}

// UpdateCacheHitRatio updates the cache hit ratio gauge.
func UpdateCacheHitRatio(ratio float64) {
	DataSourceCacheHitRatio.Set(ratio)
}
