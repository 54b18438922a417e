// Package metrics provides centralized Prometheus metrics registry for the replay service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	LapAdvancesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pitwall",
		Name:      "replay_lap_advances_total",
		Help:      "Total number of lap advances across all replay sessions",
	})
	ReplayTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitwall",
		Name:      "replay_transitions_total",
		Help:      "Total number of replay commands that changed state, by command",
	}, []string{"command"})
	SessionsOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pitwall",
		Name:      "replay_sessions_opened_total",
		Help:      "Total number of replay sessions opened",
	})
)

// Gauge metrics
var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pitwall",
		Name:      "replay_sessions_active",
		Help:      "Number of currently open replay sessions",
	})
	PlayingSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pitwall",
		Name:      "replay_sessions_playing",
		Help:      "Number of replay sessions currently advancing laps",
	})
)

// Histogram metrics
var (
	SessionLoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pitwall",
		Name:      "replay_session_load_duration_seconds",
		Help:      "Time spent fetching the series of a new replay session",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register replay metrics
		registry.MustRegister(LapAdvancesTotal)
		registry.MustRegister(ReplayTransitionsTotal)
		registry.MustRegister(SessionsOpenedTotal)
		registry.MustRegister(ActiveSessions)
		registry.MustRegister(PlayingSessions)
		registry.MustRegister(SessionLoadDuration)

		// Register data source metrics
		registry.MustRegister(DataSourceFetchTotal)
		registry.MustRegister(DataSourceFetchDuration)
		registry.MustRegister(DataSourceFallbacksTotal)
		registry.MustRegister(DataSourceCacheHitRatio)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(CacheWarmupsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordLapAdvance records a single lap advance.
func RecordLapAdvance() {
	LapAdvancesTotal.Inc()
}

// RecordTransition records a replay command that changed state.
func RecordTransition(command string) {
	ReplayTransitionsTotal.WithLabelValues(command).Inc()
}

// RecordSessionOpened records a new session and its load time.
func RecordSessionOpened(loadSeconds float64) {
	SessionsOpenedTotal.Inc()
	ActiveSessions.Inc()
	SessionLoadDuration.Observe(loadSeconds)
}

// RecordSessionClosed records a session teardown.
func RecordSessionClosed() {
	ActiveSessions.Dec()
}

// RecordPlaying adjusts the playing sessions gauge.
func RecordPlaying(playing bool) {
	if playing {
		PlayingSessions.Inc()
		return
	}
	PlayingSessions.Dec()
}
