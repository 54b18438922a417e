package logger

import (
	"github.com/sirupsen/logrus"
)

// ProviderLogger provides dedicated logging for race data providers.
type ProviderLogger struct {
	*logrus.Entry
}

// NewProviderLogger creates a new provider logger.
func NewProviderLogger(baseLogger *logrus.Logger) *ProviderLogger {
	return &ProviderLogger{
		Entry: baseLogger.WithField("component", "datasource"),
	}
}

// LogFetchFailure logs a failed upstream request.
func (pl *ProviderLogger) LogFetchFailure(source, resource string, raceID int, err error) {
	pl.WithFields(logrus.Fields{
		"source":   source,
		"resource": resource,
		"race_id":  raceID,
	}).WithError(err).Warn("Data source fetch failed")
}

// LogFallback logs a request answered by the mock generator instead of the primary provider.
func (pl *ProviderLogger) LogFallback(primary, resource string, err error) {
	pl.WithFields(logrus.Fields{
		"primary":  primary,
		"resource": resource,
	}).WithError(err).Warn("Real API failed, falling back to mock data")
}

// LogCircuitBreakerOpen logs the upstream circuit breaker opening.
func (pl *ProviderLogger) LogCircuitBreakerOpen(source string, consecutiveErrors int, err error) {
	pl.WithFields(logrus.Fields{
		"source":             source,
		"consecutive_errors": consecutiveErrors,
	}).WithError(err).Error("Circuit breaker opened")
}

// LogCacheWarmup logs the outcome of a scheduled cache warmup.
func (pl *ProviderLogger) LogCacheWarmup(raceID int, entries int, err error) {
	entry := pl.WithFields(logrus.Fields{
		"race_id": raceID,
		"entries": entries,
	})
	if err != nil {
		entry.WithError(err).Warn("Cache warmup failed")
		return
	}
	entry.Info("Cache warmup completed")
}
