package datasource

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/models"
)

// CachedProvider wraps a Provider with a TTL cache over series and race
// lookups. Predictions requested via Predict, telemetry, model status and
// health checks always go to the wrapped provider.
type CachedProvider struct {
	provider Provider
	cache    *ResponseCache
	logger   *logger.ProviderLogger
}

// NewCachedProvider creates a new cached provider
func NewCachedProvider(provider Provider, cache *ResponseCache, log *logrus.Logger) *CachedProvider {
	if log == nil {
		log = logger.Discard()
	}
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		logger:   logger.NewProviderLogger(log),
	}
}

// Name returns the name of the data source
func (c *CachedProvider) Name() string {
	return c.provider.Name()
}

// Cache returns the underlying response cache.
func (c *CachedProvider) Cache() *ResponseCache {
	return c.cache
}

func cachedFetch[T any](c *CachedProvider, key CacheKey, fetch func() (T, error)) (T, error) {
	if value, ok := c.cache.Get(key); ok {
		if typed, ok := value.(T); ok {
			c.logger.WithField("cache_key", key.String()).Debug("Cache hit")
			return typed, nil
		}
	}

	c.logger.WithField("cache_key", key.String()).Debug("Cache miss, fetching from provider")
	out, err := fetch()
	if err != nil {
		return out, err
	}
	c.cache.Set(key, out)
	return out, nil
}

// FetchLapSeries implements SeriesProvider
func (c *CachedProvider) FetchLapSeries(ctx context.Context, raceID int) (models.LapSeries, error) {
	return cachedFetch(c, CacheKey{Resource: ResourceLapData, ID: raceID}, func() (models.LapSeries, error) {
		return c.provider.FetchLapSeries(ctx, raceID)
	})
}

// FetchPitEvents implements SeriesProvider
func (c *CachedProvider) FetchPitEvents(ctx context.Context, raceID int) (models.PitEvents, error) {
	return cachedFetch(c, CacheKey{Resource: ResourcePitData, ID: raceID}, func() (models.PitEvents, error) {
		return c.provider.FetchPitEvents(ctx, raceID)
	})
}

// FetchConfidenceSeries implements SeriesProvider
func (c *CachedProvider) FetchConfidenceSeries(ctx context.Context, raceID int) (models.ConfidenceSeries, error) {
	return cachedFetch(c, CacheKey{Resource: ResourceConfidence, ID: raceID}, func() (models.ConfidenceSeries, error) {
		return c.provider.FetchConfidenceSeries(ctx, raceID)
	})
}

// FetchCurrentRace implements Provider
func (c *CachedProvider) FetchCurrentRace(ctx context.Context) (*models.Race, error) {
	race, err := cachedFetch(c, CacheKey{Resource: ResourceCurrentRace}, func() (models.Race, error) {
		r, err := c.provider.FetchCurrentRace(ctx)
		if err != nil {
			return models.Race{}, err
		}
		return *r, nil
	})
	if err != nil {
		return nil, err
	}
	return &race, nil
}

// FetchRacePredictions implements Provider
func (c *CachedProvider) FetchRacePredictions(ctx context.Context, raceID int) ([]models.DriverPrediction, error) {
	return cachedFetch(c, CacheKey{Resource: ResourcePredictions, ID: raceID}, func() ([]models.DriverPrediction, error) {
		return c.provider.FetchRacePredictions(ctx, raceID)
	})
}

// FetchDriver implements Provider
func (c *CachedProvider) FetchDriver(ctx context.Context, driverID int) (*models.Driver, error) {
	driver, err := cachedFetch(c, CacheKey{Resource: ResourceDriver, ID: driverID}, func() (models.Driver, error) {
		d, err := c.provider.FetchDriver(ctx, driverID)
		if err != nil {
			return models.Driver{}, err
		}
		return *d, nil
	})
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

// FetchDriverPerformance implements Provider
func (c *CachedProvider) FetchDriverPerformance(ctx context.Context, driverID, limit int) ([]models.DriverPerformance, error) {
	key := CacheKey{Resource: ResourcePerformance, ID: driverID, Variant: fmt.Sprint(limit)}
	return cachedFetch(c, key, func() ([]models.DriverPerformance, error) {
		return c.provider.FetchDriverPerformance(ctx, driverID, limit)
	})
}

// FetchDriverExplanations implements Provider
func (c *CachedProvider) FetchDriverExplanations(ctx context.Context, driverID int, raceID *int) ([]models.FeatureContribution, error) {
	variant := "all"
	if raceID != nil {
		variant = fmt.Sprint(*raceID)
	}
	key := CacheKey{Resource: ResourceExplanations, ID: driverID, Variant: variant}
	return cachedFetch(c, key, func() ([]models.FeatureContribution, error) {
		return c.provider.FetchDriverExplanations(ctx, driverID, raceID)
	})
}

// Predict implements Provider; it is never cached
func (c *CachedProvider) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	return c.provider.Predict(ctx, req)
}

// FetchModelStatus implements Provider; it is never cached
func (c *CachedProvider) FetchModelStatus(ctx context.Context) (models.ModelStatus, error) {
	return c.provider.FetchModelStatus(ctx)
}

// FetchTelemetry implements Provider; live samples are never cached
func (c *CachedProvider) FetchTelemetry(ctx context.Context, sessionID string, driverID *int) ([]models.TelemetryPoint, error) {
	return c.provider.FetchTelemetry(ctx, sessionID, driverID)
}

// HealthCheck implements Provider
func (c *CachedProvider) HealthCheck(ctx context.Context) error {
	return c.provider.HealthCheck(ctx)
}

// Warm refreshes the current race and its series, predictions included.
// It returns the id of the race it warmed.
func (c *CachedProvider) Warm(ctx context.Context) (int, error) {
	c.cache.Delete(CacheKey{Resource: ResourceCurrentRace})
	race, err := c.FetchCurrentRace(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch current race: %w", err)
	}

	c.cache.InvalidateID(race.RaceID)
	if _, err := c.FetchLapSeries(ctx, race.RaceID); err != nil {
		return race.RaceID, fmt.Errorf("warm lap data: %w", err)
	}
	if _, err := c.FetchPitEvents(ctx, race.RaceID); err != nil {
		return race.RaceID, fmt.Errorf("warm pit data: %w", err)
	}
	if _, err := c.FetchConfidenceSeries(ctx, race.RaceID); err != nil {
		return race.RaceID, fmt.Errorf("warm confidence data: %w", err)
	}
	if _, err := c.FetchRacePredictions(ctx, race.RaceID); err != nil {
		return race.RaceID, fmt.Errorf("warm predictions: %w", err)
	}
	return race.RaceID, nil
}
