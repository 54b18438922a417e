package datasource

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

// FallbackProvider answers from the mock generator whenever the primary
// provider fails. Cancelled requests are not retried against the mock.
type FallbackProvider struct {
	primary Provider
	mock    *MockProvider
	logger  *logger.ProviderLogger
}

// NewFallbackProvider wraps primary with a mock fallback.
func NewFallbackProvider(primary Provider, mock *MockProvider, log *logrus.Logger) *FallbackProvider {
	if log == nil {
		log = logger.Discard()
	}
	return &FallbackProvider{
		primary: primary,
		mock:    mock,
		logger:  logger.NewProviderLogger(log),
	}
}

// Name returns the name of the data source
func (f *FallbackProvider) Name() string {
	return f.primary.Name() + "+" + f.mock.Name()
}

// Primary returns the wrapped provider.
func (f *FallbackProvider) Primary() Provider {
	return f.primary
}

func withFallback[T any](ctx context.Context, f *FallbackProvider, resource string, primary, mock func() (T, error)) (T, error) {
	out, err := primary()
	if err == nil || ctx.Err() != nil {
		return out, err
	}

	f.logger.LogFallback(f.primary.Name(), resource, err)
	metrics.RecordFallback(resource)
	return mock()
}

// FetchLapSeries implements SeriesProvider
func (f *FallbackProvider) FetchLapSeries(ctx context.Context, raceID int) (models.LapSeries, error) {
	return withFallback(ctx, f, ResourceLapData,
		func() (models.LapSeries, error) { return f.primary.FetchLapSeries(ctx, raceID) },
		func() (models.LapSeries, error) { return f.mock.FetchLapSeries(ctx, raceID) })
}

// FetchPitEvents implements SeriesProvider
func (f *FallbackProvider) FetchPitEvents(ctx context.Context, raceID int) (models.PitEvents, error) {
	return withFallback(ctx, f, ResourcePitData,
		func() (models.PitEvents, error) { return f.primary.FetchPitEvents(ctx, raceID) },
		func() (models.PitEvents, error) { return f.mock.FetchPitEvents(ctx, raceID) })
}

// FetchConfidenceSeries implements SeriesProvider
func (f *FallbackProvider) FetchConfidenceSeries(ctx context.Context, raceID int) (models.ConfidenceSeries, error) {
	return withFallback(ctx, f, ResourceConfidence,
		func() (models.ConfidenceSeries, error) { return f.primary.FetchConfidenceSeries(ctx, raceID) },
		func() (models.ConfidenceSeries, error) { return f.mock.FetchConfidenceSeries(ctx, raceID) })
}

// FetchCurrentRace implements Provider
func (f *FallbackProvider) FetchCurrentRace(ctx context.Context) (*models.Race, error) {
	return withFallback(ctx, f, ResourceCurrentRace,
		func() (*models.Race, error) { return f.primary.FetchCurrentRace(ctx) },
		func() (*models.Race, error) { return f.mock.FetchCurrentRace(ctx) })
}

// FetchRacePredictions implements Provider
func (f *FallbackProvider) FetchRacePredictions(ctx context.Context, raceID int) ([]models.DriverPrediction, error) {
	return withFallback(ctx, f, ResourcePredictions,
		func() ([]models.DriverPrediction, error) { return f.primary.FetchRacePredictions(ctx, raceID) },
		func() ([]models.DriverPrediction, error) { return f.mock.FetchRacePredictions(ctx, raceID) })
}

// FetchDriver implements Provider
func (f *FallbackProvider) FetchDriver(ctx context.Context, driverID int) (*models.Driver, error) {
	return withFallback(ctx, f, ResourceDriver,
		func() (*models.Driver, error) { return f.primary.FetchDriver(ctx, driverID) },
		func() (*models.Driver, error) { return f.mock.FetchDriver(ctx, driverID) })
}

// FetchDriverPerformance implements Provider
func (f *FallbackProvider) FetchDriverPerformance(ctx context.Context, driverID, limit int) ([]models.DriverPerformance, error) {
	return withFallback(ctx, f, ResourcePerformance,
		func() ([]models.DriverPerformance, error) { return f.primary.FetchDriverPerformance(ctx, driverID, limit) },
		func() ([]models.DriverPerformance, error) { return f.mock.FetchDriverPerformance(ctx, driverID, limit) })
}

// FetchDriverExplanations implements Provider
func (f *FallbackProvider) FetchDriverExplanations(ctx context.Context, driverID int, raceID *int) ([]models.FeatureContribution, error) {
	return withFallback(ctx, f, ResourceExplanations,
		func() ([]models.FeatureContribution, error) { return f.primary.FetchDriverExplanations(ctx, driverID, raceID) },
		func() ([]models.FeatureContribution, error) { return f.mock.FetchDriverExplanations(ctx, driverID, raceID) })
}

// Predict implements Provider
func (f *FallbackProvider) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	return withFallback(ctx, f, ResourcePredict,
		func() (*models.PredictionResponse, error) { return f.primary.Predict(ctx, req) },
		func() (*models.PredictionResponse, error) { return f.mock.Predict(ctx, req) })
}

// FetchModelStatus implements Provider
func (f *FallbackProvider) FetchModelStatus(ctx context.Context) (models.ModelStatus, error) {
	return withFallback(ctx, f, ResourceModelStatus,
		func() (models.ModelStatus, error) { return f.primary.FetchModelStatus(ctx) },
		func() (models.ModelStatus, error) { return f.mock.FetchModelStatus(ctx) })
}

// FetchTelemetry implements Provider
func (f *FallbackProvider) FetchTelemetry(ctx context.Context, sessionID string, driverID *int) ([]models.TelemetryPoint, error) {
	return withFallback(ctx, f, ResourceTelemetry,
		func() ([]models.TelemetryPoint, error) { return f.primary.FetchTelemetry(ctx, sessionID, driverID) },
		func() ([]models.TelemetryPoint, error) { return f.mock.FetchTelemetry(ctx, sessionID, driverID) })
}

// HealthCheck succeeds while either the primary or the mock can serve.
func (f *FallbackProvider) HealthCheck(ctx context.Context) error {
	if err := f.primary.HealthCheck(ctx); err != nil {
		f.logger.WithError(err).Debug("Primary data source unhealthy, serving from mock")
		return f.mock.HealthCheck(ctx)
	}
	return nil
}
