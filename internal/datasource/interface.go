// Package datasource supplies race series and race/driver lookups from the
// prediction API, a seeded mock generator or a historical Postgres database.
package datasource

import (
	"context"

	"github.com/yourusername/pitwall/internal/models"
)

// Resource names used in logs and metrics
const (
	ResourceLapData      = "lap_data"
	ResourcePitData      = "pit_data"
	ResourceConfidence   = "confidence_data"
	ResourceCurrentRace  = "current_race"
	ResourcePredictions  = "predictions"
	ResourceDriver       = "driver"
	ResourcePerformance  = "performance"
	ResourceExplanations = "explanations"
	ResourcePredict      = "predict"
	ResourceModelStatus  = "model_status"
	ResourceHealth       = "health"
	ResourceTelemetry    = "telemetry"
)

// DefaultPerformanceLimit is the number of past results returned when no limit is given.
const DefaultPerformanceLimit = 10

// SeriesProvider supplies the three per-race series the Live Mode view renders.
type SeriesProvider interface {
	FetchLapSeries(ctx context.Context, raceID int) (models.LapSeries, error)
	FetchPitEvents(ctx context.Context, raceID int) (models.PitEvents, error)
	FetchConfidenceSeries(ctx context.Context, raceID int) (models.ConfidenceSeries, error)
}

// Provider is a complete race data source.
type Provider interface {
	SeriesProvider

	FetchCurrentRace(ctx context.Context) (*models.Race, error)
	FetchRacePredictions(ctx context.Context, raceID int) ([]models.DriverPrediction, error)
	FetchDriver(ctx context.Context, driverID int) (*models.Driver, error)
	FetchDriverPerformance(ctx context.Context, driverID, limit int) ([]models.DriverPerformance, error)
	// FetchDriverExplanations returns feature contributions, optionally scoped to a race.
	FetchDriverExplanations(ctx context.Context, driverID int, raceID *int) ([]models.FeatureContribution, error)
	Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error)
	FetchModelStatus(ctx context.Context) (models.ModelStatus, error)
	// FetchTelemetry returns the samples of a timing session, optionally for one driver.
	FetchTelemetry(ctx context.Context, sessionID string, driverID *int) ([]models.TelemetryPoint, error)

	// HealthCheck reports whether the source can currently serve requests.
	HealthCheck(ctx context.Context) error
	// Name returns the name of the data source
	Name() string
}
