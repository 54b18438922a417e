package datasource

import (
	"context"
	"sync/atomic"

	"github.com/yourusername/pitwall/internal/models"
)

// stubProvider wraps a MockProvider, counting calls and optionally failing all of them.
type stubProvider struct {
	*MockProvider
	name  string
	err   error
	calls int32
}

func newStubProvider(err error) *stubProvider {
	return &stubProvider{MockProvider: NewMockProvider(7, 0), name: "stub", err: err}
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Calls() int { return int(atomic.LoadInt32(&s.calls)) }

func (s *stubProvider) hit() error {
	atomic.AddInt32(&s.calls, 1)
	return s.err
}

func (s *stubProvider) FetchLapSeries(ctx context.Context, raceID int) (models.LapSeries, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.MockProvider.FetchLapSeries(ctx, raceID)
}

func (s *stubProvider) FetchPitEvents(ctx context.Context, raceID int) (models.PitEvents, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.MockProvider.FetchPitEvents(ctx, raceID)
}

func (s *stubProvider) FetchConfidenceSeries(ctx context.Context, raceID int) (models.ConfidenceSeries, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.MockProvider.FetchConfidenceSeries(ctx, raceID)
}

func (s *stubProvider) FetchCurrentRace(ctx context.Context) (*models.Race, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.MockProvider.FetchCurrentRace(ctx)
}

func (s *stubProvider) FetchRacePredictions(ctx context.Context, raceID int) ([]models.DriverPrediction, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.MockProvider.FetchRacePredictions(ctx, raceID)
}

func (s *stubProvider) FetchDriver(ctx context.Context, driverID int) (*models.Driver, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.MockProvider.FetchDriver(ctx, driverID)
}

func (s *stubProvider) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.MockProvider.Predict(ctx, req)
}

func (s *stubProvider) FetchTelemetry(ctx context.Context, sessionID string, driverID *int) ([]models.TelemetryPoint, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.MockProvider.FetchTelemetry(ctx, sessionID, driverID)
}

func (s *stubProvider) HealthCheck(ctx context.Context) error {
	return s.hit()
}

func modelsRequest() models.PredictionRequest {
	return models.PredictionRequest{RaceID: 1050, DriverID: 1, ConstructorID: 9}
}
