package datasource

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/pitwall/internal/models"
)

const mockSourceName = "mock"

// MockRaceLaps is the length of every generated series.
const MockRaceLaps = 58

// Mock generator stream ids, mixed into the seed so each resource gets its own sequence.
const (
	streamLaps int64 = iota + 1
	streamConfidence
	streamPerformance
	streamTelemetry
)

// MockTelemetryPoints is the number of samples in a generated telemetry trace.
const MockTelemetryPoints = 100

type mockDriverProfile struct {
	code           string
	baseLapMs      float64
	confidenceLow  float64
	confidenceSpan float64
}

var mockTrackedDrivers = []mockDriverProfile{
	{code: "VER", baseLapMs: 90000, confidenceLow: 0.8, confidenceSpan: 0.15},
	{code: "HAM", baseLapMs: 91000, confidenceLow: 0.75, confidenceSpan: 0.2},
	{code: "LEC", baseLapMs: 90500, confidenceLow: 0.7, confidenceSpan: 0.25},
	{code: "RUS", baseLapMs: 91500, confidenceLow: 0.65, confidenceSpan: 0.2},
	{code: "NOR", baseLapMs: 92000, confidenceLow: 0.6, confidenceSpan: 0.3},
}

// mockLapJitterMs is the upper bound of random lap time noise.
const mockLapJitterMs = 2000

var mockPitPlan = []struct {
	driverID   int
	code       string
	lap        int
	duration   string
	stop       int
	tireChange string
}{
	{1, "VER", 15, "2.4", 1, "Medium → Soft"},
	{2, "HAM", 18, "2.8", 1, "Hard → Medium"},
	{3, "LEC", 22, "2.1", 1, "Soft → Hard"},
	{4, "RUS", 24, "3.2", 1, "Medium → Soft"},
	{5, "NOR", 28, "2.5", 1, "Soft → Medium"},
	{1, "VER", 35, "2.3", 2, "Soft → Hard"},
	{3, "LEC", 38, "2.7", 2, "Hard → Soft"},
}

// MockProvider generates deterministic demo data. Two providers built with the
// same seed return identical series for the same race.
type MockProvider struct {
	seed  int64
	delay time.Duration
}

// NewMockProvider creates a mock provider with an explicit seed and
// artificial per-request latency.
func NewMockProvider(seed int64, delay time.Duration) *MockProvider {
	return &MockProvider{seed: seed, delay: delay}
}

// Name returns the name of the data source
func (m *MockProvider) Name() string {
	return mockSourceName
}

// Seed returns the generator seed.
func (m *MockProvider) Seed() int64 {
	return m.seed
}

// FetchLapSeries generates lap times for laps 1..MockRaceLaps
func (m *MockProvider) FetchLapSeries(ctx context.Context, raceID int) (models.LapSeries, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	rng := m.rng(streamLaps, int64(raceID))
	series := make(models.LapSeries, 0, MockRaceLaps)
	for lap := 1; lap <= MockRaceLaps; lap++ {
		times := make(map[string]float64, len(mockTrackedDrivers))
		for _, d := range mockTrackedDrivers {
			times[d.code] = d.baseLapMs + rng.Float64()*mockLapJitterMs
		}
		series = append(series, models.LapRecord{Lap: lap, Times: times})
	}
	return series, nil
}

// FetchPitEvents returns the fixed demo pit plan
func (m *MockProvider) FetchPitEvents(ctx context.Context, raceID int) (models.PitEvents, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	events := make(models.PitEvents, 0, len(mockPitPlan))
	for _, p := range mockPitPlan {
		events = append(events, models.PitEvent{
			DriverID:   p.driverID,
			Driver:     p.code,
			Lap:        p.lap,
			Stop:       p.stop,
			Duration:   decimal.RequireFromString(p.duration),
			TireChange: p.tireChange,
		})
	}
	return events, nil
}

// FetchConfidenceSeries generates confidence scores for laps 1..MockRaceLaps
func (m *MockProvider) FetchConfidenceSeries(ctx context.Context, raceID int) (models.ConfidenceSeries, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	rng := m.rng(streamConfidence, int64(raceID))
	series := make(models.ConfidenceSeries, 0, MockRaceLaps)
	for lap := 1; lap <= MockRaceLaps; lap++ {
		scores := make(map[string]float64, len(mockTrackedDrivers))
		for _, d := range mockTrackedDrivers {
			scores[d.code] = d.confidenceLow + rng.Float64()*d.confidenceSpan
		}
		series = append(series, models.ConfidenceRecord{Lap: lap, Scores: scores})
	}
	return series, nil
}

// FetchCurrentRace returns the Monaco Grand Prix
func (m *MockProvider) FetchCurrentRace(ctx context.Context) (*models.Race, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &models.Race{
		RaceID:   1050,
		Name:     "Monaco Grand Prix",
		Date:     "2024-05-26",
		Time:     "15:00",
		Location: "Monte Carlo, Monaco",
		Round:    8,
		Circuit: models.Circuit{
			Name:     "Circuit de Monaco",
			Location: "Monte Carlo, Monaco",
			Country:  "Monaco",
			Length:   3.337,
			Laps:     78,
		},
	}, nil
}

// FetchRacePredictions returns a fixed top ten
func (m *MockProvider) FetchRacePredictions(ctx context.Context, raceID int) ([]models.DriverPrediction, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	p := func(id int, forename, surname, code, team string, pos, conf float64, trend models.Trend) models.DriverPrediction {
		return models.DriverPrediction{
			DriverID:          id,
			Driver:            models.DriverRef{Forename: forename, Surname: surname, Code: code},
			Constructor:       models.ConstructorRef{Name: team},
			PredictedPosition: pos,
			Confidence:        conf,
			Trend:             trend,
		}
	}

	return []models.DriverPrediction{
		p(1, "Max", "Verstappen", "VER", "Red Bull Racing", 1.2, 0.87, models.TrendUp),
		p(2, "Lewis", "Hamilton", "HAM", "Mercedes", 2.1, 0.82, models.TrendUp),
		p(3, "Charles", "Leclerc", "LEC", "Ferrari", 2.8, 0.78, models.TrendDown),
		p(4, "George", "Russell", "RUS", "Mercedes", 4.2, 0.75, models.TrendStable),
		p(5, "Lando", "Norris", "NOR", "McLaren", 5.1, 0.73, models.TrendUp),
		p(6, "Carlos", "Sainz Jr.", "SAI", "Ferrari", 6.3, 0.69, models.TrendDown),
		p(7, "Oscar", "Piastri", "PIA", "McLaren", 7.5, 0.65, models.TrendUp),
		p(8, "Fernando", "Alonso", "ALO", "Aston Martin", 8.2, 0.62, models.TrendStable),
		p(9, "Sergio", "Pérez", "PER", "Red Bull Racing", 9.8, 0.58, models.TrendDown),
		p(10, "Lance", "Stroll", "STR", "Aston Martin", 10.4, 0.55, models.TrendStable),
	}, nil
}

var mockDrivers = map[int]models.Driver{
	1: {
		DriverID: 1, Forename: "Max", Surname: "Verstappen", Code: "VER", Number: 1,
		Nationality: "Dutch", DOB: "1997-09-30",
		Wins: 54, Podiums: 98, Points: 575, ChampionshipPosition: 1,
		AvgFinish: 2.3, DNFs: 2, AvgGrid: 1.8, Q3Count: 22, Poles: 12,
		AvgLapTime: "1:29.456", FastestLaps: 8, Consistency: "94.2%",
	},
	2: {
		DriverID: 2, Forename: "Lewis", Surname: "Hamilton", Code: "HAM", Number: 44,
		Nationality: "British", DOB: "1985-01-07",
		Wins: 103, Podiums: 197, Points: 4405, ChampionshipPosition: 3,
		AvgFinish: 4.2, DNFs: 1, AvgGrid: 3.4, Q3Count: 20, Poles: 6,
		AvgLapTime: "1:29.892", FastestLaps: 4, Consistency: "91.8%",
	},
}

// FetchDriver returns a demo profile; unknown ids get driver 1.
func (m *MockProvider) FetchDriver(ctx context.Context, driverID int) (*models.Driver, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	driver, ok := mockDrivers[driverID]
	if !ok {
		driver = mockDrivers[1]
	}
	return &driver, nil
}

// FetchDriverPerformance generates limit past results, most recent first
func (m *MockProvider) FetchDriverPerformance(ctx context.Context, driverID, limit int) ([]models.DriverPerformance, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPerformanceLimit
	}

	rng := m.rng(streamPerformance, int64(driverID))
	out := make([]models.DriverPerformance, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, models.DriverPerformance{
			Race:     fmt.Sprintf("R%d", limit-i),
			Position: rng.Intn(15) + 1,
			Points:   rng.Intn(25),
			DNF:      rng.Float64() < 0.1,
		})
	}
	return out, nil
}

// FetchDriverExplanations returns fixed feature contributions
func (m *MockProvider) FetchDriverExplanations(ctx context.Context, driverID int, raceID *int) ([]models.FeatureContribution, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return []models.FeatureContribution{
		{Feature: "Qualifying Position", Contribution: 2.3},
		{Feature: "Recent Form", Contribution: 1.8},
		{Feature: "Circuit Performance", Contribution: 1.2},
		{Feature: "Constructor Pace", Contribution: 0.9},
		{Feature: "Weather Conditions", Contribution: -0.4},
		{Feature: "Tire Strategy", Contribution: -0.7},
		{Feature: "Track Temperature", Contribution: -1.1},
	}, nil
}

// Predict returns a fixed prediction
func (m *MockProvider) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &models.PredictionResponse{
		PredictedPosition:  3.2,
		PredictedRankProbs: []float64{0.05, 0.12, 0.28, 0.22, 0.15, 0.08, 0.05, 0.03, 0.01, 0.01},
		Confidence:         0.78,
		Explanations: models.PredictionExplanations{
			TopFeatures: []models.FeatureContribution{
				{Feature: "qualifying_position", Contribution: 2.1},
				{Feature: "constructor_recent_form", Contribution: 1.5},
				{Feature: "driver_experience_at_track", Contribution: 0.9},
				{Feature: "weather_conditions", Contribution: -0.3},
				{Feature: "tire_strategy_risk", Contribution: -0.8},
			},
		},
	}, nil
}

// FetchModelStatus describes the mock generator as the only loaded model
func (m *MockProvider) FetchModelStatus(ctx context.Context) (models.ModelStatus, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return models.ModelStatus{
		"mock": map[string]interface{}{
			"loaded":     true,
			"type":       "MockProvider",
			"features":   len(mockTrackedDrivers),
			"has_scaler": false,
			"metadata":   map[string]interface{}{"seed": m.seed},
		},
	}, nil
}

// FetchTelemetry generates one sample per second ending now, newest first.
// Samples are seeded by session and driver; only the timestamps move.
func (m *MockProvider) FetchTelemetry(ctx context.Context, sessionID string, driverID *int) ([]models.TelemetryPoint, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	driver := models.DefaultTelemetryDriverID
	if driverID != nil {
		driver = *driverID
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	rng := m.rng(streamTelemetry, int64(h.Sum64()>>1)+int64(driver))

	now := time.Now().UTC().Truncate(time.Second)
	points := make([]models.TelemetryPoint, 0, MockTelemetryPoints)
	for i := 0; i < MockTelemetryPoints; i++ {
		points = append(points, models.TelemetryPoint{
			Timestamp: now.Add(-time.Duration(i) * time.Second),
			DriverID:  driver,
			Lap:       i/10 + 1,
			Sector:    i%3 + 1,
			SpeedKmh:  200 + rng.NormFloat64()*20,
			TrackPosX: rng.Float64() * 1000,
			TrackPosY: rng.Float64() * 500,
			LapTimeMs: 90000 + rng.NormFloat64()*2000,
		})
	}
	return points, nil
}

// HealthCheck always succeeds
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

func (m *MockProvider) rng(stream, key int64) *rand.Rand {
	return rand.New(rand.NewSource(m.seed*1_000_003 + stream*7_919 + key))
}

func (m *MockProvider) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
