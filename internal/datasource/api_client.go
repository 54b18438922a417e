package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

const apiSourceName = "api"

// APIClient implements Provider against the prediction service REST API.
type APIClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiToken   string
	logger     *logger.ProviderLogger
}

// NewAPIClient creates a new prediction API client
func NewAPIClient(httpClient *RateLimitedHTTPClient, baseURL, apiToken string, log *logrus.Logger) *APIClient {
	if log == nil {
		log = logger.Discard()
	}
	return &APIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		logger:     logger.NewProviderLogger(log),
	}
}

// Name returns the name of the data source
func (c *APIClient) Name() string {
	return apiSourceName
}

// FetchLapSeries retrieves the lap times of a race
func (c *APIClient) FetchLapSeries(ctx context.Context, raceID int) (models.LapSeries, error) {
	var envelope struct {
		LapData models.LapSeries `json:"lap_data"`
	}
	path := fmt.Sprintf("/races/%d/lap-data", raceID)
	if err := c.get(ctx, ResourceLapData, raceID, path, &envelope); err != nil {
		return nil, err
	}
	laps := envelope.LapData.Sorted()
	if err := laps.Validate(); err != nil {
		return nil, NewDataSourceError(apiSourceName, ErrCodeInvalidData, "invalid lap data", err)
	}
	return laps, nil
}

// FetchPitEvents retrieves the pit stops of a race
func (c *APIClient) FetchPitEvents(ctx context.Context, raceID int) (models.PitEvents, error) {
	var envelope struct {
		PitData models.PitEvents `json:"pit_data"`
	}
	path := fmt.Sprintf("/races/%d/pit-data", raceID)
	if err := c.get(ctx, ResourcePitData, raceID, path, &envelope); err != nil {
		return nil, err
	}
	if err := envelope.PitData.Validate(); err != nil {
		return nil, NewDataSourceError(apiSourceName, ErrCodeInvalidData, "invalid pit data", err)
	}
	return envelope.PitData.Sorted(), nil
}

// FetchConfidenceSeries retrieves the live confidence stream of a race
func (c *APIClient) FetchConfidenceSeries(ctx context.Context, raceID int) (models.ConfidenceSeries, error) {
	var envelope struct {
		ConfidenceData models.ConfidenceSeries `json:"confidence_data"`
	}
	path := fmt.Sprintf("/races/%d/confidence-stream", raceID)
	if err := c.get(ctx, ResourceConfidence, raceID, path, &envelope); err != nil {
		return nil, err
	}
	if err := envelope.ConfidenceData.Validate(); err != nil {
		return nil, NewDataSourceError(apiSourceName, ErrCodeInvalidData, "invalid confidence data", err)
	}
	return envelope.ConfidenceData.Sorted(), nil
}

// FetchCurrentRace retrieves the current or next race
func (c *APIClient) FetchCurrentRace(ctx context.Context) (*models.Race, error) {
	var race models.Race
	if err := c.get(ctx, ResourceCurrentRace, 0, "/races/current", &race); err != nil {
		return nil, err
	}
	return &race, nil
}

// FetchRacePredictions retrieves the predicted finishing order of a race
func (c *APIClient) FetchRacePredictions(ctx context.Context, raceID int) ([]models.DriverPrediction, error) {
	var envelope struct {
		Predictions []models.DriverPrediction `json:"predictions"`
	}
	path := fmt.Sprintf("/races/%d/predictions", raceID)
	if err := c.get(ctx, ResourcePredictions, raceID, path, &envelope); err != nil {
		return nil, err
	}
	return envelope.Predictions, nil
}

// FetchDriver retrieves a driver profile
func (c *APIClient) FetchDriver(ctx context.Context, driverID int) (*models.Driver, error) {
	var driver models.Driver
	if err := c.get(ctx, ResourceDriver, 0, fmt.Sprintf("/drivers/%d", driverID), &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// FetchDriverPerformance retrieves a driver's recent results
func (c *APIClient) FetchDriverPerformance(ctx context.Context, driverID, limit int) ([]models.DriverPerformance, error) {
	if limit <= 0 {
		limit = DefaultPerformanceLimit
	}
	var envelope struct {
		Performance []models.DriverPerformance `json:"performance"`
	}
	path := fmt.Sprintf("/drivers/%d/performance?limit=%d", driverID, limit)
	if err := c.get(ctx, ResourcePerformance, 0, path, &envelope); err != nil {
		return nil, err
	}
	return envelope.Performance, nil
}

// FetchDriverExplanations retrieves feature attributions for a driver
func (c *APIClient) FetchDriverExplanations(ctx context.Context, driverID int, raceID *int) ([]models.FeatureContribution, error) {
	var envelope struct {
		Explanations []models.FeatureContribution `json:"explanations"`
	}
	path := fmt.Sprintf("/drivers/%d/explanations", driverID)
	race := 0
	if raceID != nil {
		race = *raceID
		path += "?" + url.Values{"race_id": {strconv.Itoa(race)}}.Encode()
	}
	if err := c.get(ctx, ResourceExplanations, race, path, &envelope); err != nil {
		return nil, err
	}
	return envelope.Explanations, nil
}

// Predict asks the model for one driver's finishing position
func (c *APIClient) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewDataSourceError(apiSourceName, ErrCodeInvalidData, "failed to encode request", err)
	}

	var out models.PredictionResponse
	if err := c.do(ctx, ResourcePredict, req.RaceID, http.MethodPost, "/predict", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchModelStatus retrieves the state of the loaded models
func (c *APIClient) FetchModelStatus(ctx context.Context) (models.ModelStatus, error) {
	var envelope struct {
		ModelStatus models.ModelStatus `json:"model_status"`
	}
	if err := c.get(ctx, ResourceModelStatus, 0, "/models/status", &envelope); err != nil {
		return nil, err
	}
	return envelope.ModelStatus, nil
}

// FetchTelemetry retrieves the telemetry samples of a timing session
func (c *APIClient) FetchTelemetry(ctx context.Context, sessionID string, driverID *int) ([]models.TelemetryPoint, error) {
	var envelope struct {
		Telemetry []models.TelemetryPoint `json:"telemetry"`
	}
	path := "/telemetry/" + url.PathEscape(sessionID)
	if driverID != nil {
		path += "?" + url.Values{"driver_id": {strconv.Itoa(*driverID)}}.Encode()
	}
	if err := c.get(ctx, ResourceTelemetry, 0, path, &envelope); err != nil {
		return nil, err
	}
	return envelope.Telemetry, nil
}

// HealthCheck calls the upstream /health endpoint
func (c *APIClient) HealthCheck(ctx context.Context) error {
	var out map[string]interface{}
	return c.get(ctx, ResourceHealth, 0, "/health", &out)
}

func (c *APIClient) get(ctx context.Context, resource string, raceID int, path string, out interface{}) error {
	return c.do(ctx, resource, raceID, http.MethodGet, path, nil, out)
}

func (c *APIClient) do(ctx context.Context, resource string, raceID int, method, path string, body []byte, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordFetch(apiSourceName, resource, err, time.Since(start).Seconds())
		if err != nil {
			c.logger.LogFetchFailure(apiSourceName, resource, raceID, err)
		}
	}()

	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.apiToken != "" {
		header.Set("Authorization", "Bearer "+c.apiToken)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(ctx, method, c.baseURL+path, reader, header)
	if err != nil {
		code := ErrCodeNetworkError
		if errors.Is(err, ErrCircuitOpen) {
			code = ErrCodeCircuitOpen
		}
		return NewDataSourceError(apiSourceName, code, "failed to fetch "+resource, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(apiSourceName, ErrCodeInvalidData, "failed to parse "+resource, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(apiSourceName, ErrCodeNotFound, "resource not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(apiSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewDataSourceError(apiSourceName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
}
