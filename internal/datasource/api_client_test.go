package datasource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/models"
)

func newTestAPIClient(t *testing.T, handler http.Handler, cfg HTTPClientConfig) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.RateLimit = 0
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	return NewAPIClient(NewRateLimitedHTTPClient(cfg, nil), srv.URL+"/", "secret-token", nil)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestAPIClient_FetchSeries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/races/1050/lap-data", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"race_id":1050,"lap_data":[{"lap":2,"VER":90500},{"lap":1,"VER":90123.4,"HAM":91022}]}`)
	})
	mux.HandleFunc("/races/1050/pit-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"pit_data":[{"driverId":1,"driver":"VER","lap":15,"duration":2.4,"stop":1,"tireChange":"Medium → Soft"}]}`)
	})
	mux.HandleFunc("/races/1050/confidence-stream", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"confidence_data":[{"lap":1,"VER_confidence":0.87,"HAM_confidence":0.8}]}`)
	})

	c := newTestAPIClient(t, mux, DefaultHTTPClientConfig())
	ctx := context.Background()

	laps, err := c.FetchLapSeries(ctx, 1050)
	require.NoError(t, err)
	require.Len(t, laps, 2)
	assert.Equal(t, 1, laps[0].Lap)
	assert.InDelta(t, 90123.4, laps[0].Times["VER"], 1e-9)
	assert.Equal(t, 2, laps.MaxLap())

	pits, err := c.FetchPitEvents(ctx, 1050)
	require.NoError(t, err)
	require.Len(t, pits, 1)
	assert.Equal(t, "2.4", pits[0].Duration.String())

	conf, err := c.FetchConfidenceSeries(ctx, 1050)
	require.NoError(t, err)
	require.Len(t, conf, 1)
	assert.InDelta(t, 0.87, conf[0].Scores["VER"], 1e-9)
}

func TestAPIClient_RaceAndDriverLookups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/races/current", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"raceId":1050,"name":"Monaco Grand Prix","date":"2024-05-26","circuit":{"name":"Circuit de Monaco","laps":78}}`)
	})
	mux.HandleFunc("/races/1050/predictions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"race_id":1050,"predictions":[{"driverId":1,"driver":{"code":"VER"},"predicted_position":1.2,"confidence":0.87,"trend":"up"}]}`)
	})
	mux.HandleFunc("/drivers/44", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"driverId":44,"forename":"Lewis","surname":"Hamilton","code":"HAM"}`)
	})
	mux.HandleFunc("/drivers/44/performance", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, `{"driver_id":44,"performance":[{"race":"R1","position":3,"points":15,"dnf":false}]}`)
	})
	mux.HandleFunc("/drivers/44/explanations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1050", r.URL.Query().Get("race_id"))
		writeJSON(w, http.StatusOK, `{"explanations":[{"feature":"Recent Form","contribution":1.8}]}`)
	})
	mux.HandleFunc("/models/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"model_status":{"position_model":{"loaded":true}}}`)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"healthy"}`)
	})
	mux.HandleFunc("/telemetry/fp1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "44", r.URL.Query().Get("driver_id"))
		writeJSON(w, http.StatusOK, `{"telemetry":[{"timestamp":"2024-05-26T13:00:00.250000","driverId":44,"lap":1,"sector":2,"speed_kmh":212.5,"track_pos_x":10,"track_pos_y":20,"lap_time_ms":90100}]}`)
	})

	c := newTestAPIClient(t, mux, DefaultHTTPClientConfig())
	ctx := context.Background()

	race, err := c.FetchCurrentRace(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1050, race.RaceID)
	assert.Equal(t, 78, race.ScheduledLaps())

	preds, err := c.FetchRacePredictions(ctx, 1050)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, models.TrendUp, preds[0].Trend)

	driver, err := c.FetchDriver(ctx, 44)
	require.NoError(t, err)
	assert.Equal(t, "HAM", driver.Code)

	perf, err := c.FetchDriverPerformance(ctx, 44, 5)
	require.NoError(t, err)
	assert.Len(t, perf, 1)

	raceID := 1050
	expl, err := c.FetchDriverExplanations(ctx, 44, &raceID)
	require.NoError(t, err)
	assert.Equal(t, "Recent Form", expl[0].Feature)

	status, err := c.FetchModelStatus(ctx)
	require.NoError(t, err)
	assert.Contains(t, status, "position_model")

	driverID := 44
	telemetry, err := c.FetchTelemetry(ctx, "fp1", &driverID)
	require.NoError(t, err)
	require.Len(t, telemetry, 1)
	assert.Equal(t, 2, telemetry[0].Sector)
	assert.InDelta(t, 212.5, telemetry[0].SpeedKmh, 1e-9)
	assert.True(t, time.Date(2024, 5, 26, 13, 0, 0, 250_000_000, time.UTC).Equal(telemetry[0].Timestamp))

	assert.NoError(t, c.HealthCheck(ctx))
}

func TestAPIClient_Predict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.PredictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1050, req.RaceID)

		writeJSON(w, http.StatusOK, `{"predicted_position":3.2,"confidence":0.78,"explanations":{"top_features":[{"feature":"qualifying_position","contribution":2.1}]}}`)
	})

	c := newTestAPIClient(t, mux, DefaultHTTPClientConfig())
	resp, err := c.Predict(context.Background(), modelsRequest())
	require.NoError(t, err)
	assert.InDelta(t, 3.2, resp.PredictedPosition, 1e-9)
	assert.Len(t, resp.Explanations.TopFeatures, 1)
}

func TestAPIClient_ErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/races/1/lap-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail":"Race not found"}`)
	})
	mux.HandleFunc("/races/2/lap-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"detail":"boom"}`)
	})
	mux.HandleFunc("/races/3/lap-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"lap_data":[{"VER":1}]}`)
	})
	mux.HandleFunc("/races/4/lap-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{}`)
	})
	mux.HandleFunc("/races/6/lap-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"lap_data":[{"lap":0,"VER":1},{"lap":3,"VER":1},{"lap":3,"VER":1},{"lap":-4,"VER":1}]}`)
	})
	mux.HandleFunc("/races/7/lap-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"lap_data":[{"lap":1,"VER":90000},{"lap":3,"VER":90100}]}`)
	})
	mux.HandleFunc("/races/5/confidence-stream", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"confidence_data":[{"lap":1,"VER_confidence":1.7}]}`)
	})

	cfg := DefaultHTTPClientConfig()
	cfg.CircuitBreakerMax = 0
	c := newTestAPIClient(t, mux, cfg)
	ctx := context.Background()

	_, err := c.FetchLapSeries(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrUpstreamFetch)

	_, err = c.FetchLapSeries(ctx, 2)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Contains(t, err.Error(), "boom")

	_, err = c.FetchLapSeries(ctx, 3)
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = c.FetchLapSeries(ctx, 4)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	laps, err := c.FetchLapSeries(ctx, 6)
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.ErrorIs(t, err, models.ErrNonContiguousLaps)
	assert.Nil(t, laps)

	_, err = c.FetchLapSeries(ctx, 7)
	assert.ErrorIs(t, err, models.ErrNonContiguousLaps)
	assert.Contains(t, err.Error(), "invalid lap data")

	_, err = c.FetchConfidenceSeries(ctx, 5)
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.ErrorIs(t, err, models.ErrConfidenceOutOfRange)
}

func TestAPIClient_RetriesWhenConfigured(t *testing.T) {
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"lap_data":[{"lap":1,"VER":90000}]}`)
	})

	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 3
	c := newTestAPIClient(t, handler, cfg)

	laps, err := c.FetchLapSeries(context.Background(), 1050)
	require.NoError(t, err)
	assert.Len(t, laps, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestAPIClient_NoRetryByDefault(t *testing.T) {
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	})

	c := newTestAPIClient(t, handler, DefaultHTTPClientConfig())
	_, err := c.FetchLapSeries(context.Background(), 1050)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRateLimitedHTTPClient_CircuitBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultHTTPClientConfig()
	cfg.RateLimit = 0
	cfg.CircuitBreakerMax = 2
	cfg.CircuitCooldown = time.Minute
	client := NewRateLimitedHTTPClient(cfg, nil)

	now := time.Now()
	client.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		resp, err := client.Do(ctx, http.MethodGet, srv.URL, nil, nil)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.True(t, client.CircuitOpen())

	_, err := client.Do(ctx, http.MethodGet, srv.URL, nil, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	// after the cooldown a trial request goes through
	now = now.Add(2 * time.Minute)
	assert.False(t, client.CircuitOpen())
	resp, err := client.Do(ctx, http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.True(t, client.CircuitOpen())
}

func TestAPIClient_CircuitOpenCode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{}`)
	})

	cfg := DefaultHTTPClientConfig()
	cfg.CircuitBreakerMax = 1
	c := newTestAPIClient(t, handler, cfg)

	_, err := c.FetchLapSeries(context.Background(), 1050)
	assert.ErrorIs(t, err, ErrServerError)

	_, err = c.FetchLapSeries(context.Background(), 1050)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}
