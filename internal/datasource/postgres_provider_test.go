package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/database"
)

func TestPivotLapRows(t *testing.T) {
	rows := []seriesRow{
		{lap: 2, code: "VER", value: 90500},
		{lap: 1, code: "VER", value: 90100},
		{lap: 1, code: "HAM", value: 91000},
		{lap: 2, code: "HAM", value: 91200},
	}

	series := pivotLapRows(rows)
	require.Len(t, series, 2)
	require.NoError(t, series.Validate())
	assert.Equal(t, 1, series[0].Lap)
	assert.InDelta(t, 91000, series[0].Times["HAM"], 1e-9)
	assert.Equal(t, []string{"HAM", "VER"}, series.Drivers())
}

func TestPivotConfidenceRows(t *testing.T) {
	series := pivotConfidenceRows([]seriesRow{
		{lap: 3, code: "VER", value: 0.9},
		{lap: 1, code: "VER", value: 0.8},
	})
	require.Len(t, series, 2)
	assert.Equal(t, 1, series[0].Lap)
	assert.Equal(t, 3, series[1].Lap)
}

func TestPitEventsFromRows(t *testing.T) {
	events := pitEventsFromRows([]pitRow{
		{driverID: 830, code: "VER", lap: 15, stop: 1, milliseconds: 22552},
	})
	require.Len(t, events, 1)
	assert.Equal(t, "22.552", events[0].Duration.String())
	assert.Equal(t, "VER", events[0].Driver)
}

type failingQuerier struct {
	err error
}

func (f failingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.err
}

func (f failingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{err: f.err}
}

func (f failingQuerier) Ping(context.Context) error {
	return f.err
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}

func TestPostgresProvider_ErrorCodes(t *testing.T) {
	ctx := context.Background()

	p := NewPostgresProvider(failingQuerier{err: errors.New("connection reset")}, nil)
	_, err := p.FetchLapSeries(ctx, 1050)
	assert.ErrorIs(t, err, ErrNetworkError)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
	assert.ErrorIs(t, p.HealthCheck(ctx), ErrNetworkError)

	p = NewPostgresProvider(failingQuerier{err: pgx.ErrNoRows}, nil)
	_, err = p.FetchDriver(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.FetchRacePredictions(ctx, 1050)
	assert.ErrorIs(t, err, ErrNotSupported)
	_, err = p.Predict(ctx, modelsRequest())
	assert.ErrorIs(t, err, ErrNotSupported)
	_, err = p.FetchTelemetry(ctx, "fp1", nil)
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestPostgresProvider_Integration(t *testing.T) {
	db := database.SetupTestDB(t)
	p := NewPostgresProvider(db, nil)
	ctx := context.Background()

	race, err := p.FetchCurrentRace(ctx)
	require.NoError(t, err)
	assert.Greater(t, race.RaceID, 0)

	laps, err := p.FetchLapSeries(ctx, race.RaceID)
	require.NoError(t, err)
	assert.Equal(t, race.Circuit.Laps, laps.MaxLap())

	pits, err := p.FetchPitEvents(ctx, race.RaceID)
	require.NoError(t, err)
	assert.NoError(t, pits.Validate())
}
