package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

const postgresSourceName = "postgres"

// Querier is the subset of the pgx pool used by PostgresProvider.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const (
	lapTimesQuery = `
		SELECT lt.lap, d.code, lt.milliseconds
		FROM lap_times lt
		JOIN drivers d ON d.driver_id = lt.driver_id
		WHERE lt.race_id = $1 AND d.code IS NOT NULL
		ORDER BY lt.lap, d.code`

	pitStopsQuery = `
		SELECT ps.driver_id, COALESCE(d.code, ''), ps.lap, ps.stop, ps.milliseconds
		FROM pit_stops ps
		JOIN drivers d ON d.driver_id = ps.driver_id
		WHERE ps.race_id = $1
		ORDER BY ps.lap, d.code, ps.stop`

	confidenceQuery = `
		SELECT pc.lap, d.code, pc.confidence
		FROM prediction_confidence pc
		JOIN drivers d ON d.driver_id = pc.driver_id
		WHERE pc.race_id = $1 AND d.code IS NOT NULL
		ORDER BY pc.lap, d.code`

	currentRaceQuery = `
		SELECT r.race_id, r.name, to_char(r.date, 'YYYY-MM-DD'), COALESCE(to_char(r.time, 'HH24:MI'), ''),
		       r.round, c.name, c.location, c.country,
		       COALESCE((SELECT MAX(lt.lap) FROM lap_times lt WHERE lt.race_id = r.race_id), 0)
		FROM races r
		JOIN circuits c ON c.circuit_id = r.circuit_id
		WHERE EXISTS (SELECT 1 FROM lap_times lt WHERE lt.race_id = r.race_id)
		ORDER BY r.date DESC
		LIMIT 1`

	driverQuery = `
		SELECT driver_id, forename, surname, COALESCE(code, ''), COALESCE(number, 0),
		       COALESCE(nationality, ''), COALESCE(to_char(dob, 'YYYY-MM-DD'), '')
		FROM drivers
		WHERE driver_id = $1`
)

// PostgresProvider reads historical race series from an Ergast-style schema.
// Only series, the current race and driver profiles are available; other
// lookups return ErrNotSupported.
type PostgresProvider struct {
	db     Querier
	logger *logger.ProviderLogger
}

// NewPostgresProvider creates a provider over db.
func NewPostgresProvider(db Querier, log *logrus.Logger) *PostgresProvider {
	if log == nil {
		log = logger.Discard()
	}
	return &PostgresProvider{db: db, logger: logger.NewProviderLogger(log)}
}

// Name returns the name of the data source
func (p *PostgresProvider) Name() string {
	return postgresSourceName
}

type seriesRow struct {
	lap   int
	code  string
	value float64
}

type pitRow struct {
	driverID     int
	code         string
	lap          int
	stop         int
	milliseconds int64
}

// FetchLapSeries pivots lap_times rows into one record per lap
func (p *PostgresProvider) FetchLapSeries(ctx context.Context, raceID int) (series models.LapSeries, err error) {
	defer p.observe(ResourceLapData, raceID, time.Now(), &err)

	rows, err := p.db.Query(ctx, lapTimesQuery, raceID)
	if err != nil {
		return nil, p.queryError(ResourceLapData, err)
	}
	collected, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (seriesRow, error) {
		var r seriesRow
		var ms int64
		err := row.Scan(&r.lap, &r.code, &ms)
		r.value = float64(ms)
		return r, err
	})
	if err != nil {
		return nil, p.queryError(ResourceLapData, err)
	}
	if len(collected) == 0 {
		return nil, NewDataSourceError(postgresSourceName, ErrCodeNotFound, "no lap times for race", nil)
	}
	return pivotLapRows(collected), nil
}

// FetchPitEvents reads pit_stops rows; durations come from the milliseconds column
func (p *PostgresProvider) FetchPitEvents(ctx context.Context, raceID int) (events models.PitEvents, err error) {
	defer p.observe(ResourcePitData, raceID, time.Now(), &err)

	rows, err := p.db.Query(ctx, pitStopsQuery, raceID)
	if err != nil {
		return nil, p.queryError(ResourcePitData, err)
	}
	collected, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pitRow, error) {
		var r pitRow
		err := row.Scan(&r.driverID, &r.code, &r.lap, &r.stop, &r.milliseconds)
		return r, err
	})
	if err != nil {
		return nil, p.queryError(ResourcePitData, err)
	}
	return pitEventsFromRows(collected), nil
}

// FetchConfidenceSeries pivots prediction_confidence rows into one record per lap
func (p *PostgresProvider) FetchConfidenceSeries(ctx context.Context, raceID int) (series models.ConfidenceSeries, err error) {
	defer p.observe(ResourceConfidence, raceID, time.Now(), &err)

	rows, err := p.db.Query(ctx, confidenceQuery, raceID)
	if err != nil {
		return nil, p.queryError(ResourceConfidence, err)
	}
	collected, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (seriesRow, error) {
		var r seriesRow
		err := row.Scan(&r.lap, &r.code, &r.value)
		return r, err
	})
	if err != nil {
		return nil, p.queryError(ResourceConfidence, err)
	}

	series = pivotConfidenceRows(collected)
	if err := series.Validate(); err != nil {
		return nil, NewDataSourceError(postgresSourceName, ErrCodeInvalidData, "invalid confidence data", err)
	}
	return series, nil
}

// FetchCurrentRace returns the most recent race that has lap data
func (p *PostgresProvider) FetchCurrentRace(ctx context.Context) (race *models.Race, err error) {
	defer p.observe(ResourceCurrentRace, 0, time.Now(), &err)

	var r models.Race
	row := p.db.QueryRow(ctx, currentRaceQuery)
	if err := row.Scan(&r.RaceID, &r.Name, &r.Date, &r.Time, &r.Round,
		&r.Circuit.Name, &r.Circuit.Location, &r.Circuit.Country, &r.Circuit.Laps); err != nil {
		return nil, p.queryError(ResourceCurrentRace, err)
	}
	r.Location = r.Circuit.Location + ", " + r.Circuit.Country
	return &r, nil
}

// FetchDriver returns a driver profile without season statistics
func (p *PostgresProvider) FetchDriver(ctx context.Context, driverID int) (driver *models.Driver, err error) {
	defer p.observe(ResourceDriver, 0, time.Now(), &err)

	var d models.Driver
	row := p.db.QueryRow(ctx, driverQuery, driverID)
	if err := row.Scan(&d.DriverID, &d.Forename, &d.Surname, &d.Code, &d.Number, &d.Nationality, &d.DOB); err != nil {
		return nil, p.queryError(ResourceDriver, err)
	}
	return &d, nil
}

// FetchRacePredictions is not available from the historical database
func (p *PostgresProvider) FetchRacePredictions(ctx context.Context, raceID int) ([]models.DriverPrediction, error) {
	return nil, p.notSupported(ResourcePredictions)
}

// FetchDriverPerformance is not available from the historical database
func (p *PostgresProvider) FetchDriverPerformance(ctx context.Context, driverID, limit int) ([]models.DriverPerformance, error) {
	return nil, p.notSupported(ResourcePerformance)
}

// FetchDriverExplanations is not available from the historical database
func (p *PostgresProvider) FetchDriverExplanations(ctx context.Context, driverID int, raceID *int) ([]models.FeatureContribution, error) {
	return nil, p.notSupported(ResourceExplanations)
}

// Predict is not available from the historical database
func (p *PostgresProvider) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	return nil, p.notSupported(ResourcePredict)
}

// FetchModelStatus is not available from the historical database
func (p *PostgresProvider) FetchModelStatus(ctx context.Context) (models.ModelStatus, error) {
	return nil, p.notSupported(ResourceModelStatus)
}

// FetchTelemetry is not available from the historical database
func (p *PostgresProvider) FetchTelemetry(ctx context.Context, sessionID string, driverID *int) ([]models.TelemetryPoint, error) {
	return nil, p.notSupported(ResourceTelemetry)
}

// HealthCheck pings the database
func (p *PostgresProvider) HealthCheck(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return NewDataSourceError(postgresSourceName, ErrCodeNetworkError, "database unreachable", err)
	}
	return nil
}

func (p *PostgresProvider) notSupported(resource string) error {
	return NewDataSourceError(postgresSourceName, ErrCodeNotSupported, resource+" is not available from the historical database", nil)
}

func (p *PostgresProvider) queryError(resource string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NewDataSourceError(postgresSourceName, ErrCodeNotFound, resource+" not found", err)
	}
	return NewDataSourceError(postgresSourceName, ErrCodeNetworkError, "failed to query "+resource, err)
}

func (p *PostgresProvider) observe(resource string, raceID int, start time.Time, errp *error) {
	err := *errp
	metrics.RecordFetch(postgresSourceName, resource, err, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		p.logger.LogFetchFailure(postgresSourceName, resource, raceID, err)
	}
}

func pivotLapRows(rows []seriesRow) models.LapSeries {
	byLap := make(map[int]map[string]float64)
	for _, r := range rows {
		if byLap[r.lap] == nil {
			byLap[r.lap] = make(map[string]float64)
		}
		byLap[r.lap][r.code] = r.value
	}

	series := make(models.LapSeries, 0, len(byLap))
	for lap, times := range byLap {
		series = append(series, models.LapRecord{Lap: lap, Times: times})
	}
	return series.Sorted()
}

func pivotConfidenceRows(rows []seriesRow) models.ConfidenceSeries {
	byLap := make(map[int]map[string]float64)
	for _, r := range rows {
		if byLap[r.lap] == nil {
			byLap[r.lap] = make(map[string]float64)
		}
		byLap[r.lap][r.code] = r.value
	}

	series := make(models.ConfidenceSeries, 0, len(byLap))
	for lap, scores := range byLap {
		series = append(series, models.ConfidenceRecord{Lap: lap, Scores: scores})
	}
	return series.Sorted()
}

func pitEventsFromRows(rows []pitRow) models.PitEvents {
	events := make(models.PitEvents, 0, len(rows))
	for _, r := range rows {
		events = append(events, models.PitEvent{
			DriverID: r.driverID,
			Driver:   r.code,
			Lap:      r.lap,
			Stop:     r.stop,
			Duration: decimal.New(r.milliseconds, -3),
		})
	}
	return events
}
