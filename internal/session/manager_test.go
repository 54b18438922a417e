package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/replay"
)

// fakeSeries serves a short race and can fail individual series.
type fakeSeries struct {
	laps       int
	lapErr     error
	pitErr     error
	confErr    error
	fetchCount int32
}

func (f *fakeSeries) FetchLapSeries(ctx context.Context, raceID int) (models.LapSeries, error) {
	atomic.AddInt32(&f.fetchCount, 1)
	if f.lapErr != nil {
		return nil, f.lapErr
	}
	series := make(models.LapSeries, 0, f.laps)
	for lap := 1; lap <= f.laps; lap++ {
		series = append(series, models.LapRecord{Lap: lap, Times: map[string]float64{"VER": 90000, "HAM": 91000}})
	}
	return series, nil
}

func (f *fakeSeries) FetchPitEvents(ctx context.Context, raceID int) (models.PitEvents, error) {
	atomic.AddInt32(&f.fetchCount, 1)
	if f.pitErr != nil {
		return nil, f.pitErr
	}
	return models.PitEvents{
		{DriverID: 1, Driver: "VER", Lap: 2, Stop: 1},
		{DriverID: 2, Driver: "HAM", Lap: 4, Stop: 1},
	}, nil
}

func (f *fakeSeries) FetchConfidenceSeries(ctx context.Context, raceID int) (models.ConfidenceSeries, error) {
	atomic.AddInt32(&f.fetchCount, 1)
	if f.confErr != nil {
		return nil, f.confErr
	}
	series := make(models.ConfidenceSeries, 0, f.laps)
	for lap := 1; lap <= f.laps; lap++ {
		series = append(series, models.ConfidenceRecord{Lap: lap, Scores: map[string]float64{"VER": 0.9}})
	}
	return series, nil
}

func newTestManager(provider datasource.SeriesProvider) (*Manager, *replay.ManualScheduler) {
	sched := replay.NewManualScheduler()
	return NewManager(provider, sched, ManagerConfig{LapInterval: time.Second}, nil), sched
}

func upstreamErr(msg string) error {
	return datasource.NewDataSourceError("api", datasource.ErrCodeServerError, msg, nil)
}

func TestManager_OpenSizesReplayToLapData(t *testing.T) {
	m, _ := newTestManager(&fakeSeries{laps: 5})

	s, err := m.Open(context.Background(), 1050)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1050, s.RaceID)
	assert.False(t, s.Degraded())
	assert.False(t, s.Summary().Degraded)

	view := s.View()
	assert.Equal(t, 5, view.MaxLap)
	assert.Equal(t, 1, view.CurrentLap)
	assert.False(t, view.IsPlaying)
	assert.Len(t, view.Laps, 1)
	assert.Empty(t, view.Pits)
	assert.Len(t, view.Confidence, 1)
	assert.Equal(t, []string{"HAM", "VER"}, view.Drivers)
	assert.Nil(t, view.Errors)
	assert.Equal(t, 1, m.Len())
}

func TestManager_MockProviderFullRace(t *testing.T) {
	m, sched := newTestManager(datasource.NewMockProvider(1, 0))

	s, err := m.Open(context.Background(), 1050)
	require.NoError(t, err)
	assert.Equal(t, datasource.MockRaceLaps, s.Snapshot().MaxLap)

	s.Start()
	sched.FireN(datasource.MockRaceLaps + 5)

	view := s.View()
	assert.Equal(t, datasource.MockRaceLaps, view.CurrentLap)
	assert.True(t, view.IsPlaying)
	assert.Len(t, view.Laps, datasource.MockRaceLaps)
	assert.InDelta(t, 1.0, view.Progress, 1e-9)
}

func TestManager_VisibleSlicesFollowReplay(t *testing.T) {
	m, sched := newTestManager(&fakeSeries{laps: 6})
	s, err := m.Open(context.Background(), 1)
	require.NoError(t, err)

	s.Start()
	sched.FireN(3)

	view := s.View()
	assert.Equal(t, 4, view.CurrentLap)
	assert.Len(t, view.Laps, 4)
	assert.Len(t, view.Confidence, 4)
	assert.Len(t, view.Pits, 2)
	for _, r := range view.Laps {
		assert.LessOrEqual(t, r.Lap, 4)
	}

	s.Reset()
	view = s.View()
	assert.Equal(t, 1, view.CurrentLap)
	assert.Len(t, view.Laps, 1)
	assert.Empty(t, view.Pits)
}

func TestManager_FailedSeriesDegradeToEmpty(t *testing.T) {
	provider := &fakeSeries{laps: 10, pitErr: upstreamErr("pit data unavailable")}
	m, _ := newTestManager(provider)

	s, err := m.Open(context.Background(), 1050)
	require.NoError(t, err)
	assert.True(t, s.Degraded())
	assert.True(t, s.Summary().Degraded)

	view := s.View()
	assert.Equal(t, 10, view.MaxLap)
	assert.NotNil(t, view.Pits)
	assert.Empty(t, view.Pits)
	require.Contains(t, view.Errors, SeriesPits)
	assert.Contains(t, view.Errors[SeriesPits], "pit data unavailable")
	assert.NotContains(t, view.Errors, SeriesLaps)
	assert.EqualValues(t, 3, atomic.LoadInt32(&provider.fetchCount))
}

func TestManager_AllSeriesFailUsesDefaultMaxLap(t *testing.T) {
	boom := upstreamErr("down")
	m, sched := newTestManager(&fakeSeries{lapErr: boom, pitErr: boom, confErr: boom})

	s, err := m.Open(context.Background(), 1050)
	require.NoError(t, err)

	view := s.View()
	assert.Equal(t, models.DefaultMaxLap, view.MaxLap)
	assert.Len(t, view.Errors, 3)
	assert.Empty(t, view.Laps)

	s.Start()
	sched.FireN(10)
	assert.Equal(t, 11, s.Snapshot().CurrentLap)
	assert.Empty(t, s.View().Laps)
}

func TestManager_OpenValidation(t *testing.T) {
	m, _ := newTestManager(&fakeSeries{laps: 3})

	_, err := m.Open(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidRaceID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Open(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Len())
}

func TestManager_SessionLimit(t *testing.T) {
	sched := replay.NewManualScheduler()
	m := NewManager(&fakeSeries{laps: 3}, sched, ManagerConfig{MaxSessions: 2}, nil)

	for i := 0; i < 2; i++ {
		_, err := m.Open(context.Background(), i+1)
		require.NoError(t, err)
	}
	_, err := m.Open(context.Background(), 3)
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestManager_Commands(t *testing.T) {
	m, sched := newTestManager(&fakeSeries{laps: 5})
	s, err := m.Open(context.Background(), 1)
	require.NoError(t, err)

	snap, err := m.Command(s.ID, CommandStart)
	require.NoError(t, err)
	assert.True(t, snap.IsPlaying)
	assert.Equal(t, 1, sched.Armed())

	sched.Fire()
	snap, err = m.Command(s.ID, CommandPause)
	require.NoError(t, err)
	assert.False(t, snap.IsPlaying)
	assert.Equal(t, 2, snap.CurrentLap)
	assert.Equal(t, 0, sched.Armed())

	snap, err = m.Command(s.ID, CommandReset)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentLap)

	_, err = m.Command(s.ID, "rewind")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = m.Command("missing", CommandStart)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_CloseCancelsTimer(t *testing.T) {
	m, sched := newTestManager(&fakeSeries{laps: 5})
	s, err := m.Open(context.Background(), 1)
	require.NoError(t, err)

	s.Start()
	require.Equal(t, 1, sched.Armed())

	require.NoError(t, m.Close(s.ID))
	assert.Equal(t, 0, sched.Armed())
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID), ErrSessionNotFound)
}

func TestManager_ListAndCloseAll(t *testing.T) {
	m, _ := newTestManager(&fakeSeries{laps: 5})
	ids := []string{"a", "b", "c"}
	next := 0
	m.newID = func() string {
		id := ids[next]
		next++
		return id
	}

	for i := range ids {
		_, err := m.Open(context.Background(), 100+i)
		require.NoError(t, err)
	}

	list := m.List()
	require.Len(t, list, 3)
	raceIDs := make([]int, 0, len(list))
	for _, s := range list {
		raceIDs = append(raceIDs, s.RaceID)
	}
	assert.ElementsMatch(t, []int{100, 101, 102}, raceIDs)

	m.CloseAll()
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.List())
}

func TestSession_SubscribeAndViewAt(t *testing.T) {
	m, sched := newTestManager(&fakeSeries{laps: 5})
	s, err := m.Open(context.Background(), 1)
	require.NoError(t, err)

	updates, cancel := s.Subscribe()
	defer cancel()

	s.Start()
	sched.FireN(2)

	var last replay.Snapshot
	require.Eventually(t, func() bool {
		select {
		case snap := <-updates:
			last = snap
		default:
		}
		return last.CurrentLap == 3
	}, time.Second, 5*time.Millisecond)

	view := s.ViewAt(last)
	assert.Len(t, view.Laps, 3)
	assert.Equal(t, s.ID, view.SessionID)
}

func TestLoadSeries_ErrorsAreIndependent(t *testing.T) {
	for _, tc := range []struct {
		name   string
		fake   *fakeSeries
		failed string
	}{
		{"laps", &fakeSeries{laps: 4, lapErr: errors.New("x")}, SeriesLaps},
		{"pits", &fakeSeries{laps: 4, pitErr: errors.New("x")}, SeriesPits},
		{"confidence", &fakeSeries{laps: 4, confErr: errors.New("x")}, SeriesConfidence},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := loadSeries(context.Background(), tc.fake, 1)
			require.Len(t, data.errs, 1, fmt.Sprint(data.errs))
			assert.Contains(t, data.errs, tc.failed)
			assert.NotNil(t, data.laps)
			assert.NotNil(t, data.pits)
			assert.NotNil(t, data.confidence)
		})
	}
}

func TestManager_ConfiguredDefaultMaxLap(t *testing.T) {
	boom := upstreamErr("down")
	m := NewManager(&fakeSeries{lapErr: boom}, replay.NewManualScheduler(),
		ManagerConfig{DefaultMaxLap: 70}, nil)

	s, err := m.Open(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 70, s.Snapshot().MaxLap)
}
