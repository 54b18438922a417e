// Package session implements live replay sessions: the three race series are
// fetched once when a race is selected and a replay controller decides how much
// of them is visible.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/replay"
)

// Series names used in fetch error reports
const (
	SeriesLaps       = datasource.ResourceLapData
	SeriesPits       = datasource.ResourcePitData
	SeriesConfidence = datasource.ResourceConfidence
)

// Session is one race selection with its own replay controller.
type Session struct {
	ID        string
	RaceID    int
	CreatedAt time.Time

	laps       models.LapSeries
	pits       models.PitEvents
	confidence models.ConfidenceSeries
	fetchErrs  map[string]string

	controller *replay.Controller
	logger     *logger.ReplayLogger
}

// View is what a dashboard renders: the replay snapshot plus every series
// trimmed to the current lap.
type View struct {
	SessionID string `json:"session_id"`
	RaceID    int    `json:"race_id"`
	replay.Snapshot
	Drivers    []string                `json:"drivers"`
	Laps       models.LapSeries        `json:"lap_data"`
	Pits       models.PitEvents        `json:"pit_data"`
	Confidence models.ConfidenceSeries `json:"confidence_data"`
	Errors     map[string]string       `json:"errors,omitempty"`
}

// Summary is the short form used when listing sessions.
type Summary struct {
	SessionID string          `json:"session_id"`
	RaceID    int             `json:"race_id"`
	CreatedAt time.Time       `json:"created_at"`
	Degraded  bool            `json:"degraded"`
	Snapshot  replay.Snapshot `json:"replay"`
}

type seriesData struct {
	laps       models.LapSeries
	pits       models.PitEvents
	confidence models.ConfidenceSeries
	errs       map[string]error
}

// loadSeries fetches the three series concurrently and waits for all of them.
// A failed series is left empty and its error recorded.
func loadSeries(ctx context.Context, provider datasource.SeriesProvider, raceID int) seriesData {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		data = seriesData{errs: make(map[string]error)}
	)

	record := func(series string, err error) {
		mu.Lock()
		data.errs[series] = err
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		laps, err := provider.FetchLapSeries(ctx, raceID)
		if err != nil {
			record(SeriesLaps, err)
			return
		}
		data.laps = laps
	}()
	go func() {
		defer wg.Done()
		pits, err := provider.FetchPitEvents(ctx, raceID)
		if err != nil {
			record(SeriesPits, err)
			return
		}
		data.pits = pits
	}()
	go func() {
		defer wg.Done()
		confidence, err := provider.FetchConfidenceSeries(ctx, raceID)
		if err != nil {
			record(SeriesConfidence, err)
			return
		}
		data.confidence = confidence
	}()
	wg.Wait()

	if data.laps == nil {
		data.laps = models.LapSeries{}
	}
	if data.pits == nil {
		data.pits = models.PitEvents{}
	}
	if data.confidence == nil {
		data.confidence = models.ConfidenceSeries{}
	}
	return data
}

// Start resumes the replay.
func (s *Session) Start() replay.Snapshot {
	s.controller.Start()
	return s.logCommand("start")
}

// Pause stops the replay at the current lap.
func (s *Session) Pause() replay.Snapshot {
	s.controller.Pause()
	return s.logCommand("pause")
}

// Reset rewinds to lap 1 and stops.
func (s *Session) Reset() replay.Snapshot {
	s.controller.Reset()
	return s.logCommand("reset")
}

func (s *Session) logCommand(command string) replay.Snapshot {
	snap := s.controller.Snapshot()
	s.logger.LogCommand(s.ID, command, snap.CurrentLap, snap.IsPlaying)
	return snap
}

// Snapshot returns the replay state.
func (s *Session) Snapshot() replay.Snapshot {
	return s.controller.Snapshot()
}

// Subscribe streams replay snapshots. See replay.Controller.Subscribe.
func (s *Session) Subscribe() (<-chan replay.Snapshot, func()) {
	return s.controller.Subscribe()
}

// View returns the series visible at the current lap.
func (s *Session) View() View {
	return s.viewAt(s.controller.Snapshot())
}

// ViewAt renders the visible series for a snapshot received from Subscribe.
func (s *Session) ViewAt(snap replay.Snapshot) View {
	return s.viewAt(snap)
}

func (s *Session) viewAt(snap replay.Snapshot) View {
	v := View{
		SessionID:  s.ID,
		RaceID:     s.RaceID,
		Snapshot:   snap,
		Drivers:    s.laps.Drivers(),
		Laps:       s.laps.UpTo(snap.CurrentLap),
		Pits:       s.pits.UpTo(snap.CurrentLap),
		Confidence: s.confidence.UpTo(snap.CurrentLap),
	}
	if len(s.fetchErrs) > 0 {
		v.Errors = make(map[string]string, len(s.fetchErrs))
		for series, msg := range s.fetchErrs {
			v.Errors[series] = msg
		}
	}
	return v
}

// Summary returns the short listing form.
func (s *Session) Summary() Summary {
	return Summary{
		SessionID: s.ID,
		RaceID:    s.RaceID,
		CreatedAt: s.CreatedAt,
		Degraded:  s.Degraded(),
		Snapshot:  s.controller.Snapshot(),
	}
}

// Degraded reports whether any series failed to load.
func (s *Session) Degraded() bool {
	return len(s.fetchErrs) > 0
}

func (s *Session) close() int {
	lap := s.controller.CurrentLap()
	s.controller.Close()
	return lap
}

func sessionFields(id string, raceID int) logrus.Fields {
	return logrus.Fields{"session_id": id, "race_id": raceID}
}
