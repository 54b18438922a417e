package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/replay"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("session limit reached")
	ErrInvalidRaceID   = errors.New("race id must be positive")
	ErrUnknownCommand  = errors.New("unknown replay command")
)

// Replay commands accepted by Manager.Command
const (
	CommandStart = "start"
	CommandPause = "pause"
	CommandReset = "reset"
)

// DefaultMaxSessions bounds concurrently open sessions when no limit is configured.
const DefaultMaxSessions = 100

// ManagerConfig holds session manager settings.
type ManagerConfig struct {
	LapInterval time.Duration
	MaxSessions int
	// DefaultMaxLap sizes the replay when no lap data could be loaded
	DefaultMaxLap int
}

// Manager owns the open sessions. All sessions share one scheduler.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	provider  datasource.SeriesProvider
	scheduler replay.Scheduler
	cfg       ManagerConfig

	logger       *logrus.Logger
	replayLogger *logger.ReplayLogger
	newID        func() string
}

// NewManager creates a session manager.
func NewManager(provider datasource.SeriesProvider, scheduler replay.Scheduler, cfg ManagerConfig, log *logrus.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.LapInterval <= 0 {
		cfg.LapInterval = replay.DefaultLapInterval
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.DefaultMaxLap <= 0 {
		cfg.DefaultMaxLap = models.DefaultMaxLap
	}
	return &Manager{
		sessions:     make(map[string]*Session),
		provider:     provider,
		scheduler:    scheduler,
		cfg:          cfg,
		logger:       log,
		replayLogger: logger.NewReplayLogger(log),
		newID:        func() string { return uuid.New().String() },
	}
}

// Open selects a race: it loads the three series, mounts a controller sized to
// the lap data and registers the session. Series failures do not fail Open.
func (m *Manager) Open(ctx context.Context, raceID int) (*Session, error) {
	if raceID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRaceID, raceID)
	}
	if m.Len() >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	start := time.Now()
	id := m.newID()
	data := loadSeries(ctx, m.provider, raceID)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("loading race %d: %w", raceID, err)
	}

	s := &Session{
		ID:         id,
		RaceID:     raceID,
		CreatedAt:  start.UTC(),
		laps:       data.laps,
		pits:       data.pits,
		confidence: data.confidence,
		fetchErrs:  make(map[string]string, len(data.errs)),
		logger:     m.replayLogger,
	}
	for series, err := range data.errs {
		s.fetchErrs[series] = err.Error()
		m.replayLogger.LogSeriesDegraded(id, raceID, series, err)
	}

	maxLap := m.cfg.DefaultMaxLap
	if len(data.laps) > 0 {
		maxLap = data.laps.MaxLap()
	}
	s.controller = replay.NewController(maxLap, m.scheduler,
		replay.WithInterval(m.cfg.LapInterval),
		replay.WithLogger(m.logger),
		replay.WithFields(sessionFields(id, raceID)),
	)

	m.mu.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		s.controller.Close()
		return nil, ErrTooManySessions
	}
	m.sessions[id] = s
	m.mu.Unlock()

	loadTime := time.Since(start)
	metrics.RecordSessionOpened(loadTime.Seconds())
	m.replayLogger.LogSessionOpened(id, raceID, s.controller.MaxLap(),
		len(data.laps), len(data.pits), len(data.confidence), loadTime)

	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Command applies start, pause or reset to a session.
func (m *Manager) Command(id, command string) (replay.Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return replay.Snapshot{}, err
	}

	switch command {
	case CommandStart:
		return s.Start(), nil
	case CommandPause:
		return s.Pause(), nil
	case CommandReset:
		return s.Reset(), nil
	default:
		return replay.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

// Close unmounts a session, cancelling its timer.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	lastLap := s.close()
	metrics.RecordSessionClosed()
	m.replayLogger.LogSessionClosed(id, s.RaceID, lastLap)
	return nil
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := lo.Keys(m.sessions)
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Close(id)
	}
}

// List returns the open sessions, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	sessions := lo.Values(m.sessions)
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return lo.Map(sessions, func(s *Session, _ int) Summary { return s.Summary() })
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
