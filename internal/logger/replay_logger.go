package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ReplayLogger provides dedicated logging for replay sessions.
type ReplayLogger struct {
	*logrus.Entry
}

// NewReplayLogger creates a new replay logger.
func NewReplayLogger(baseLogger *logrus.Logger) *ReplayLogger {
	return &ReplayLogger{
		Entry: baseLogger.WithField("component", "replay"),
	}
}

// LogSessionOpened logs a session whose series finished loading.
func (rl *ReplayLogger) LogSessionOpened(sessionID string, raceID, maxLap, laps, pits, confidence int, loadTime time.Duration) {
	rl.WithFields(logrus.Fields{
		"session_id":       sessionID,
		"race_id":          raceID,
		"max_lap":          maxLap,
		"lap_records":      laps,
		"pit_events":       pits,
		"confidence_laps":  confidence,
		"load_duration_ms": loadTime.Milliseconds(),
	}).Info("Replay session opened")
}

// LogSessionClosed logs a session teardown.
func (rl *ReplayLogger) LogSessionClosed(sessionID string, raceID, lastLap int) {
	rl.WithFields(logrus.Fields{
		"session_id": sessionID,
		"race_id":    raceID,
		"last_lap":   lastLap,
	}).Info("Replay session closed")
}

// LogCommand logs a viewer command and the state it produced.
func (rl *ReplayLogger) LogCommand(sessionID, command string, currentLap int, playing bool) {
	rl.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"command":     command,
		"current_lap": currentLap,
		"is_playing":  playing,
	}).Debug("Replay command applied")
}

// LogSeriesDegraded logs a series replaced by an empty one after a failed fetch.
func (rl *ReplayLogger) LogSeriesDegraded(sessionID string, raceID int, series string, err error) {
	rl.WithFields(logrus.Fields{
		"session_id": sessionID,
		"race_id":    raceID,
		"series":     series,
	}).WithError(err).Warn("Series unavailable, continuing with empty data")
}
