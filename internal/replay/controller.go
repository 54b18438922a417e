// Package replay implements the Live Mode race replay: a forward-only lap
// counter advanced by a periodic scheduler and paused, resumed or reset by the
// viewer.
package replay

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

// DefaultLapInterval is the wall-clock time between lap advances.
const DefaultLapInterval = 2 * time.Second

// State is the playback state of a controller.
type State int

const (
	// Stopped means the lap counter is not advancing
	Stopped State = iota
	// Playing means the lap counter advances on every tick
	Playing
)

// String returns string representation of the state
func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Playing:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is the observable replay state.
type Snapshot struct {
	CurrentLap int     `json:"current_lap"`
	MaxLap     int     `json:"max_lap"`
	IsPlaying  bool    `json:"is_playing"`
	State      string  `json:"state"`
	Progress   float64 `json:"progress"`
}

// AtEnd reports whether the replay has reached the final lap.
func (s Snapshot) AtEnd() bool {
	return s.CurrentLap >= s.MaxLap
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the time between lap advances.
func WithInterval(interval time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithLogger sets the logger used for transition events.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.logger = log.WithField("component", "replay")
		}
	}
}

// WithFields adds fields, such as the race or session id, to every log entry.
func WithFields(fields logrus.Fields) Option {
	return func(c *Controller) {
		c.logger = c.logger.WithFields(fields)
	}
}

// Controller owns the replay state of one race view. All methods are safe for
// concurrent use; scheduler callbacks and viewer commands are serialized by a
// single mutex.
type Controller struct {
	mu          sync.Mutex
	scheduler   Scheduler
	interval    time.Duration
	maxLap      int
	currentLap  int
	playing     bool
	closed      bool
	generation  uint64
	cancelTick  func()
	subscribers map[int]chan Snapshot
	nextSubID   int
	logger      *logrus.Entry
}

// NewController creates a controller in Stopped(1). A maxLap below 1 uses
// models.DefaultMaxLap.
func NewController(maxLap int, scheduler Scheduler, opts ...Option) *Controller {
	if maxLap < 1 {
		maxLap = models.DefaultMaxLap
	}

	c := &Controller{
		scheduler:   scheduler,
		interval:    DefaultLapInterval,
		maxLap:      maxLap,
		currentLap:  1,
		subscribers: make(map[int]chan Snapshot),
		logger:      logger.Discard().WithField("component", "replay"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins advancing laps. It is a no-op when already playing or closed.
// At the final lap the loop is armed but makes no further progress.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.playing {
		return
	}

	c.playing = true
	c.generation++
	generation := c.generation
	c.cancelTick = c.scheduler.Every(c.interval, func() { c.tick(generation) })

	metrics.RecordTransition("start")
	metrics.RecordPlaying(true)
	c.logger.WithFields(logrus.Fields{
		"current_lap": c.currentLap,
		"max_lap":     c.maxLap,
		"interval":    c.interval,
	}).Info("Replay started")
	c.publishLocked()
}

// Pause stops advancing and keeps the current lap.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.playing {
		return
	}

	c.stopLocked()

	metrics.RecordTransition("pause")
	c.logger.WithField("current_lap", c.currentLap).Info("Replay paused")
	c.publishLocked()
}

// Reset stops playback and rewinds to lap 1. Calling it repeatedly has the
// same effect as calling it once.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	changed := c.playing || c.currentLap != 1
	c.stopLocked()
	c.currentLap = 1

	if !changed {
		return
	}
	metrics.RecordTransition("reset")
	c.logger.Info("Replay reset")
	c.publishLocked()
}

// Close releases the timer and ends all subscriptions. The controller ignores
// every command afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.stopLocked()
	c.closed = true
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
	c.logger.WithField("current_lap", c.currentLap).Debug("Replay closed")
}

// SetMaxLap replaces the final lap once series data arrives. The current lap
// is clamped to the new bound.
func (c *Controller) SetMaxLap(maxLap int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if maxLap < 1 {
		maxLap = models.DefaultMaxLap
	}
	if c.closed || maxLap == c.maxLap {
		return
	}

	c.maxLap = maxLap
	if c.currentLap > maxLap {
		c.currentLap = maxLap
	}
	c.logger.WithField("max_lap", maxLap).Debug("Replay max lap updated")
	c.publishLocked()
}

// tick advances one lap. Callbacks from a cancelled arm carry a stale
// generation and are dropped.
func (c *Controller) tick(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.playing || generation != c.generation {
		return
	}
	if c.currentLap >= c.maxLap {
		return
	}

	c.currentLap++
	metrics.RecordLapAdvance()
	c.logger.WithField("current_lap", c.currentLap).Debug("Replay lap advanced")
	c.publishLocked()
}

// CurrentLap returns the lap the views should render up to.
func (c *Controller) CurrentLap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLap
}

// IsPlaying reports whether laps are advancing.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// MaxLap returns the final lap of the replay.
func (c *Controller) MaxLap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxLap
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving the latest snapshot after every state
// change, primed with the current one. Slow readers only see the newest value.
// The channel is closed by cancel or Close.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	c.nextSubID++
	id := c.nextSubID
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			close(sub)
			delete(c.subscribers, id)
		}
	}
}

func (c *Controller) stopLocked() {
	if c.cancelTick != nil {
		c.cancelTick()
		c.cancelTick = nil
	}
	if c.playing {
		metrics.RecordPlaying(false)
	}
	c.playing = false
	c.generation++
}

func (c *Controller) snapshotLocked() Snapshot {
	state := Stopped
	if c.playing {
		state = Playing
	}
	return Snapshot{
		CurrentLap: c.currentLap,
		MaxLap:     c.maxLap,
		IsPlaying:  c.playing,
		State:      state.String(),
		Progress:   float64(c.currentLap) / float64(c.maxLap),
	}
}

func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
