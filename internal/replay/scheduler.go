package replay

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/logger"
)

// Scheduler runs a callback periodically until the returned cancel func is called.
// Cancel must be safe to call more than once.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// CronScheduler schedules periodic callbacks on a robfig/cron runner.
// Intervals are rounded to whole seconds with a minimum of one second.
type CronScheduler struct {
	cron    *cron.Cron
	logger  *logrus.Logger
	mu      sync.Mutex
	started bool
}

// NewCronScheduler creates a scheduler whose jobs never overlap themselves.
func NewCronScheduler(log *logrus.Logger) *CronScheduler {
	if log == nil {
		log = logger.Discard()
	}
	cronLogger := cron.PrintfLogger(log)

	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: log,
	}
}

// Every registers fn to run every interval. The cron runner starts lazily on first use.
func (s *CronScheduler) Every(interval time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.cron.Start()
		s.started = true
	}

	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(fn))
	s.logger.WithFields(logrus.Fields{
		"entry_id": id,
		"interval": interval,
	}).Debug("Replay tick scheduled")

	var cancelOnce sync.Once
	return func() {
		cancelOnce.Do(func() {
			s.cron.Remove(id)
			s.logger.WithField("entry_id", id).Debug("Replay tick cancelled")
		})
	}
}

// Entries returns the number of registered callbacks.
func (s *CronScheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop halts the runner and waits for in-flight callbacks. The wait happens
// outside s.mu so a callback blocked on a caller of Every can still finish.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	done := s.cron.Stop().Done()
	s.mu.Unlock()

	<-done
}

// ManualScheduler is a Scheduler driven by explicit Fire calls, for tests and
// step-through replays.
type ManualScheduler struct {
	mu       sync.Mutex
	nextID   int
	jobs     map[int]func()
	interval time.Duration
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{jobs: make(map[int]func())}
}

// Every records fn; it only runs when Fire is called.
func (m *ManualScheduler) Every(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.jobs[id] = fn
	m.interval = interval

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.jobs, id)
	}
}

// Fire runs every armed callback once and returns how many ran.
func (m *ManualScheduler) Fire() int {
	m.mu.Lock()
	jobs := make([]func(), 0, len(m.jobs))
	for id := 1; id <= m.nextID; id++ {
		if fn, ok := m.jobs[id]; ok {
			jobs = append(jobs, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range jobs {
		fn()
	}
	return len(jobs)
}

// FireN calls Fire n times.
func (m *ManualScheduler) FireN(n int) {
	for i := 0; i < n; i++ {
		m.Fire()
	}
}

// Armed returns the number of live registrations.
func (m *ManualScheduler) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// LastInterval returns the interval of the most recent registration.
func (m *ManualScheduler) LastInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}
