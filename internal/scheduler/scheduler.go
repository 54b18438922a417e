// Package scheduler runs periodic background jobs for the replay service.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
)

// CacheWarmer refreshes cached provider data for the current race.
type CacheWarmer interface {
	Warm(ctx context.Context) (int, error)
	Cache() *datasource.ResponseCache
}

// Scheduler manages scheduled background jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Logger
	providerLogger  *logger.ProviderLogger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:          log,
		providerLogger:  logger.NewProviderLogger(log),
		jobIDs:          make([]cron.EntryID, 0),
		jobTimeout:      time.Minute,
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleCacheWarmup schedules a refresh of the current race's cached data
func (s *Scheduler) ScheduleCacheWarmup(cronExpression string, warmer CacheWarmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		s.RunCacheWarmup(ctx, warmer)
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled cache warmup job")

	return nil
}

// RunCacheWarmup performs one warmup and records its outcome.
func (s *Scheduler) RunCacheWarmup(ctx context.Context, warmer CacheWarmer) error {
	raceID, err := warmer.Warm(ctx)
	metrics.RecordCacheWarmup(err)
	s.providerLogger.LogCacheWarmup(raceID, warmer.Cache().ItemCount(), err)
	return err
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs up to the
// graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler jobs still running after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns the number of scheduled jobs
func (s *Scheduler) Entries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobIDs)
}
