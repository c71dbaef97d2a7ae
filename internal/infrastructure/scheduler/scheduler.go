package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// Job is a unit of periodic maintenance work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Config holds maintenance scheduler configuration
type Config struct {
	// Enabled indicates if the scheduler runs at all
	Enabled bool
	// Interval is the time between maintenance sweeps
	Interval time.Duration
	// JobTimeout is the maximum time a single job may run
	JobTimeout time.Duration
}

// DefaultConfig returns default maintenance scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		Interval:   time.Hour,
		JobTimeout: time.Minute,
	}
}

// Scheduler runs registered maintenance jobs on a fixed interval.
// Jobs run sequentially; a failing job is logged and does not stop the
// sweep or the scheduler.
type Scheduler struct {
	config Config
	jobs   []Job
	logger *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastRunAt *time.Time
}

// New creates a maintenance scheduler with the given jobs
func New(config Config, logger *zap.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		config: config,
		jobs:   jobs,
		logger: logger,
	}
}

// Start begins the periodic sweep loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if !s.config.Enabled || len(s.jobs) == 0 {
		s.logger.Info("Maintenance scheduler disabled or has no jobs")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Maintenance scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("jobs", len(s.jobs)),
	)
	return nil
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Maintenance scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Maintenance scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs a sweep immediately, outside the regular interval
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	s.sweep(ctx)
	return nil
}

// LastRunAt returns when the last sweep started
func (s *Scheduler) LastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	for _, job := range s.jobs {
		jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
		err := job.Run(jobCtx)
		cancel()

		if err != nil {
			s.logger.Error("Maintenance job failed",
				zap.String("job", job.Name()),
				zap.Error(err),
			)
			continue
		}
		s.logger.Debug("Maintenance job completed", zap.String("job", job.Name()))
	}
}
