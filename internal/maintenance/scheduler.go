package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs registered jobs on their cron schedules. A job never
// overlaps itself: when a run is still in flight at the next tick, the
// tick is skipped.
type Scheduler struct {
	cron   *cron.Cron
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	mu     sync.Mutex
}

// NewScheduler creates an empty scheduler. Register jobs before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// RegisterJob schedules a job. Job names must be unique, and the schedule
// must be a valid 5-field cron expression. The context is handed to every
// run of the job.
func (s *Scheduler) RegisterJob(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.locks[name]; exists {
		return fmt.Errorf("maintenance: job %q already registered", name)
	}

	lock := &sync.Mutex{}
	_, err := s.cron.AddFunc(job.Schedule(), func() {
		if !lock.TryLock() {
			s.logger.Warn("maintenance: previous run still active, skipping", "job", name)
			return
		}
		defer lock.Unlock()

		if err := job.Run(ctx); err != nil {
			s.logger.Error("maintenance: job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("maintenance: schedule job %q: %w", name, err)
	}

	s.locks[name] = lock
	s.logger.Info("maintenance: job registered", "job", name, "schedule", job.Schedule())
	return nil
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("maintenance: scheduler started", "jobs", len(s.locks))
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.logger.Info("maintenance: scheduler stopped")
}
