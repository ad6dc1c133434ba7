package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Job is a named recurring task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives the registered jobs on their independent cadences.
type Scheduler struct {
	cron   *gocron.Scheduler
	jobs   []Job
	logger zerolog.Logger
}

// New constructs an empty scheduler.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   gocron.NewScheduler(time.UTC),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Add registers a job. Jobs run for the first time one interval after start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run function is required", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Run blocks until the context is cancelled. Job failures are logged and the
// job keeps its schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return fmt.Errorf("no jobs registered")
	}

	for _, job := range s.jobs {
		job := job
		_, err := s.cron.Every(job.Interval).Do(func() {
			s.logger.Debug().Str("job", job.Name).Msg("job starting")
			if err := job.Run(ctx); err != nil {
				s.logger.Error().Err(err).Str("job", job.Name).Msg("job failed")
			}
		})
		if err != nil {
			return fmt.Errorf("schedule job %s: %w", job.Name, err)
		}
		s.logger.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("job scheduled")
	}

	s.cron.StartAsync()
	<-ctx.Done()
	s.cron.Stop()
	return ctx.Err()
}
