package reliability

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of scheduled work
type Job interface {
	cron.Job
	Name() string
}

// Scheduler runs maintenance jobs on cron schedules
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler creates a scheduler. Specs use the 6-field cron format
// with a leading seconds field.
func NewScheduler(log zerolog.Logger) *Scheduler {
	schedLog := log.With().Str("component", "scheduler").Logger()

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.PrintfLogger(&cronLogAdapter{log: schedLog}))),
		),
		log: schedLog,
	}
}

// Register schedules a job
func (s *Scheduler) Register(spec string, job Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}

	s.log.Info().Str("job", job.Name()).Str("schedule", spec).Msg("Scheduled job")
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// cronLogAdapter routes cron panic recovery output to zerolog
type cronLogAdapter struct {
	log zerolog.Logger
}

func (a *cronLogAdapter) Printf(format string, args ...interface{}) {
	a.log.Error().Msgf(format, args...)
}
