/**
 * @description
 * Cron scheduler for the daily penalty run.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// PenaltyRunner is the operation the scheduler triggers.
type PenaltyRunner interface {
	RunDailyPenalties(ctx context.Context) (*RunResult, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	runner   PenaltyRunner
	logger   *slog.Logger
	schedule string
	timeout  time.Duration
}

// NewScheduler creates a new scheduler instance. Schedules are interpreted in loc.
func NewScheduler(runner PenaltyRunner, logger *slog.Logger, schedule string, loc *time.Location, timeout time.Duration) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:     c,
		runner:   runner,
		logger:   logger,
		schedule: schedule,
		timeout:  timeout,
	}
}

// Start registers the penalty job and starts the cron scheduler. An empty schedule leaves
// the job to external triggers.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("penalty job schedule not set, relying on external trigger")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.RunPenaltyJob); err != nil {
		s.logger.Error("failed to schedule penalty job", "error", err)
		return err
	}
	s.logger.Info("scheduled penalty job", "schedule", s.schedule)

	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunPenaltyJob is the cron entry point.
func (s *Scheduler) RunPenaltyJob() {
	s.logger.Info("starting scheduled penalty job")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	run, err := s.runner.RunDailyPenalties(ctx)
	if err != nil {
		s.logger.Error("scheduled penalty job failed", "error", err)
		return
	}

	s.logger.Info("scheduled penalty job finished", "run_id", run.RunID)
}
