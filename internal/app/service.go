/**
 * @description
 * Orchestration of the daily penalty run: compute penalties, notify the users who were
 * penalized, then check every escalation-tier user against the deactivation thresholds.
 * Only the computation can fail the run; both follow-up stages are best effort.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deedtrack/penalty-service/internal/domain"
	"github.com/google/uuid"
)

const runLockKey = "penalty-run"

var (
	// ErrNoComputationResult is returned when the ledger computation returns nothing.
	ErrNoComputationResult = errors.New("no result returned from penalty calculation")

	// ErrRunInProgress is returned when another penalty run holds the run lock.
	ErrRunInProgress = errors.New("penalty run already in progress")
)

// Options tunes the escalation policy and fan-out.
type Options struct {
	Thresholds      domain.Thresholds
	MembershipTiers []domain.MembershipStatus
	MaxConcurrency  int
	EventExchange   string
}

// RunResult is the outcome of one penalty run.
type RunResult struct {
	RunID       string
	Computation *domain.ComputationResult
	Stages      []StageReport
}

// Summaries returns the caller-facing view of every stage.
func (r *RunResult) Summaries() []StageSummary {
	summaries := make([]StageSummary, 0, len(r.Stages))
	for _, stage := range r.Stages {
		summaries = append(summaries, stage.Summary())
	}
	return summaries
}

// Service runs the daily penalty workflow.
type Service struct {
	computer   PenaltyComputer
	penalties  *PenaltyNotificationStage
	escalation *DeactivationStage
	lock       RunLock
	logger     *slog.Logger
}

// NewService wires the stages over repo. publisher and lock may be nil.
func NewService(repo Repository, publisher EventPublisher, lock RunLock, logger *slog.Logger, opts Options) *Service {
	if opts.Thresholds == (domain.Thresholds{}) {
		opts.Thresholds = domain.DefaultThresholds()
	}

	balances := NewBalanceResolver(repo, logger)
	notifier := NewNotifier(repo, publisher, opts.EventExchange, logger)

	return &Service{
		computer:   repo,
		penalties:  NewPenaltyNotificationStage(repo, balances, notifier, opts.MaxConcurrency, logger),
		escalation: NewDeactivationStage(repo, balances, notifier, opts.Thresholds, opts.MembershipTiers, opts.MaxConcurrency, logger),
		lock:       lock,
		logger:     logger,
	}
}

// RunDailyPenalties executes one penalty run. The returned error is non-nil only when the
// computation itself failed or the run could not start.
func (s *Service) RunDailyPenalties(ctx context.Context) (*RunResult, error) {
	run := &RunResult{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", run.RunID)

	release, err := s.acquireLock(ctx, logger)
	if err != nil {
		return run, err
	}
	defer release()

	logger.Info("starting penalty calculation")
	result, err := s.computer.CalculateDailyPenalties(ctx)
	if err != nil {
		logger.Error("penalty calculation failed", "error", err)
		return run, fmt.Errorf("penalty calculation failed: %w", err)
	}
	if result == nil {
		logger.Error("penalty calculation returned no result")
		return run, ErrNoComputationResult
	}
	run.Computation = result
	logger.Info("penalty calculation completed",
		"success", result.Success,
		"date_processed", result.DateProcessed,
		"penalties_created", result.PenaltiesCreated,
	)

	run.Stages = append(run.Stages, s.notifyPenalties(ctx, logger, *result))
	run.Stages = append(run.Stages, s.checkEscalation(ctx, logger, *result))

	logger.Info("penalty run complete")
	return run, nil
}

func (s *Service) notifyPenalties(ctx context.Context, logger *slog.Logger, result domain.ComputationResult) StageReport {
	if !result.HasNewPenalties() {
		logger.Info("no penalties created, no notifications to send")
		return StageReport{Stage: StagePenaltyNotifications, Status: StageSkipped}
	}
	if err := result.Validate(); err != nil {
		logger.Error("penalty notification stage failed (non-critical)", "error", err)
		return StageReport{Stage: StagePenaltyNotifications, Status: StageFailed, Err: err}
	}

	logger.Info("processing notifications for new penalties", "count", result.PenaltiesCreated)
	report := s.penalties.Run(ctx, result.DateProcessed)
	if report.Err != nil {
		logger.Error("penalty notification stage failed (non-critical)", "error", report.Err)
	}
	return report
}

func (s *Service) checkEscalation(ctx context.Context, logger *slog.Logger, result domain.ComputationResult) StageReport {
	if !result.Success {
		return StageReport{Stage: StageEscalation, Status: StageSkipped}
	}

	logger.Info("checking for users approaching deactivation threshold")
	report := s.escalation.Run(ctx)
	if report.Err != nil {
		logger.Error("deactivation warning check failed (non-critical)", "error", report.Err)
	}
	return report
}

func (s *Service) acquireLock(ctx context.Context, logger *slog.Logger) (func(), error) {
	noop := func() {}
	if s.lock == nil {
		return noop, nil
	}

	release, acquired, err := s.lock.Acquire(ctx, runLockKey)
	if err != nil {
		// Run unguarded rather than skip a day's penalties because the lock store is down.
		logger.Warn("failed to acquire run lock, continuing without it", "error", err)
		return noop, nil
	}
	if !acquired {
		logger.Warn("another penalty run is in progress")
		return noop, ErrRunInProgress
	}
	return release, nil
}
