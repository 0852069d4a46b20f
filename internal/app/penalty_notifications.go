package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deedtrack/penalty-service/internal/domain"
)

const penaltyIncurredTitle = "Penalty Applied"

// PenaltyNotificationStage queues one penalty_incurred notification per penalty created
// on a given date.
type PenaltyNotificationStage struct {
	repo           PenaltyRepository
	balances       *BalanceResolver
	notifier       *Notifier
	maxConcurrency int
	logger         *slog.Logger
}

// NewPenaltyNotificationStage creates the stage.
func NewPenaltyNotificationStage(repo PenaltyRepository, balances *BalanceResolver, notifier *Notifier, maxConcurrency int, logger *slog.Logger) *PenaltyNotificationStage {
	return &PenaltyNotificationStage{
		repo:           repo,
		balances:       balances,
		notifier:       notifier,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Run notifies the owners of every penalty incurred on date. A failed fetch fails the
// stage; a failure for one penalty only fails that item.
func (s *PenaltyNotificationStage) Run(ctx context.Context, date string) StageReport {
	report := StageReport{Stage: StagePenaltyNotifications}

	s.logger.Info("fetching penalties for notification", "date", date)
	penalties, err := s.repo.ListPenaltiesByDate(ctx, date)
	if err != nil {
		report.Status = StageFailed
		report.Err = fmt.Errorf("failed to fetch penalties for %s: %w", date, err)
		return report
	}

	report.Status = StageCompleted
	if len(penalties) == 0 {
		s.logger.Info("no penalties found for notifications", "date", date)
		return report
	}

	s.logger.Info("found penalties to notify", "date", date, "count", len(penalties))
	report.Items = fanOut(ctx, s.maxConcurrency, penalties, penaltyItem, s.notifyPenalty)

	summary := report.Summary()
	s.logger.Info("penalty notification queuing complete",
		"date", date,
		"notified", summary.Notified,
		"failed", summary.Failed,
	)
	return report
}

func penaltyItem(penalty domain.Penalty) ItemResult {
	return ItemResult{UserID: penalty.UserID, PenaltyID: penalty.ID}
}

func (s *PenaltyNotificationStage) notifyPenalty(ctx context.Context, penalty domain.Penalty) ItemResult {
	result := penaltyItem(penalty)

	balance, ok := s.balances.ResolveBalance(ctx, penalty.UserID)
	if !ok {
		// Degraded text: the real total is at least this penalty.
		balance = penalty.Amount
	}

	amount := penalty.Amount
	body := fmt.Sprintf(
		"Penalty of %s shillings applied for missed deeds. Current balance: %s shillings.",
		formatShillings(penalty.Amount),
		formatShillings(balance),
	)
	data := domain.NotificationData{
		PenaltyID:    penalty.ID,
		Amount:       &amount,
		Balance:      balance,
		DateIncurred: penalty.DateIncurred.Format(domain.DateLayout),
		Action:       domain.ActionOpenPaymentScreen,
	}

	if err := s.notifier.Enqueue(ctx, penalty.UserID, domain.NotificationPenaltyIncurred, penaltyIncurredTitle, body, data); err != nil {
		s.logger.Error("failed to queue penalty notification",
			"penalty_id", penalty.ID,
			"user_id", penalty.UserID,
			"user_name", penalty.Owner.Name,
			"error", err,
		)
		result.Err = err
		return result
	}

	s.logger.Info("penalty notification queued",
		"penalty_id", penalty.ID,
		"user_id", penalty.UserID,
		"user_name", penalty.Owner.Name,
		"amount", penalty.Amount,
	)
	result.Notified = true
	return result
}
