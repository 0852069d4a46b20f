package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deedtrack/penalty-service/internal/domain"
)

const (
	deactivatedTitle = "Account Deactivated"
	warningTitle     = "Payment Warning"
)

// DefaultMembershipTiers are the tiers subject to balance escalation.
var DefaultMembershipTiers = []domain.MembershipStatus{domain.MembershipExclusive, domain.MembershipLegacy}

// DeactivationStage warns active users whose penalty balance approaches the deactivation
// limit and deactivates those who reached it.
type DeactivationStage struct {
	users          UserRepository
	balances       *BalanceResolver
	notifier       *Notifier
	thresholds     domain.Thresholds
	tiers          []domain.MembershipStatus
	maxConcurrency int
	logger         *slog.Logger
}

// NewDeactivationStage creates the stage. tiers defaults to DefaultMembershipTiers.
func NewDeactivationStage(users UserRepository, balances *BalanceResolver, notifier *Notifier, thresholds domain.Thresholds, tiers []domain.MembershipStatus, maxConcurrency int, logger *slog.Logger) *DeactivationStage {
	if len(tiers) == 0 {
		tiers = DefaultMembershipTiers
	}
	return &DeactivationStage{
		users:          users,
		balances:       balances,
		notifier:       notifier,
		thresholds:     thresholds,
		tiers:          append([]domain.MembershipStatus(nil), tiers...),
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Run scans every active user in the configured tiers.
func (s *DeactivationStage) Run(ctx context.Context) StageReport {
	report := StageReport{Stage: StageEscalation}

	users, err := s.users.ListActiveUsersByMembership(ctx, s.tiers)
	if err != nil {
		report.Status = StageFailed
		report.Err = fmt.Errorf("failed to fetch users for warning check: %w", err)
		return report
	}

	report.Status = StageCompleted
	if len(users) == 0 {
		s.logger.Info("no active users in escalation tiers")
		return report
	}

	report.Items = fanOut(ctx, s.maxConcurrency, users, userItem, s.checkUser)

	summary := report.Summary()
	if summary.Escalations() > 0 {
		s.logger.Info("issued deactivation warnings",
			"warnings", summary.Warnings,
			"final_warnings", summary.FinalWarnings,
			"deactivations", summary.Deactivations,
			"failed", summary.Failed,
		)
	} else {
		s.logger.Info("no users approaching deactivation threshold", "checked", summary.Processed)
	}
	return report
}

func userItem(user domain.User) ItemResult {
	return ItemResult{UserID: user.ID}
}

func (s *DeactivationStage) checkUser(ctx context.Context, user domain.User) ItemResult {
	result := userItem(user)

	balance, ok := s.balances.ResolveBalance(ctx, user.ID)
	if !ok {
		result.Skipped = true
		return result
	}

	result.Action = s.thresholds.Classify(balance)
	if result.Action == domain.EscalationNone {
		return result
	}

	if result.Action == domain.EscalationDeactivate {
		s.logger.Warn("user reached deactivation threshold", "user_id", user.ID, "user_name", user.Name, "balance", balance)
		if err := s.users.DeactivateUser(ctx, user.ID); err != nil {
			// No deactivation notice without a deactivated account.
			s.logger.Error("failed to deactivate user", "user_id", user.ID, "error", err)
			result.Err = fmt.Errorf("deactivate user %s: %w", user.ID, err)
			return result
		}
		result.Deactivated = true
	}

	kind, title, body := s.message(result.Action, balance)
	threshold := s.thresholds.Deactivate
	data := domain.NotificationData{
		Balance:   balance,
		Threshold: &threshold,
		Action:    domain.ActionOpenPaymentScreen,
	}

	if err := s.notifier.Enqueue(ctx, user.ID, kind, title, body, data); err != nil {
		s.logger.Error("failed to queue escalation notification", "user_id", user.ID, "type", kind, "error", err)
		result.Err = err
		return result
	}

	s.logger.Info("escalation notification queued", "user_id", user.ID, "user_name", user.Name, "type", kind, "balance", balance)
	result.Notified = true
	return result
}

func (s *DeactivationStage) message(action domain.EscalationAction, balance int64) (domain.NotificationType, string, string) {
	amount := formatShillings(balance)
	limit := formatShillings(s.thresholds.Deactivate)

	switch action {
	case domain.EscalationDeactivate:
		return domain.NotificationAccountDeactivated, deactivatedTitle,
			fmt.Sprintf("Your account has been deactivated due to penalty balance of %s shillings. Please contact admin.", amount)
	case domain.EscalationFinalWarning:
		return domain.NotificationDeactivationWarningFinal, warningTitle,
			fmt.Sprintf("⚠️ FINAL WARNING: Your penalty balance is %s shillings. Account will be deactivated at %s. Please pay immediately!", amount, limit)
	default:
		return domain.NotificationDeactivationWarning, warningTitle,
			fmt.Sprintf("⚠️ Warning: Your penalty balance is %s shillings. Account will be deactivated at %s. Please clear your dues.", amount, limit)
	}
}
