package app

import (
	"context"
	"log/slog"
)

// BalanceResolver looks up a user's current outstanding penalty balance. It never caches:
// every call reads the ledger.
type BalanceResolver struct {
	repo   BalanceRepository
	logger *slog.Logger
}

// NewBalanceResolver creates a new resolver.
func NewBalanceResolver(repo BalanceRepository, logger *slog.Logger) *BalanceResolver {
	return &BalanceResolver{repo: repo, logger: logger}
}

// ResolveBalance returns the balance and true, or false when the ledger gave no usable
// answer. Lookup errors are logged and reported as an absent balance.
func (r *BalanceResolver) ResolveBalance(ctx context.Context, userID string) (int64, bool) {
	snapshot, err := r.repo.GetUserPenaltyBalance(ctx, userID)
	if err != nil {
		r.logger.Warn("failed to resolve penalty balance", "user_id", userID, "error", err)
		return 0, false
	}
	if snapshot == nil {
		r.logger.Info("no penalty balance available", "user_id", userID)
		return 0, false
	}
	return snapshot.TotalBalance, true
}
