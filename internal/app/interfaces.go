/**
 * @description
 * Collaborator interfaces for the penalty run. The store package satisfies the repository
 * interfaces; pkg/rabbitmq and pkg/runlock satisfy the publisher and lock.
 */
package app

import (
	"context"

	"github.com/deedtrack/penalty-service/internal/domain"
)

// PenaltyComputer runs the ledger's daily penalty computation.
type PenaltyComputer interface {
	CalculateDailyPenalties(ctx context.Context) (*domain.ComputationResult, error)
}

// PenaltyRepository reads penalties created by the computation.
type PenaltyRepository interface {
	ListPenaltiesByDate(ctx context.Context, date string) ([]domain.Penalty, error)
}

// BalanceRepository reads a user's outstanding penalty total.
type BalanceRepository interface {
	GetUserPenaltyBalance(ctx context.Context, userID string) (*domain.BalanceSnapshot, error)
}

// UserRepository reads and deactivates users subject to escalation.
type UserRepository interface {
	ListActiveUsersByMembership(ctx context.Context, tiers []domain.MembershipStatus) ([]domain.User, error)
	DeactivateUser(ctx context.Context, userID string) error
}

// NotificationRepository writes to the notification queue.
type NotificationRepository interface {
	InsertNotification(ctx context.Context, record domain.NotificationRecord) error
}

// Repository is the full set of store operations the service needs.
type Repository interface {
	PenaltyComputer
	PenaltyRepository
	BalanceRepository
	UserRepository
	NotificationRepository
}

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// RunLock keeps two penalty runs from overlapping. Acquire returns acquired=false when
// another holder owns key; release must be called once the run finishes.
type RunLock interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}
