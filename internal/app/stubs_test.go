package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/deedtrack/penalty-service/internal/domain"
)

var errStatusNotChanged = errors.New("account status not changed")

type repoStub struct {
	mu sync.Mutex

	result     *domain.ComputationResult
	computeErr error

	penalties          []domain.Penalty
	penaltiesErr       error
	listPenaltiesCalls int

	balances     map[string]int64
	balanceErrs  map[string]error
	balanceCalls int

	users          []domain.User
	usersErr       error
	listUsersCalls int
	statuses       map[string]domain.AccountStatus
	deactivateErrs map[string]error

	insertErrs map[string]error
	inserted   []domain.NotificationRecord
}

func (s *repoStub) CalculateDailyPenalties(ctx context.Context) (*domain.ComputationResult, error) {
	if s.computeErr != nil {
		return nil, s.computeErr
	}
	return s.result, nil
}

func (s *repoStub) ListPenaltiesByDate(ctx context.Context, date string) ([]domain.Penalty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listPenaltiesCalls++
	if s.penaltiesErr != nil {
		return nil, s.penaltiesErr
	}
	var matched []domain.Penalty
	for _, p := range s.penalties {
		if p.DateIncurred.Format(domain.DateLayout) == date {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (s *repoStub) GetUserPenaltyBalance(ctx context.Context, userID string) (*domain.BalanceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balanceCalls++
	if err := s.balanceErrs[userID]; err != nil {
		return nil, err
	}
	balance, ok := s.balances[userID]
	if !ok {
		return nil, nil
	}
	return &domain.BalanceSnapshot{UserID: userID, TotalBalance: balance}, nil
}

func (s *repoStub) ListActiveUsersByMembership(ctx context.Context, tiers []domain.MembershipStatus) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listUsersCalls++
	if s.usersErr != nil {
		return nil, s.usersErr
	}
	var active []domain.User
	for _, u := range s.users {
		if s.statusOf(u.ID) == domain.AccountStatusActive {
			active = append(active, u)
		}
	}
	return active, nil
}

func (s *repoStub) DeactivateUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deactivateErrs[userID]; err != nil {
		return err
	}
	if s.statusOf(userID) != domain.AccountStatusActive {
		return errStatusNotChanged
	}
	if s.statuses == nil {
		s.statuses = map[string]domain.AccountStatus{}
	}
	s.statuses[userID] = domain.AccountStatusAutoDeactivated
	return nil
}

func (s *repoStub) InsertNotification(ctx context.Context, record domain.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertErrs[record.UserID]; err != nil {
		return err
	}
	s.inserted = append(s.inserted, record)
	return nil
}

// statusOf must be called with mu held.
func (s *repoStub) statusOf(userID string) domain.AccountStatus {
	if status, ok := s.statuses[userID]; ok {
		return status
	}
	return domain.AccountStatusActive
}

func (s *repoStub) notificationsFor(userID string) []domain.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.NotificationRecord
	for _, n := range s.inserted {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *repoStub) insertedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

type publisherStub struct {
	mu     sync.Mutex
	err    error
	events []publishedEvent
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return p.err
}

type lockStub struct {
	acquired bool
	err      error
	released bool
	key      string
}

func (l *lockStub) Acquire(ctx context.Context, key string) (func(), bool, error) {
	l.key = key
	if l.err != nil {
		return nil, false, l.err
	}
	if !l.acquired {
		return nil, false, nil
	}
	return func() { l.released = true }, true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestNotifier(repo NotificationRepository, publisher EventPublisher) *Notifier {
	n := NewNotifier(repo, publisher, "deedtrack.events", discardLogger())
	n.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return n
}

func newTestEscalationStage(repo *repoStub, thresholds domain.Thresholds) *DeactivationStage {
	logger := discardLogger()
	return NewDeactivationStage(repo, NewBalanceResolver(repo, logger), newTestNotifier(repo, nil), thresholds, nil, 4, logger)
}

func newTestPenaltyStage(repo *repoStub) *PenaltyNotificationStage {
	logger := discardLogger()
	return NewPenaltyNotificationStage(repo, NewBalanceResolver(repo, logger), newTestNotifier(repo, nil), 4, logger)
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		t.Fatalf("invalid test date %q: %v", value, err)
	}
	return d
}
