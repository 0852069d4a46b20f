package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deedtrack/penalty-service/internal/domain"
)

// Notifier writes pending records to the notification queue. It makes exactly one insert
// attempt per call; a record that fails to insert is lost for this run.
type Notifier struct {
	repo      NotificationRepository
	publisher EventPublisher
	exchange  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewNotifier creates a new queue writer. publisher may be nil.
func NewNotifier(repo NotificationRepository, publisher EventPublisher, exchange string, logger *slog.Logger) *Notifier {
	return &Notifier{
		repo:      repo,
		publisher: publisher,
		exchange:  exchange,
		logger:    logger,
		now:       time.Now,
	}
}

type notificationQueuedEvent struct {
	UserID    string                  `json:"user_id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Timestamp time.Time               `json:"timestamp"`
}

// Enqueue inserts one pending notification for userID.
func (n *Notifier) Enqueue(ctx context.Context, userID string, kind domain.NotificationType, title, body string, data domain.NotificationData) error {
	record := domain.NotificationRecord{
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Body:      body,
		Data:      data,
		Status:    domain.NotificationStatusPending,
		CreatedAt: n.now().UTC(),
	}

	if err := n.repo.InsertNotification(ctx, record); err != nil {
		return fmt.Errorf("failed to queue %s notification: %w", kind, err)
	}

	n.publishQueued(ctx, record)
	return nil
}

// publishQueued nudges the external dispatcher. The queue row is the source of truth, so
// a publish failure is only logged.
func (n *Notifier) publishQueued(ctx context.Context, record domain.NotificationRecord) {
	if n.publisher == nil {
		return
	}

	event := notificationQueuedEvent{
		UserID:    record.UserID,
		Type:      record.Type,
		Title:     record.Title,
		Timestamp: record.CreatedAt,
	}
	if err := n.publisher.Publish(ctx, n.exchange, "notification.queued."+string(record.Type), event); err != nil {
		n.logger.Warn("failed to publish notification queued event", "user_id", record.UserID, "type", record.Type, "error", err)
	}
}
