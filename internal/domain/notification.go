package domain

import "time"

// NotificationType identifies the kind of queued notification.
type NotificationType string

const (
	NotificationPenaltyIncurred          NotificationType = "penalty_incurred"
	NotificationDeactivationWarning      NotificationType = "deactivation_warning"
	NotificationDeactivationWarningFinal NotificationType = "deactivation_warning_final"
	NotificationAccountDeactivated       NotificationType = "account_deactivated"
)

const (
	// ActionOpenPaymentScreen tells the client app where to route a tapped notification.
	ActionOpenPaymentScreen = "open_payment_screen"

	// NotificationStatusPending is the status every record is inserted with. The external
	// dispatcher owns all later transitions.
	NotificationStatusPending = "pending"
)

// NotificationData is the structured payload stored alongside a notification.
type NotificationData struct {
	PenaltyID    string `json:"penalty_id,omitempty"`
	Amount       *int64 `json:"amount,omitempty"`
	Balance      int64  `json:"balance"`
	DateIncurred string `json:"date_incurred,omitempty"`
	Threshold    *int64 `json:"threshold,omitempty"`
	Action       string `json:"action"`
}

// NotificationRecord is one row of the notification queue.
type NotificationRecord struct {
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      NotificationData `json:"data"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
