/**
 * @description
 * Data access layer for the penalty service. It wraps the ledger's stored procedures
 * (penalty computation and balance lookup) and the tables the escalation workflow reads
 * and writes: penalties, users and notification_queue.
 */
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deedtrack/penalty-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrStatusNotChanged is returned when a status transition matched no row, either
	// because the user does not exist or is no longer active.
	ErrStatusNotChanged = errors.New("account status not changed")
)

// Repository handles database operations for the penalty run.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CalculateDailyPenalties runs the ledger's penalty computation for the current business
// day. A nil result with a nil error means the procedure returned nothing.
func (r *Repository) CalculateDailyPenalties(ctx context.Context) (*domain.ComputationResult, error) {
	var raw []byte
	if err := r.db.QueryRow(ctx, `SELECT calculate_daily_penalties_with_logging()::jsonb`).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeComputationResult(raw)
}

// penaltiesByDateQuery floors amounts the same way decodeBalance floors balances.
const penaltiesByDateQuery = `
	SELECT p.id, p.user_id, FLOOR(p.amount)::BIGINT, p.date_incurred,
	       u.id, u.name, u.email, u.fcm_token
	FROM penalties p
	INNER JOIN users u ON u.id = p.user_id
	WHERE p.date_incurred = $1::DATE
	ORDER BY p.id
`

// ListPenaltiesByDate fetches every penalty incurred on the given date together with its
// owner. Penalties whose owner no longer exists are excluded by the inner join.
func (r *Repository) ListPenaltiesByDate(ctx context.Context, date string) ([]domain.Penalty, error) {
	rows, err := r.db.Query(ctx, penaltiesByDateQuery, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var penalties []domain.Penalty
	for rows.Next() {
		var p domain.Penalty
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Amount,
			&p.DateIncurred,
			&p.Owner.ID,
			&p.Owner.Name,
			&p.Owner.Email,
			&p.Owner.PushToken,
		); err != nil {
			return nil, err
		}
		penalties = append(penalties, p)
	}

	return penalties, rows.Err()
}

// GetUserPenaltyBalance returns the user's outstanding penalty total, or nil when the
// ledger has no usable balance for the user.
func (r *Repository) GetUserPenaltyBalance(ctx context.Context, userID string) (*domain.BalanceSnapshot, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT get_user_penalty_balance($1)::jsonb`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	total, ok, err := decodeBalance(raw)
	if err != nil || !ok {
		return nil, err
	}
	return &domain.BalanceSnapshot{UserID: userID, TotalBalance: total}, nil
}

// ListActiveUsersByMembership fetches active users whose membership is one of tiers.
func (r *Repository) ListActiveUsersByMembership(ctx context.Context, tiers []domain.MembershipStatus) ([]domain.User, error) {
	if len(tiers) == 0 {
		return nil, nil
	}
	values := make([]string, len(tiers))
	for i, tier := range tiers {
		values[i] = string(tier)
	}

	query := `
		SELECT id, name, email, fcm_token
		FROM users
		WHERE account_status = $1
		  AND membership_status = ANY($2)
	`
	rows, err := r.db.Query(ctx, query, string(domain.AccountStatusActive), values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PushToken); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// DeactivateUser moves an active account to auto_deactivated. It returns
// ErrStatusNotChanged when no active account was updated.
func (r *Repository) DeactivateUser(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET account_status = $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND account_status = $3
	`
	tag, err := r.db.Exec(ctx, query, string(domain.AccountStatusAutoDeactivated), userID, string(domain.AccountStatusActive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusNotChanged
	}
	return nil
}

// InsertNotification writes one record to the notification queue.
func (r *Repository) InsertNotification(ctx context.Context, record domain.NotificationRecord) error {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}

	query := `
		INSERT INTO notification_queue (user_id, type, title, body, data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.Exec(ctx, query,
		record.UserID,
		string(record.Type),
		record.Title,
		record.Body,
		data,
		record.Status,
		record.CreatedAt,
	)
	return err
}
