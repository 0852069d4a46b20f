/**
 * @description
 * Domain models for the daily penalty run.
 */
package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used by the ledger for penalty dates.
const DateLayout = "2006-01-02"

// ErrMissingProcessedDate is returned when a computation reports new penalties without the
// date they were created for.
var ErrMissingProcessedDate = errors.New("computation result reports penalties without date_processed")

// ComputationResult is the summary returned by the ledger's daily penalty computation.
// Fields other than Success, DateProcessed and PenaltiesCreated are passed through to the
// caller untouched.
type ComputationResult struct {
	Success          bool     `json:"success"`
	DateProcessed    string   `json:"date_processed,omitempty"`
	UsersProcessed   *int     `json:"users_processed,omitempty"`
	PenaltiesCreated int      `json:"penalties_created"`
	TargetDeeds      *int     `json:"target_deeds,omitempty"`
	PenaltyPerDeed   *float64 `json:"penalty_per_deed,omitempty"`
	Errors           []string `json:"errors,omitempty"`
	Timestamp        string   `json:"timestamp,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Validate checks the invariants the notification stage relies on.
func (r ComputationResult) Validate() error {
	if r.PenaltiesCreated < 0 {
		return fmt.Errorf("penalties_created must not be negative, got %d", r.PenaltiesCreated)
	}
	if r.PenaltiesCreated > 0 && r.DateProcessed == "" {
		return ErrMissingProcessedDate
	}
	if r.DateProcessed != "" {
		if _, err := time.Parse(DateLayout, r.DateProcessed); err != nil {
			return fmt.Errorf("invalid date_processed %q: %w", r.DateProcessed, err)
		}
	}
	return nil
}

// HasNewPenalties reports whether the run produced penalties that need notifying.
func (r ComputationResult) HasNewPenalties() bool {
	return r.Success && r.PenaltiesCreated > 0
}

// Penalty is a single penalty row joined with the user it belongs to.
type Penalty struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Amount       int64     `json:"amount"`
	DateIncurred time.Time `json:"date_incurred"`
	Owner        User      `json:"owner"`
}

// BalanceSnapshot is a user's outstanding penalty total at the moment it was read.
type BalanceSnapshot struct {
	UserID       string `json:"user_id"`
	TotalBalance int64  `json:"total_balance"`
}
