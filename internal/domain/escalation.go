package domain

import "fmt"

// EscalationAction is the outcome of classifying a balance against the thresholds.
type EscalationAction int

const (
	EscalationNone EscalationAction = iota
	EscalationWarning
	EscalationFinalWarning
	EscalationDeactivate
)

func (a EscalationAction) String() string {
	switch a {
	case EscalationWarning:
		return "warning"
	case EscalationFinalWarning:
		return "final_warning"
	case EscalationDeactivate:
		return "deactivate"
	default:
		return "none"
	}
}

// Thresholds are the balance bands, in shillings, at which users are warned and then
// deactivated.
type Thresholds struct {
	Warn1      int64 `json:"warn_1"`
	Warn2      int64 `json:"warn_2"`
	Deactivate int64 `json:"deactivate"`
}

// DefaultThresholds returns the production policy: 400K, 450K and 500K shillings.
func DefaultThresholds() Thresholds {
	return Thresholds{Warn1: 400000, Warn2: 450000, Deactivate: 500000}
}

// Validate requires 0 < Warn1 < Warn2 < Deactivate.
func (t Thresholds) Validate() error {
	if t.Warn1 <= 0 {
		return fmt.Errorf("first warning threshold must be positive, got %d", t.Warn1)
	}
	if t.Warn1 >= t.Warn2 || t.Warn2 >= t.Deactivate {
		return fmt.Errorf("thresholds must be strictly ascending, got %d < %d < %d", t.Warn1, t.Warn2, t.Deactivate)
	}
	return nil
}

// Classify maps a balance to exactly one action. The highest band a balance reaches wins.
func (t Thresholds) Classify(balance int64) EscalationAction {
	switch {
	case balance >= t.Deactivate:
		return EscalationDeactivate
	case balance >= t.Warn2:
		return EscalationFinalWarning
	case balance >= t.Warn1:
		return EscalationWarning
	default:
		return EscalationNone
	}
}
