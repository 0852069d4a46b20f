package app

import "github.com/deedtrack/penalty-service/internal/domain"

// Stage names used in reports and logs.
const (
	StagePenaltyNotifications = "penalty_notifications"
	StageEscalation           = "deactivation_escalation"
)

// StageStatus is the terminal state of a stage within a run.
type StageStatus string

const (
	StageSkipped   StageStatus = "skipped"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// ItemResult is the outcome of processing one penalty or one user.
type ItemResult struct {
	UserID      string
	PenaltyID   string
	Action      domain.EscalationAction
	Deactivated bool
	Notified    bool
	Skipped     bool
	Err         error
}

// StageReport collects the per-item results of one stage.
type StageReport struct {
	Stage  string
	Status StageStatus
	Err    error
	Items  []ItemResult
}

// StageSummary is the caller-facing view of a StageReport. Item errors stay in the logs.
type StageSummary struct {
	Stage         string      `json:"stage"`
	Status        StageStatus `json:"status"`
	Error         string      `json:"error,omitempty"`
	Processed     int         `json:"processed"`
	Notified      int         `json:"notified"`
	Skipped       int         `json:"skipped"`
	Failed        int         `json:"failed"`
	Warnings      int         `json:"warnings,omitempty"`
	FinalWarnings int         `json:"final_warnings,omitempty"`
	Deactivations int         `json:"deactivations,omitempty"`
}

// Summary aggregates the report's items.
func (r StageReport) Summary() StageSummary {
	summary := StageSummary{
		Stage:     r.Stage,
		Status:    r.Status,
		Processed: len(r.Items),
	}
	if r.Err != nil {
		summary.Error = r.Err.Error()
	}

	for _, item := range r.Items {
		if item.Err != nil {
			summary.Failed++
		}
		if item.Skipped {
			summary.Skipped++
		}
		if item.Deactivated {
			summary.Deactivations++
		}
		if !item.Notified {
			continue
		}
		summary.Notified++
		switch item.Action {
		case domain.EscalationWarning:
			summary.Warnings++
		case domain.EscalationFinalWarning:
			summary.FinalWarnings++
		}
	}

	return summary
}

// Escalations is the number of warnings and deactivations actually issued.
func (s StageSummary) Escalations() int {
	return s.Warnings + s.FinalWarnings + s.Deactivations
}
