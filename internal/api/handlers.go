/**
 * @description
 * HTTP handlers for the penalty service.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/deedtrack/penalty-service/internal/app"
	"github.com/deedtrack/penalty-service/internal/domain"
)

// PenaltyRunner is the service operation the trigger endpoint invokes.
type PenaltyRunner interface {
	RunDailyPenalties(ctx context.Context) (*app.RunResult, error)
}

// Handler holds the application service that handlers will interact with.
type Handler struct {
	runner        PenaltyRunner
	timezoneLabel string
	runTimeout    time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewHandler creates a new Handler with the given service. runTimeout bounds a triggered
// run; zero means no limit.
func NewHandler(runner PenaltyRunner, timezoneLabel string, runTimeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		runner:        runner,
		timezoneLabel: timezoneLabel,
		runTimeout:    runTimeout,
		logger:        logger,
		now:           time.Now,
	}
}

type runResponse struct {
	Success   bool                      `json:"success"`
	Result    *domain.ComputationResult `json:"result,omitempty"`
	Stages    []app.StageSummary        `json:"stages,omitempty"`
	RunID     string                    `json:"run_id,omitempty"`
	Error     string                    `json:"error,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
	Timezone  string                    `json:"timezone"`
}

func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) handleCalculatePenalties(w http.ResponseWriter, r *http.Request) {
	// Once triggered, a run finishes even if the caller disconnects.
	ctx := context.WithoutCancel(r.Context())
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	run, err := h.runner.RunDailyPenalties(ctx)

	resp := runResponse{
		Timestamp: h.now().UTC(),
		Timezone:  h.timezoneLabel,
	}
	if run != nil {
		resp.RunID = run.RunID
	}

	if err != nil {
		h.logger.Error("fatal error in penalty calculation", "run_id", resp.RunID, "error", err)
		resp.Error = err.Error()
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrRunInProgress) {
			status = http.StatusConflict
		}
		respondWithJSON(w, status, resp)
		return
	}

	resp.Success = true
	resp.Result = run.Computation
	resp.Stages = run.Summaries()
	respondWithJSON(w, http.StatusOK, resp)
}

// respondWithJSON writes JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
