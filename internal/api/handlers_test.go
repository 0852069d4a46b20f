package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deedtrack/penalty-service/internal/app"
	"github.com/deedtrack/penalty-service/internal/domain"
)

type runnerStub struct {
	run   *app.RunResult
	err   error
	calls int

	ctxErr      error
	deadline    time.Time
	hasDeadline bool
}

func (s *runnerStub) RunDailyPenalties(ctx context.Context) (*app.RunResult, error) {
	s.calls++
	s.ctxErr = ctx.Err()
	s.deadline, s.hasDeadline = ctx.Deadline()
	return s.run, s.err
}

func newTestRouter(runner PenaltyRunner, auth AuthConfig) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(runner, "EAT (UTC+3)", time.Minute, logger)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return NewRouter(h, auth)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestCalculatePenalties_Success(t *testing.T) {
	runner := &runnerStub{run: &app.RunResult{
		RunID:       "run-1",
		Computation: &domain.ComputationResult{Success: true, DateProcessed: "2024-05-01", PenaltiesCreated: 3},
		Stages: []app.StageReport{
			{Stage: app.StagePenaltyNotifications, Status: app.StageCompleted, Items: []app.ItemResult{{Notified: true}, {Notified: true}, {Notified: true}}},
			{Stage: app.StageEscalation, Status: app.StageFailed, Err: errors.New("users query failed")},
		},
	}}
	router := newTestRouter(runner, AuthConfig{})

	req := httptest.NewRequest(http.MethodPost, "/calculate-penalties", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" && got != "*" {
		t.Fatalf("unexpected CORS origin header %q", got)
	}

	body := decodeResponse(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success=true even with a failed stage, got %v", body["success"])
	}
	if body["timezone"] != "EAT (UTC+3)" {
		t.Fatalf("unexpected timezone %v", body["timezone"])
	}
	if body["run_id"] != "run-1" {
		t.Fatalf("unexpected run_id %v", body["run_id"])
	}
	result, ok := body["result"].(map[string]interface{})
	if !ok || result["penalties_created"] != float64(3) {
		t.Fatalf("expected computation result to pass through, got %v", body["result"])
	}
	stages, ok := body["stages"].([]interface{})
	if !ok || len(stages) != 2 {
		t.Fatalf("expected two stage summaries, got %v", body["stages"])
	}
}

func TestCalculatePenalties_FatalError(t *testing.T) {
	runner := &runnerStub{run: &app.RunResult{RunID: "run-2"}, err: errors.New("penalty calculation failed: boom")}
	router := newTestRouter(runner, AuthConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/calculate-penalties", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body["success"])
	}
	if body["error"] != "penalty calculation failed: boom" {
		t.Fatalf("unexpected error message %v", body["error"])
	}
	if _, ok := body["timestamp"]; !ok {
		t.Fatal("expected timestamp in error response")
	}
}

func TestCalculatePenalties_RunInProgress(t *testing.T) {
	runner := &runnerStub{run: &app.RunResult{RunID: "run-3"}, err: app.ErrRunInProgress}
	router := newTestRouter(runner, AuthConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/calculate-penalties", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCalculatePenalties_PreflightDoesNoWork(t *testing.T) {
	runner := &runnerStub{}
	router := newTestRouter(runner, AuthConfig{InternalAPIKey: "secret"})

	req := httptest.NewRequest(http.MethodOptions, "/calculate-penalties", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("expected ok body, got %q", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS headers on preflight")
	}
	if runner.calls != 0 {
		t.Fatalf("preflight must not trigger a run, got %d calls", runner.calls)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&runnerStub{}, AuthConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCalculatePenalties_RunOutlivesCaller(t *testing.T) {
	runner := &runnerStub{run: &app.RunResult{RunID: "run-4", Computation: &domain.ComputationResult{Success: true}}}
	router := newTestRouter(runner, AuthConfig{})

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/calculate-penalties", nil).WithContext(reqCtx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if runner.calls != 1 {
		t.Fatalf("expected one run, got %d", runner.calls)
	}
	if runner.ctxErr != nil {
		t.Fatalf("run context must not follow the caller, got %v", runner.ctxErr)
	}
	if !runner.hasDeadline {
		t.Fatal("expected run timeout to bound the run context")
	}
	if remaining := time.Until(runner.deadline); remaining <= 0 || remaining > time.Minute {
		t.Fatalf("unexpected run deadline in %s", remaining)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
