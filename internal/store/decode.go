package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/deedtrack/penalty-service/internal/domain"
)

func decodeComputationResult(raw []byte) (*domain.ComputationResult, error) {
	if isJSONNull(raw) {
		return nil, nil
	}

	var result domain.ComputationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode penalty computation result: %w", err)
	}
	return &result, nil
}

// decodeBalance extracts total_balance from the balance procedure's JSON output. Fractional
// totals are floored so a user is never escalated for more than they owe.
func decodeBalance(raw []byte) (int64, bool, error) {
	if isJSONNull(raw) {
		return 0, false, nil
	}

	var payload struct {
		TotalBalance *json.Number `json:"total_balance"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return 0, false, fmt.Errorf("failed to decode penalty balance: %w", err)
	}
	if payload.TotalBalance == nil {
		return 0, false, nil
	}

	if total, err := payload.TotalBalance.Int64(); err == nil {
		if total < 0 {
			return 0, false, fmt.Errorf("negative penalty balance %d", total)
		}
		return total, true, nil
	}

	f, err := payload.TotalBalance.Float64()
	if err != nil {
		return 0, false, fmt.Errorf("invalid penalty balance %q: %w", payload.TotalBalance.String(), err)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("invalid penalty balance %v", f)
	}
	return int64(math.Floor(f)), true, nil
}

func isJSONNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
