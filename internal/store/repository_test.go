package store

import (
	"strings"
	"testing"
)

func TestPenaltiesByDateQuery_FloorsAmount(t *testing.T) {
	if !strings.Contains(penaltiesByDateQuery, "FLOOR(p.amount)::BIGINT") {
		t.Fatalf("expected penalty amounts to be floored like balances, query:\n%s", penaltiesByDateQuery)
	}
	if strings.Contains(penaltiesByDateQuery, " p.amount::BIGINT") {
		t.Fatal("a bare BIGINT cast rounds fractional amounts")
	}
}
