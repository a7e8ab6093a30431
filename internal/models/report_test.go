package models

import (
	"encoding/json"
	"testing"
)

// TestNewRunReport verifies summary counts and report shape
func TestNewRunReport(t *testing.T) {
	results := []AttemptOutcome{
		{Company: "A", Status: StatusComplete},
		{Company: "B", Status: StatusBlocked},
		{Company: "C", Status: StatusIncomplete},
		{Company: "D", Status: StatusComplete},
	}

	report := NewRunReport(2, 3, 120, 15, results)

	if report.Summary.Total != 4 {
		t.Errorf("Total = %d, want 4", report.Summary.Total)
	}
	if report.Summary.Complete != 2 || report.Summary.Blocked != 1 || report.Summary.Incomplete != 1 {
		t.Errorf("Summary = %+v, want 2/1/1", report.Summary)
	}
	if report.Key() != "report_attempt_2" {
		t.Errorf("Key() = %q", report.Key())
	}
	if report.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	for _, key := range []string{"generated_at", "batch_size", "ttl_seconds", "max_self_heal_attempts", "results", "summary"} {
		if !jsonHasKey(data, key) {
			t.Errorf("report JSON missing key %q", key)
		}
	}
}

func jsonHasKey(data []byte, key string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
