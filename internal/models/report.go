// -----------------------------------------------------------------------
// RunReport - Aggregate result of one swarm run
// -----------------------------------------------------------------------

package models

import (
	"strconv"
	"time"
)

// ReportSummary counts outcomes by status.
type ReportSummary struct {
	Total      int `json:"total"`
	Complete   int `json:"complete"`
	Blocked    int `json:"blocked"`
	Incomplete int `json:"incomplete"`
}

// RunReport is the persisted aggregate for one run, also written out as
// the JSON report file.
type RunReport struct {
	GeneratedAt         time.Time        `json:"generated_at"`
	Attempt             int              `json:"attempt"`
	BatchSize           int              `json:"batch_size"`
	TTLSeconds          int              `json:"ttl_seconds"`
	MaxSelfHealAttempts int              `json:"max_self_heal_attempts"`
	Results             []AttemptOutcome `json:"results"`
	Summary             ReportSummary    `json:"summary"`
}

// NewRunReport assembles a report from per-target outcomes and computes
// the summary counts.
func NewRunReport(attempt, batchSize, ttlSeconds, maxHeal int, results []AttemptOutcome) *RunReport {
	report := &RunReport{
		GeneratedAt:         time.Now().UTC(),
		Attempt:             attempt,
		BatchSize:           batchSize,
		TTLSeconds:          ttlSeconds,
		MaxSelfHealAttempts: maxHeal,
		Results:             results,
	}

	report.Summary.Total = len(results)
	for _, r := range results {
		switch r.Status {
		case StatusComplete:
			report.Summary.Complete++
		case StatusBlocked:
			report.Summary.Blocked++
		default:
			report.Summary.Incomplete++
		}
	}

	return report
}

// Key returns the storage key for this report, unique per attempt.
func (r *RunReport) Key() string {
	return "report_attempt_" + strconv.Itoa(r.Attempt)
}
