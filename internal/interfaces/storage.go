package interfaces

import (
	"context"

	"github.com/ternarybob/peto/internal/models"
)

// RunStateStorage - persistence for the self-heal run state
type RunStateStorage interface {
	// GetRunState returns the stored state, or a fresh zero state when
	// none has been saved yet
	GetRunState(ctx context.Context) (*models.RunState, error)

	// SaveRunState persists the state
	SaveRunState(ctx context.Context, state *models.RunState) error
}

// OutcomeStorage - persistence for per-target attempt outcomes
type OutcomeStorage interface {
	// SaveOutcome upserts the outcome for its (target, attempt) key
	SaveOutcome(ctx context.Context, outcome *models.AttemptOutcome) error

	// GetOutcome returns the outcome for a company and attempt
	GetOutcome(ctx context.Context, company string, attempt int) (*models.AttemptOutcome, error)

	// ListOutcomes returns all outcomes for an attempt, newest first
	ListOutcomes(ctx context.Context, attempt int) ([]*models.AttemptOutcome, error)

	// ListCompanyOutcomes returns the attempt history for one company
	ListCompanyOutcomes(ctx context.Context, company string) ([]*models.AttemptOutcome, error)

	// CountByStatus counts outcomes with the given status for an attempt
	CountByStatus(ctx context.Context, attempt int, status models.AttemptStatus) (int, error)
}

// ReportStorage - persistence for aggregate run reports
type ReportStorage interface {
	SaveReport(ctx context.Context, report *models.RunReport) error
	GetReport(ctx context.Context, attempt int) (*models.RunReport, error)

	// LatestReport returns the most recently generated report
	LatestReport(ctx context.Context) (*models.RunReport, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	RunStateStorage() RunStateStorage
	OutcomeStorage() OutcomeStorage
	ReportStorage() ReportStorage
	DB() interface{}
	Close() error
}
