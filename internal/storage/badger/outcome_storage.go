package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// OutcomeStorage implements the OutcomeStorage interface for Badger
type OutcomeStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewOutcomeStorage creates a new OutcomeStorage instance
func NewOutcomeStorage(db *BadgerDB, logger arbor.ILogger) interfaces.OutcomeStorage {
	return &OutcomeStorage{
		db:     db,
		logger: logger,
	}
}

// SaveOutcome upserts an outcome under its (target, attempt) key, so a
// re-run of the same attempt replaces rather than duplicates.
func (s *OutcomeStorage) SaveOutcome(ctx context.Context, outcome *models.AttemptOutcome) error {
	if outcome == nil || outcome.Company == "" {
		return fmt.Errorf("outcome with company is required")
	}

	if err := s.db.Store().Upsert(outcome.Key(), outcome); err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}
	return nil
}

// GetOutcome returns the outcome for a company and attempt
func (s *OutcomeStorage) GetOutcome(ctx context.Context, company string, attempt int) (*models.AttemptOutcome, error) {
	var outcomes []models.AttemptOutcome
	query := badgerhold.Where("Company").Eq(company).And("LastAttempt").Eq(attempt).Limit(1)
	if err := s.db.Store().Find(&outcomes, query); err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("outcome not found: %s attempt %d", company, attempt)
	}
	return &outcomes[0], nil
}

// ListOutcomes returns all outcomes for an attempt, newest first
func (s *OutcomeStorage) ListOutcomes(ctx context.Context, attempt int) ([]*models.AttemptOutcome, error) {
	var outcomes []models.AttemptOutcome
	query := badgerhold.Where("LastAttempt").Eq(attempt).SortBy("UpdatedAt").Reverse()
	if err := s.db.Store().Find(&outcomes, query); err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}

	result := make([]*models.AttemptOutcome, len(outcomes))
	for i := range outcomes {
		result[i] = &outcomes[i]
	}
	return result, nil
}

// ListCompanyOutcomes returns the attempt history for one company,
// oldest attempt first
func (s *OutcomeStorage) ListCompanyOutcomes(ctx context.Context, company string) ([]*models.AttemptOutcome, error) {
	var outcomes []models.AttemptOutcome
	query := badgerhold.Where("Company").Eq(company).SortBy("LastAttempt")
	if err := s.db.Store().Find(&outcomes, query); err != nil {
		return nil, fmt.Errorf("failed to list company outcomes: %w", err)
	}

	result := make([]*models.AttemptOutcome, len(outcomes))
	for i := range outcomes {
		result[i] = &outcomes[i]
	}
	return result, nil
}

// CountByStatus counts outcomes with the given status for an attempt
func (s *OutcomeStorage) CountByStatus(ctx context.Context, attempt int, status models.AttemptStatus) (int, error) {
	query := badgerhold.Where("LastAttempt").Eq(attempt).And("Status").Eq(status)
	count, err := s.db.Store().Count(&models.AttemptOutcome{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count outcomes: %w", err)
	}
	return int(count), nil
}
