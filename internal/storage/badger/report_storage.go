package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ReportStorage implements the ReportStorage interface for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

// SaveReport persists the aggregate report for a run
func (s *ReportStorage) SaveReport(ctx context.Context, report *models.RunReport) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}

	if err := s.db.Store().Upsert(report.Key(), report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Debug().
		Int("attempt", report.Attempt).
		Int("total", report.Summary.Total).
		Int("complete", report.Summary.Complete).
		Msg("Run report saved")

	return nil
}

// GetReport returns the report for an attempt
func (s *ReportStorage) GetReport(ctx context.Context, attempt int) (*models.RunReport, error) {
	var reports []models.RunReport
	query := badgerhold.Where("Attempt").Eq(attempt).Limit(1)
	if err := s.db.Store().Find(&reports, query); err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("report not found for attempt %d", attempt)
	}
	return &reports[0], nil
}

// LatestReport returns the most recently generated report
func (s *ReportStorage) LatestReport(ctx context.Context) (*models.RunReport, error) {
	var reports []models.RunReport
	query := badgerhold.Where("Attempt").Ge(0).SortBy("GeneratedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&reports, query); err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	if len(reports) == 0 {
		return nil, badgerhold.ErrNotFound
	}
	return &reports[0], nil
}
