package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	runState interfaces.RunStateStorage
	outcome  interfaces.OutcomeStorage
	report   interfaces.ReportStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		runState: NewRunStateStorage(db, logger),
		outcome:  NewOutcomeStorage(db, logger),
		report:   NewReportStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// RunStateStorage returns the RunState storage interface
func (m *Manager) RunStateStorage() interfaces.RunStateStorage {
	return m.runState
}

// OutcomeStorage returns the Outcome storage interface
func (m *Manager) OutcomeStorage() interfaces.OutcomeStorage {
	return m.outcome
}

// ReportStorage returns the Report storage interface
func (m *Manager) ReportStorage() interfaces.ReportStorage {
	return m.report
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
