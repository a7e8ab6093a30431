package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RunStateStorage implements the RunStateStorage interface for Badger
type RunStateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStateStorage creates a new RunStateStorage instance
func NewRunStateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStateStorage {
	return &RunStateStorage{
		db:     db,
		logger: logger,
	}
}

// GetRunState returns the stored self-heal state. A missing record is
// not an error; a fresh zero state is returned instead.
func (s *RunStateStorage) GetRunState(ctx context.Context) (*models.RunState, error) {
	var state models.RunState
	if err := s.db.Store().Get(models.RunStateKey, &state); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.NewRunState(), nil
		}
		return nil, fmt.Errorf("failed to get run state: %w", err)
	}

	// Pools must never be nil; callers append to them directly
	if state.ExtraApplyHints == nil {
		state.ExtraApplyHints = []string{}
	}
	if state.ExtraSubmitHints == nil {
		state.ExtraSubmitHints = []string{}
	}
	if state.ExtraSuccessMarkers == nil {
		state.ExtraSuccessMarkers = []string{}
	}

	return &state, nil
}

// SaveRunState persists the self-heal state
func (s *RunStateStorage) SaveRunState(ctx context.Context, state *models.RunState) error {
	if state == nil {
		return fmt.Errorf("run state is required")
	}

	if err := s.db.Store().Upsert(models.RunStateKey, state); err != nil {
		return fmt.Errorf("failed to save run state: %w", err)
	}

	s.logger.Debug().
		Int("heal_count", state.HealCount).
		Int("apply_hints", len(state.ExtraApplyHints)).
		Int("submit_hints", len(state.ExtraSubmitHints)).
		Int("markers", len(state.ExtraSuccessMarkers)).
		Msg("Run state saved")

	return nil
}
