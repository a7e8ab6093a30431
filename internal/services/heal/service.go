// -----------------------------------------------------------------------
// Self-heal - Post-mortem widening of the hint pools from attempt logs
// -----------------------------------------------------------------------

package heal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

// Service grows the learned hint pools between runs. It only ever runs
// as its own invocation, never alongside a live swarm; the run state is
// read-only during a run and written only here.
type Service struct {
	config  *common.Config
	storage interfaces.RunStateStorage
	events  interfaces.EventService
	logger  arbor.ILogger
}

func NewService(config *common.Config, storage interfaces.RunStateStorage, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// Heal reads the attempt's swarm log and, when it records unconfirmed
// attempts, appends one absent candidate to each hint pool. Growth is
// deliberately slow: the heal does not know why a site failed, so it
// widens the heuristic surface one phrase per pool per invocation.
func (s *Service) Heal(ctx context.Context, attempt int) (*models.RunState, error) {
	state, err := s.storage.GetRunState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}
	state.HealCount++

	text := s.readAttemptLog(attempt)

	var added []string
	switch {
	case state.HealCount > s.config.SelfHeal.MaxAttempts:
		s.logger.Warn().
			Int("heal_count", state.HealCount).
			Int("max", s.config.SelfHeal.MaxAttempts).
			Msg("Self-heal round cap reached, pools frozen")
	case !hasFailureSentinels(text):
		s.logger.Info().Int("attempt", attempt).Msg("No failure sentinels in attempt log, pools unchanged")
	default:
		added = widenPools(state)
	}

	state.UpdatedAt = time.Now().UTC()
	if err := s.storage.SaveRunState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save run state: %w", err)
	}

	s.logger.Info().
		Int("heal_count", state.HealCount).
		Strs("added", added).
		Int("apply_hints", len(state.ExtraApplyHints)).
		Int("submit_hints", len(state.ExtraSubmitHints)).
		Int("markers", len(state.ExtraSuccessMarkers)).
		Msg("Self-heal finished")

	if len(added) > 0 {
		s.publish(ctx, state, added)
	}
	return state, nil
}

// widenPools appends the first absent candidate from each pool. Returns
// the additions as "pool:phrase" entries.
func widenPools(state *models.RunState) []string {
	added := make([]string, 0, 3)
	for _, hint := range models.HealApplyPool {
		if state.AddApplyHint(hint) {
			added = append(added, "apply:"+hint)
			break
		}
	}
	for _, hint := range models.HealSubmitPool {
		if state.AddSubmitHint(hint) {
			added = append(added, "submit:"+hint)
			break
		}
	}
	for _, marker := range models.HealMarkerPool {
		if state.AddSuccessMarker(marker) {
			added = append(added, "marker:"+marker)
			break
		}
	}
	return added
}

// readAttemptLog returns the lowercased swarm log text for an attempt,
// or "" when no log was written.
func (s *Service) readAttemptLog(attempt int) string {
	path := common.AttemptLogPath(s.config.Swarm.LogsDir, attempt)
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("Attempt log not readable")
		return ""
	}
	return strings.ToLower(string(data))
}

// hasFailureSentinels reports whether the log text records attempts that
// ended without a strict confirmation.
func hasFailureSentinels(text string) bool {
	return strings.Contains(text, "incomplete") ||
		strings.Contains(text, "no_strict") ||
		strings.Contains(text, "no confirmation")
}

func (s *Service) publish(ctx context.Context, state *models.RunState, added []string) {
	if s.events == nil {
		return
	}
	event := interfaces.Event{
		Type: interfaces.EventHealApplied,
		Payload: models.HealUpdate{
			HealCount: state.HealCount,
			Added:     added,
		},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Debug().Err(err).Msg("Heal event publish failed")
	}
}
