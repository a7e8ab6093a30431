// -----------------------------------------------------------------------
// RunState - Persistent self-heal state shared across swarm runs
// -----------------------------------------------------------------------

package models

import "time"

// RunStateKey is the storage key for the single run state record.
const RunStateKey = "runtime_state"

// RunState carries the heal counter and the learned hint pools. Hints
// only ever grow; nothing is removed or reordered once appended.
type RunState struct {
	HealCount           int       `json:"heal_count"`
	ExtraApplyHints     []string  `json:"extra_apply_hints"`
	ExtraSubmitHints    []string  `json:"extra_submit_hints"`
	ExtraSuccessMarkers []string  `json:"extra_success_markers"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewRunState returns an empty run state with zeroed pools.
func NewRunState() *RunState {
	return &RunState{
		ExtraApplyHints:     []string{},
		ExtraSubmitHints:    []string{},
		ExtraSuccessMarkers: []string{},
	}
}

// AddApplyHint appends a hint if absent. Returns true when appended.
func (s *RunState) AddApplyHint(hint string) bool {
	return appendAbsent(&s.ExtraApplyHints, hint)
}

// AddSubmitHint appends a hint if absent. Returns true when appended.
func (s *RunState) AddSubmitHint(hint string) bool {
	return appendAbsent(&s.ExtraSubmitHints, hint)
}

// AddSuccessMarker appends a marker if absent. Returns true when appended.
func (s *RunState) AddSuccessMarker(marker string) bool {
	return appendAbsent(&s.ExtraSuccessMarkers, marker)
}

// ApplyHints returns the curated apply hints plus learned extras.
func (s *RunState) ApplyHints() []string {
	return MergeHints(ApplyHints, s.ExtraApplyHints)
}

// SubmitHints returns the curated submit hints plus learned extras.
func (s *RunState) SubmitHints() []string {
	return MergeHints(SubmitHints, s.ExtraSubmitHints)
}

// SuccessMarkers returns the strict text markers plus learned extras.
func (s *RunState) SuccessMarkers() []string {
	return MergeHints(StrictTextMarkers, s.ExtraSuccessMarkers)
}

func appendAbsent(pool *[]string, value string) bool {
	if value == "" {
		return false
	}
	for _, existing := range *pool {
		if existing == value {
			return false
		}
	}
	*pool = append(*pool, value)
	return true
}
