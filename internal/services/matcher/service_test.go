package matcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/browser/browsertest"
)

func newTestMatcher(t *testing.T) *Service {
	t.Helper()
	profile := &models.Profile{}
	profile.ApplyDefaults()
	return NewService(profile, common.GetLogger())
}

func TestFillAllReturnsFilledCount(t *testing.T) {
	m := newTestMatcher(t)
	session := browsertest.NewFakeSession("https://example.com/apply").Answer("fillProfile", 9)

	filled := m.FillAll(context.Background(), session)

	assert.Equal(t, 9, filled)
	require.Equal(t, 1, session.EvalCount("fillProfile"))
}

func TestFillAllPayloadCarriesProfileAndWordLists(t *testing.T) {
	m := newTestMatcher(t)
	session := browsertest.NewFakeSession("https://example.com/apply").Answer("fillProfile", 3)

	m.FillAll(context.Background(), session)

	require.Len(t, session.Evals, 1)
	js := session.Evals[0]
	// Profile values ride along as arguments, never as page globals
	assert.Contains(t, js, `"first_name":"Elijah"`)
	assert.Contains(t, js, `"state":"Texas"`)
	// Alias table, intent phrases, and state spellings come from Go
	assert.Contains(t, js, `"aliases"`)
	assert.Contains(t, js, "authorized to work")
	assert.Contains(t, js, "require sponsorship")
	assert.Contains(t, js, `"Texas"`)
	assert.Contains(t, js, `"TX"`)
	// Resume hits file inputs, never a text field
	assert.False(t, strings.Contains(js, "resume_path"))
}

func TestApplyEEOPassesDefaults(t *testing.T) {
	m := newTestMatcher(t)
	session := browsertest.NewFakeSession("https://example.com/apply").Answer("applyEeo", 2)

	actions := m.ApplyEEO(context.Background(), session)

	assert.Equal(t, 2, actions)
	require.Len(t, session.Evals, 1)
	assert.Contains(t, session.Evals[0], `"veteran":"No"`)
	assert.Contains(t, session.Evals[0], `"disability":"No"`)
}

func TestEvalFailureReportsZero(t *testing.T) {
	m := newTestMatcher(t)
	session := browsertest.NewFakeSession("https://example.com/apply")
	session.EvalFn = func(js string, out interface{}) error {
		return assert.AnError
	}

	assert.Equal(t, 0, m.FillAll(context.Background(), session))
	assert.Equal(t, 0, m.ApplyEEO(context.Background(), session))
	assert.Equal(t, 0, m.ClearHoneypots(context.Background(), session))
	assert.Equal(t, 0, m.CountFields(context.Background(), session))
}

func TestCountFields(t *testing.T) {
	m := newTestMatcher(t)
	session := browsertest.NewFakeSession("https://example.com/careers").Answer("countInputs", 14)

	assert.Equal(t, 14, m.CountFields(context.Background(), session))
}

func TestClearHoneypots(t *testing.T) {
	m := newTestMatcher(t)
	session := browsertest.NewFakeSession("https://example.com/apply").Answer("clearHoneypots", 1)

	assert.Equal(t, 1, m.ClearHoneypots(context.Background(), session))
}
