// -----------------------------------------------------------------------
// Field matcher - drives the in-page filler against an applicant profile
// -----------------------------------------------------------------------

package matcher

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/browser"
)

// fillOptions is the word-list bundle handed to the page-side filler.
// Keeping the tables here means the page holds no data of its own.
type fillOptions struct {
	Aliases map[string][]string `json:"aliases"`
	Yes     []string            `json:"yes"`
	No      []string            `json:"no"`
	States  []string            `json:"states"`
}

// Service matches form fields to profile values inside the page. All
// operations are best-effort: a page that cannot be filled reports zero
// actions rather than an error, and the flow above decides what that
// means.
type Service struct {
	profile *models.Profile
	logger  arbor.ILogger
	opts    fillOptions
}

func NewService(profile *models.Profile, logger arbor.ILogger) *Service {
	return &Service{
		profile: profile,
		logger:  logger,
		opts: fillOptions{
			Aliases: models.FieldAliases,
			Yes:     models.YesIntentPhrases,
			No:      models.NoIntentPhrases,
			States:  profile.StateCandidates(),
		},
	}
}

// FillAll runs one fill pass over every visible field: text inputs and
// textareas by alias match, yes/no screening radios, and state
// dropdowns. Returns the number of controls written.
func (s *Service) FillAll(ctx context.Context, session interfaces.BrowserSession) int {
	var filled int
	js := browser.HelperCall("fillProfile", "0", s.profile.FillValues(), s.opts)
	if err := session.Eval(ctx, js, &filled); err != nil {
		s.logger.Debug().Err(err).Msg("Fill pass failed")
		return 0
	}
	return filled
}

// ApplyEEO answers equal-opportunity questions with the profile's
// defaults, covering both dropdown and radio/checkbox renditions.
// Returns the number of answers applied.
func (s *Service) ApplyEEO(ctx context.Context, session interfaces.BrowserSession) int {
	var actions int
	js := browser.HelperCall("applyEeo", "0", s.profile.EEO)
	if err := session.Eval(ctx, js, &actions); err != nil {
		s.logger.Debug().Err(err).Msg("EEO pass failed")
		return 0
	}
	return actions
}

// ClearHoneypots blanks any value that landed in a trap field. Trap
// fields are skipped during filling, but site scripts occasionally copy
// values into them.
func (s *Service) ClearHoneypots(ctx context.Context, session interfaces.BrowserSession) int {
	var cleared int
	js := browser.HelperCall("clearHoneypots", "0")
	if err := session.Eval(ctx, js, &cleared); err != nil {
		s.logger.Debug().Err(err).Msg("Honeypot clear failed")
		return 0
	}
	if cleared > 0 {
		s.logger.Debug().Int("cleared", cleared).Msg("Honeypot fields blanked")
	}
	return cleared
}

// CountFields returns the number of visible form controls on the page.
// A page with form depth is an application form; a page without is a
// listing that still needs navigation.
func (s *Service) CountFields(ctx context.Context, session interfaces.BrowserSession) int {
	var count int
	js := browser.HelperCall("countInputs", "0")
	if err := session.Eval(ctx, js, &count); err != nil {
		s.logger.Debug().Err(err).Msg("Field count failed")
		return 0
	}
	return count
}
