package navigator

import (
	"context"
	"strings"

	"github.com/ternarybob/peto/internal/services/browser"
)

// submitForm fires the submission in escalating tiers, watching network
// traffic to tell whether anything actually posted. Tier one is a real
// click on the submit control; tier two asks the form to submit itself;
// tier three falls back to synthetic clicks over the submit hint pool.
func (f *flow) submitForm(ctx context.Context) {
	beforeURL, _ := f.session.CurrentURL(ctx)
	onSPA := strings.Contains(strings.ToLower(beforeURL), "bamboohr")
	if onSPA {
		f.evalBool(ctx, "hookSubmitLog")
	}
	mark := f.session.ResponseMark()

	if err := f.session.Click(ctx, `button[type="submit"]`); err != nil {
		f.logger.Debug().Err(err).Msg("Submit control click missed")
	}
	f.session.WaitSettle(ctx, postSubmitWaitMs)

	if len(f.session.ResponsesSince(mark)) == 0 {
		result := f.evalString(ctx, "submitFirstForm")
		f.logger.Debug().Str("result", result).Msg("Form requestSubmit")
		f.session.WaitSettle(ctx, postSubmitWaitMs)
	}

	if len(f.session.ResponsesSince(mark)) == 0 {
		if hint := f.clickHints(ctx, f.submitHints); hint != "" {
			f.logger.Info().Str("hint", hint).Msg("Submit hint clicked")
		}
		f.session.WaitSettle(ctx, postSubmitWaitMs)
	}

	// Give slow AJAX submissions time to land before reading the page
	f.session.WaitSettle(ctx, postSubmitWaitMs)

	f.logSubmitDiagnostics(ctx, mark, onSPA)

	afterURL, _ := f.session.CurrentURL(ctx)
	if afterURL != beforeURL {
		f.session.WaitSettle(ctx, navChangeWaitMs)
	}
	f.reinject(ctx)
}

// logSubmitDiagnostics records what the submission produced: observed
// network responses, the in-page request log, and any validation errors
// now showing.
func (f *flow) logSubmitDiagnostics(ctx context.Context, mark int, onSPA bool) {
	responses := f.session.ResponsesSince(mark)
	if len(responses) == 0 {
		f.logger.Warn().Msg("No submit traffic observed, form may not have posted")
	}
	for _, resp := range responses {
		f.logger.Info().
			Str("method", resp.Method).
			Int("status", resp.Status).
			Str("url", resp.URL).
			Msg("Submit response")
	}

	if !onSPA {
		return
	}
	if requestLog := f.evalString(ctx, "readSubmitLog"); requestLog != "" && requestLog != "[]" {
		f.logger.Debug().Str("requests", requestLog).Msg("In-page submit log")
	}
	var visible []string
	if err := f.session.Eval(ctx, browser.HelperCall("collectVisibleErrors", "[]"), &visible); err == nil && len(visible) > 0 {
		f.logger.Warn().Strs("errors", visible).Msg("Validation errors visible after submit")
	}
}
