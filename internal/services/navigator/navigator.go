// -----------------------------------------------------------------------
// Navigator - Drives one application attempt from career page to verdict
// -----------------------------------------------------------------------

package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/browser"
	"github.com/ternarybob/peto/internal/services/confirm"
	"github.com/ternarybob/peto/internal/services/matcher"
)

// Flow pacing. The waits match what live career sites and their ATS
// portals need between actions before the DOM is worth reading again.
const (
	afterNavSettleMs  = 2000
	reapplySettleMs   = 500
	interFillSettleMs = 300
	postSubmitWaitMs  = 3000
	navChangeWaitMs   = 5000
	navErrorWaitMs    = 8000

	recoveryGrace = 30 * time.Second
)

// Service walks one target from its career page through an application
// form to a strict confirmation verdict. Every failure mode maps onto an
// outcome classification; Run never returns an error.
type Service struct {
	config  *common.Config
	profile *models.Profile
	matcher *matcher.Service
	confirm *confirm.Service
	events  interfaces.EventService
	logger  arbor.ILogger
}

func NewService(config *common.Config, profile *models.Profile, matchSvc *matcher.Service, confirmSvc *confirm.Service, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		profile: profile,
		matcher: matchSvc,
		confirm: confirmSvc,
		events:  events,
		logger:  logger,
	}
}

// flow carries the state of a single attempt: the session being driven,
// the hint pools in effect, and the best fill counts seen so far.
type flow struct {
	svc     *Service
	session interfaces.BrowserSession
	target  models.Target
	slug    string
	attempt int

	applyHints  []string
	submitHints []string
	markers     []string

	maxFilled  int
	maxEEO     int
	maxUploads int

	outcome *models.AttemptOutcome
	logger  arbor.ILogger
}

// Run executes one attempt against the target under the session TTL.
// When the TTL fires or the flow dies mid-navigation, the page is given
// a recovery window; a confirmation page reached moments too late still
// counts.
func (s *Service) Run(ctx context.Context, session interfaces.BrowserSession, target models.Target, state *models.RunState) *models.AttemptOutcome {
	if state == nil {
		state = models.NewRunState()
	}
	attempt := s.config.Swarm.Attempt

	f := &flow{
		svc:         s,
		session:     session,
		target:      target,
		slug:        target.Slug(),
		attempt:     attempt,
		applyHints:  state.ApplyHints(),
		submitHints: state.SubmitHints(),
		markers:     state.SuccessMarkers(),
		outcome:     models.NewOutcome(target, attempt),
		logger:      s.logger.WithCorrelationId(target.Slug()),
	}

	ttlCtx, cancel := context.WithTimeout(ctx, s.config.Swarm.SessionTTL)
	err := f.execute(ttlCtx)
	cancel()

	switch {
	case err == nil:
		// Classified inside execute
	case errors.Is(ttlCtx.Err(), context.DeadlineExceeded):
		f.recoverTimeout(ctx)
	default:
		f.recoverException(ctx, err)
	}

	f.outcome.Touch()
	f.logger.Info().
		Str("status", string(f.outcome.Status)).
		Str("detail", f.outcome.Detail).
		Int("filled", f.outcome.Proof.FilledCount).
		Msg("Attempt finished")
	return f.outcome
}

// execute walks the flow phases. A nil return means the outcome was
// classified; an error means the flow died and recovery decides.
func (f *flow) execute(ctx context.Context) error {
	// Land on the career page and screen for hard blockers
	f.phase(ctx, "bootstrap")
	if err := f.session.Navigate(ctx, f.target.URL); err != nil {
		return err
	}
	f.session.WaitSettle(ctx, int(f.svc.config.Browser.SettleDelay.Milliseconds()))
	f.reinject(ctx)

	if f.evalBool(ctx, "detectDeadDomain") {
		return f.block(ctx, models.BlockedDetail(models.BlockDeadDomain))
	}
	captcha := f.evalBool(ctx, "detectCaptcha")
	sms := f.evalBool(ctx, "detectSmsBlock")
	if captcha || sms {
		return f.block(ctx, models.GateDetail(captcha, sms))
	}

	f.clickHints(ctx, models.CookieHints)
	if err := ctx.Err(); err != nil {
		return err
	}

	// Reach the application form
	f.phase(ctx, "entry")
	if hit := f.evalString(ctx, "findAndClickJobLink", models.JobKeywords); hit != "" {
		f.logger.Info().Str("link", hit).Msg("Opened job listing")
	} else {
		f.clickHints(ctx, models.NavHints)
	}
	f.afterNav(ctx)
	f.followPopup(ctx)
	f.enterApplication(ctx)

	f.siteEntryOverrides(ctx)
	f.portalPrep(ctx)

	if f.evalBool(ctx, "detectLoginBlock") {
		return f.block(ctx, models.BlockedDetail(models.BlockLoginRequired))
	}

	// Fill and submit, repeating for multi-page forms
	cycles := f.svc.config.Swarm.FillCycles
	if cycles < 1 {
		cycles = 1
	}
	for cycle := 1; cycle <= cycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.phase(ctx, fmt.Sprintf("fill_cycle_%d", cycle))

		if f.evalBool(ctx, "detectCaptcha") {
			return f.block(ctx, models.BlockedDetail(models.BlockCaptchaOnForm))
		}

		f.fillPass(ctx)
		f.uploadResume(ctx)
		f.session.WaitSettle(ctx, int(f.svc.config.Browser.RefillDelay.Milliseconds()))
		f.fillPass(ctx)

		f.siteFillOverrides(ctx)
		f.svc.matcher.ClearHoneypots(ctx, f.session)
		f.probeFormIfSPA(ctx)

		f.submitForm(ctx)

		conf, proof := f.svc.confirm.Check(ctx, f.session, f.slug, f.attempt, f.markers)
		if conf.Confirmed {
			f.classify(models.StatusComplete, models.DetailConfirmed, proof)
			return nil
		}

		// Multi-page forms need another apply push before the next cycle
		f.clickHints(ctx, f.applyHints)
		f.session.WaitSettle(ctx, reapplySettleMs)
		f.reinject(ctx)
	}

	// Final verdict, with a diagnostic source capture either way
	f.phase(ctx, "final_check")
	conf, proof := f.svc.confirm.Check(ctx, f.session, f.slug, f.attempt, f.markers)
	f.svc.confirm.CaptureDiagnostic(ctx, f.session, f.slug, f.attempt)
	if conf.Confirmed {
		f.classify(models.StatusComplete, models.DetailConfirmed, proof)
	} else {
		f.classify(models.StatusIncomplete, models.DetailNoConfirmation, proof)
	}
	return nil
}

// enterApplication pushes from a job detail page into the application
// form, preferring a recognized ATS apply control over generic hints.
func (f *flow) enterApplication(ctx context.Context) {
	if control := f.evalString(ctx, "clickApplyATS"); control != "" {
		f.logger.Info().Str("control", control).Msg("ATS apply control clicked")
	} else if hint := f.clickHints(ctx, f.applyHints); hint != "" {
		f.logger.Info().Str("hint", hint).Msg("Apply hint clicked")
	}
	f.afterNav(ctx)
	f.followPopup(ctx)
}

// fillPass runs one fill plus EEO round, keeping the best counts seen.
// Counts only ever go up; a later pass on a changed page reporting fewer
// fields does not erase evidence of the earlier fill.
func (f *flow) fillPass(ctx context.Context) {
	filled := f.svc.matcher.FillAll(ctx, f.session)
	eeo := f.svc.matcher.ApplyEEO(ctx, f.session)
	if filled > f.maxFilled {
		f.maxFilled = filled
	}
	if eeo > f.maxEEO {
		f.maxEEO = eeo
	}
	f.logger.Debug().Int("filled", filled).Int("eeo", eeo).Msg("Fill pass")
}

// uploadResume drops the resume into every file input on the page.
func (f *flow) uploadResume(ctx context.Context) {
	count, err := f.session.UploadResume(ctx, f.svc.config.Resume.Path)
	if err != nil {
		f.logger.Debug().Err(err).Msg("Resume upload failed")
		return
	}
	if count > f.maxUploads {
		f.maxUploads = count
	}
	if count > 0 {
		f.logger.Info().Int("inputs", count).Msg("Resume attached")
	}
}

// probeFormIfSPA logs what the form actually holds before submit. React
// boards keep field state off the DOM, so a fill that looked complete
// can still be empty where it counts.
func (f *flow) probeFormIfSPA(ctx context.Context) {
	if !strings.Contains(f.currentURL(ctx), "bamboohr") {
		return
	}
	var probe map[string]interface{}
	if err := f.session.Eval(ctx, browser.HelperCall("probeFormState", "{}"), &probe); err != nil {
		f.logger.Debug().Err(err).Msg("Form probe failed")
		return
	}
	f.logger.Debug().Interface("form", probe).Msg("Form state before submit")
}

// block classifies the attempt as externally blocked and captures the
// obstacle screenshot.
func (f *flow) block(ctx context.Context, detail string) error {
	proof := f.svc.confirm.CaptureBlocked(ctx, f.session, f.slug, f.attempt)
	f.classify(models.StatusBlocked, detail, proof)
	f.logger.Warn().Str("detail", detail).Msg("Attempt blocked")
	return nil
}

// classify records the terminal status with the evidence bundle.
func (f *flow) classify(status models.AttemptStatus, detail string, proof models.Proof) {
	f.attachCounters(&proof)
	f.outcome.Status = status
	f.outcome.Detail = detail
	f.outcome.Proof = proof
}

func (f *flow) attachCounters(proof *models.Proof) {
	proof.FilledCount = f.maxFilled
	proof.EEOActions = f.maxEEO
	proof.ResumeUploads = f.maxUploads
}

// recoverTimeout handles a TTL expiry. Slow ATS backends often finish
// the redirect to their thank-you page right as the budget runs out, so
// the page gets one more look before the attempt is written off.
func (f *flow) recoverTimeout(parent context.Context) {
	f.logger.Warn().Msg("Session TTL exhausted, checking for a late confirmation")
	ctx, cancel := context.WithTimeout(parent, recoveryGrace)
	defer cancel()

	f.reinject(ctx)
	conf, proof := f.svc.confirm.Check(ctx, f.session, f.slug, f.attempt, f.markers)
	f.attachCounters(&proof)
	f.outcome.Proof = proof
	if conf.Confirmed {
		f.outcome.Status = models.StatusComplete
		f.outcome.Detail = models.DetailTimeoutConfirmed
		return
	}
	f.outcome.Status = models.StatusIncomplete
	f.outcome.Detail = models.TimeoutDetail(int(f.svc.config.Swarm.SessionTTL.Seconds()))
}

// recoverException handles a flow that died on an error. A destroyed JS
// context usually means the page navigated mid-call, possibly onto the
// confirmation page itself.
func (f *flow) recoverException(parent context.Context, cause error) {
	f.logger.Warn().Err(cause).Msg("Flow error, checking whether a navigation landed on confirmation")
	ctx, cancel := context.WithTimeout(parent, recoveryGrace)
	defer cancel()

	if navigationTornDown(cause) {
		f.session.WaitSettle(ctx, navErrorWaitMs)
	}
	f.reinject(ctx)
	conf, proof := f.svc.confirm.Check(ctx, f.session, f.slug, f.attempt, f.markers)
	f.attachCounters(&proof)
	f.outcome.Proof = proof
	if conf.Confirmed {
		f.outcome.Status = models.StatusComplete
		f.outcome.Detail = models.DetailPostNavConfirmed
		return
	}
	f.outcome.Status = models.StatusIncomplete
	f.outcome.Detail = models.ExceptionDetail("FlowError", cause)
}

// navigationTornDown reports whether an error looks like a mid-flight
// page navigation, which destroys the JS context the flow was driving.
func navigationTornDown(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context was destroyed") ||
		strings.Contains(msg, "cannot find context") ||
		strings.Contains(msg, "navigation")
}

// ---------------------------------------------------------------------
// Session helpers
// ---------------------------------------------------------------------

// afterNav lets a click-triggered navigation settle and restores the
// in-page helpers, which a document swap wipes out.
func (f *flow) afterNav(ctx context.Context) {
	f.session.WaitSettle(ctx, afterNavSettleMs)
	f.reinject(ctx)
}

// followPopup switches the flow onto a popup window when the last click
// opened one. ATS portals routinely open the application in a new tab.
func (f *flow) followPopup(ctx context.Context) {
	adopted, err := f.session.AdoptPopup(ctx)
	if err != nil {
		f.logger.Debug().Err(err).Msg("Popup adoption failed")
		return
	}
	if adopted {
		url, _ := f.session.CurrentURL(ctx)
		f.logger.Info().Str("url", url).Msg("Following popup window")
	}
}

func (f *flow) reinject(ctx context.Context) {
	if err := f.session.Reinject(ctx); err != nil {
		f.logger.Debug().Err(err).Msg("Helper reinject failed")
	}
}

// clickHints asks the page to click the first control whose text matches
// a hint. Returns the matched hint, or "" when nothing matched.
func (f *flow) clickHints(ctx context.Context, hints []string) string {
	return f.evalString(ctx, "clickByHints", hints)
}

// evalBool runs a boolean page helper, treating errors as false.
func (f *flow) evalBool(ctx context.Context, fn string, args ...interface{}) bool {
	var out bool
	if err := f.session.Eval(ctx, browser.HelperCall(fn, "false", args...), &out); err != nil {
		f.logger.Debug().Err(err).Str("fn", fn).Msg("Detector eval failed")
		return false
	}
	return out
}

// evalString runs a string-returning page helper, treating errors as "".
func (f *flow) evalString(ctx context.Context, fn string, args ...interface{}) string {
	var out string
	if err := f.session.Eval(ctx, browser.HelperCall(fn, "''", args...), &out); err != nil {
		f.logger.Debug().Err(err).Str("fn", fn).Msg("Helper eval failed")
		return ""
	}
	return out
}

func (f *flow) currentURL(ctx context.Context) string {
	url, err := f.session.CurrentURL(ctx)
	if err != nil {
		f.logger.Debug().Err(err).Msg("URL read failed")
		return ""
	}
	return strings.ToLower(url)
}

// phase logs and publishes a flow phase transition.
func (f *flow) phase(ctx context.Context, name string) {
	f.logger.Info().Str("phase", name).Msg("Phase started")
	if f.svc.events == nil {
		return
	}
	event := interfaces.Event{
		Type: interfaces.EventPhaseChanged,
		Payload: models.PhaseUpdate{
			Company: f.target.Company,
			Phase:   name,
			Attempt: f.attempt,
		},
	}
	if err := f.svc.events.Publish(ctx, event); err != nil {
		f.logger.Debug().Err(err).Msg("Phase event publish failed")
	}
}
