package navigator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/services/browser"
	"github.com/ternarybob/peto/internal/services/browser/browsertest"
)

func TestPortalPrepAdvancesOneStepOnly(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://portal.example.com/apply")
	f := newTestFlow(svc, session)

	f.portalPrep(context.Background())

	// Five modal dismissals, five manual-entry pushes, one step advance
	require.Len(t, session.XPathClicks, 11)
	last := session.XPathClicks[len(session.XPathClicks)-1]
	assert.Contains(t, last, "'NEXT'")
	for _, expr := range session.XPathClicks {
		assert.NotContains(t, expr, "'Proceed'")
	}
}

func TestManualEntryRadioGetsRealClick(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://portal.example.com/apply")
	session.EvalFn = func(js string, out interface{}) error {
		if s, ok := out.(*string); ok && strings.Contains(js, "manual-entry-radio") {
			*s = "manual-entry-radio"
		}
		return nil
	}
	f := newTestFlow(svc, session)

	f.portalPrep(context.Background())

	assert.Contains(t, session.Clicks, "#manual-entry-radio")
}

func TestTrustedFillTypesRegistrationFields(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://acme.bamboohr.com/careers/42")
	f := newTestFlow(svc, session)

	f.bambooTrustedFill(context.Background())

	assert.Equal(t, "Elijah", session.Typed[`input[name="firstName"]`])
	assert.Equal(t, "Wallis", session.Typed[`input[name="lastName"]`])
	assert.Equal(t, "elijahcwallis@gmail.com", session.Typed[`input[name="email"]`])
	assert.Equal(t, "985-991-4360", session.Typed[`input[name="phone"]`])
	assert.Equal(t, "03/10/2026", session.Typed[`input[name="dateAvailable"]`])
	assert.Equal(t, "Online Job Board", session.Typed[`input[name="referredBy"]`])
	// Label and textarea lookups found nothing on the canned page
	assert.Len(t, session.Typed, 10)
	assert.Equal(t, 10, f.maxFilled)
}

func TestTrustedFillUsesLabelResolution(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://acme.bamboohr.com/careers/42")
	session.EvalFn = func(js string, out interface{}) error {
		if s, ok := out.(*string); ok && strings.Contains(js, "labeled-") &&
			strings.Contains(js, `("First Name")`) {
			*s = "fld-first"
		}
		return nil
	}
	f := newTestFlow(svc, session)

	f.bambooTrustedFill(context.Background())

	assert.Equal(t, "Elijah", session.Typed["#fld-first"])
	assert.Len(t, session.Typed, 11)
}

func TestFabricPlanFollowsProfile(t *testing.T) {
	svc, _ := newTestService(t)
	f := newTestFlow(svc, browsertest.NewFakeSession("https://acme.bamboohr.com/careers/42"))

	plan := f.fabricPlan()

	require.Len(t, plan, 4)
	assert.Equal(t, "state", plan[0].field)
	assert.Equal(t, []string{"Texas", "TX"}, plan[0].values)
	assert.Equal(t, "ethnicity", plan[2].field)
	assert.Equal(t, []string{"Black or African American", "Black"}, plan[2].values)
	assert.Equal(t, "disability", plan[3].field)
}

func TestFabricMissEscalatesToHiddenSelect(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://acme.bamboohr.com/careers/42")
	var forced []string
	session.EvalFn = func(js string, out interface{}) error {
		b, ok := out.(*bool)
		if !ok {
			return nil
		}
		switch {
		case strings.Contains(js, "fab-SelectToggle"):
			*b = true
		case strings.Contains(js, "fab-MenuOption"):
			*b = false
		case strings.Contains(js, "HTMLSelectElement"):
			forced = append(forced, js)
			*b = true
		}
		return nil
	}
	f := newTestFlow(svc, session)

	f.bambooFabricSelects(context.Background())

	// Every menu opened, no option matched: escape then force, per field
	require.Len(t, session.KeysPressed, 4)
	for _, key := range session.KeysPressed {
		assert.Equal(t, browser.KeyEscape, key)
	}
	require.Len(t, forced, 4)
	assert.Contains(t, forced[0], `("state", "texas")`)
	assert.Contains(t, forced[3], `("disability", "texas")`)
	assert.Contains(t, session.Settles, fabricMenuWaitMs)
}

func TestFabricPickStopsEscalation(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://acme.bamboohr.com/careers/42")
	session.EvalFn = func(js string, out interface{}) error {
		b, ok := out.(*bool)
		if !ok {
			return nil
		}
		switch {
		case strings.Contains(js, "fab-SelectToggle"):
			*b = true
		case strings.Contains(js, `("texas")`):
			*b = true
		}
		return nil
	}
	f := newTestFlow(svc, session)

	f.bambooFabricSelects(context.Background())

	// State resolved from the menu; the other three fields escalated
	assert.Len(t, session.KeysPressed, 3)
}

func TestRegistrationGatePushesThroughLogin(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://workforcenow.adp.com/jobs/apply/posting.html")
	f := newTestFlow(svc, session)

	f.siteFillOverrides(context.Background())

	assert.Equal(t, "Elijah", session.Typed[`input[name="guestFirstName"]`])
	assert.Equal(t, "Wallis", session.Typed[`input[name="guestLastName"]`])
	assert.Contains(t, session.Clicks, "#recruitment_login_recaptcha")
	// First control that clicks wins; the fallback is never touched
	assert.NotContains(t, session.Clicks, "#recruitment_login_submit")
	assert.Equal(t, 1, session.Reinjects)
	// Not a recognized multi-step host, so no advance clicks
	assert.Empty(t, session.XPathClicks)
}

func TestMultiStepAdvanceStopsAfterFirstControl(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://acme.ourcareerpages.com/jobapp/4711")
	f := newTestFlow(svc, session)

	f.multiStepAdvance(context.Background())

	// One advance click, then the three error dismissals
	require.Len(t, session.XPathClicks, 4)
	assert.Contains(t, session.XPathClicks[0], "'Continue'")
	assert.Contains(t, session.XPathClicks[1], "'OK'")
	assert.Equal(t, 1, session.Reinjects)
	assert.Contains(t, session.Settles, afterNavSettleMs)
}

func TestMultiStepAdvanceSkipsUnrecognizedHosts(t *testing.T) {
	svc, _ := newTestService(t)
	session := browsertest.NewFakeSession("https://jobs.example.com/apply")
	f := newTestFlow(svc, session)

	f.multiStepAdvance(context.Background())

	assert.Empty(t, session.XPathClicks)
}
