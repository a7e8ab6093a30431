// -----------------------------------------------------------------------
// Site overrides - Per-site click and fill strategies
//
// The generic hint pass handles most career pages. The strategies here
// cover the holdouts: styled anchors the text matcher cannot see, SPA
// web components that only answer real clicks, and React forms that
// discard programmatic value writes.
// -----------------------------------------------------------------------

package navigator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/browser"
)

const (
	spaRenderWaitMs  = 3000
	fabricMenuWaitMs = 1500

	embeddedNavTimeout = 15 * time.Second
)

// siteEntryOverrides applies per-site strategies for entry controls the
// generic pass cannot operate. Each check re-reads the URL because an
// earlier override may already have moved the session.
func (f *flow) siteEntryOverrides(ctx context.Context) {
	if strings.Contains(f.currentURL(ctx), "callanmarine") {
		f.clickStyledApply(ctx)
	}
	if strings.Contains(f.currentURL(ctx), "adp.com") {
		f.adpEntry(ctx)
	}
	if strings.Contains(f.currentURL(ctx), "vikingdredging") {
		f.clickEmploymentLink(ctx)
	}
	if strings.Contains(f.currentURL(ctx), "morantug") {
		f.followEmbeddedATSLink(ctx)
	}
}

// clickStyledApply clicks oval "APPLY NOW" anchors rendered as styled
// multi-line text, which defeats the in-page text matcher.
func (f *flow) clickStyledApply(ctx context.Context) {
	expr := "//a[contains(., 'APPLY')] | //a[contains(., 'Apply Now')]"
	if err := f.session.ClickXPath(ctx, expr); err != nil {
		return
	}
	f.afterNav(ctx)
	f.followPopup(ctx)
}

// clickEmploymentLink clicks the employment-opportunities banner link,
// covering the site's real "EMPLYMENT" typo.
func (f *flow) clickEmploymentLink(ctx context.Context) {
	expr := "//a[contains(., 'EMPLYMENT')] | //a[contains(., 'EMPLOYMENT')] | //a[contains(., 'VIEW OUR')]"
	if err := f.session.ClickXPath(ctx, expr); err != nil {
		return
	}
	f.afterNav(ctx)
	f.followPopup(ctx)
}

// followEmbeddedATSLink jumps straight to a hosted ATS when the career
// page only embeds its link in dynamic content.
func (f *flow) followEmbeddedATSLink(ctx context.Context) {
	f.session.WaitSettle(ctx, afterNavSettleMs)
	const linkJS = `(() => {
  for (const a of document.querySelectorAll('a')) {
    if (a.href && (a.href.includes('saashr') || a.href.includes('secure4'))) return a.href;
  }
  return '';
})()`
	var href string
	if err := f.session.Eval(ctx, linkJS, &href); err != nil || href == "" {
		return
	}

	navCtx, cancel := context.WithTimeout(ctx, embeddedNavTimeout)
	defer cancel()
	if err := f.session.Navigate(navCtx, href); err != nil {
		f.logger.Debug().Err(err).Str("url", href).Msg("Hosted ATS navigation failed")
		return
	}
	f.session.WaitSettle(ctx, afterNavSettleMs)
	f.reinject(ctx)
	f.logger.Info().Str("url", href).Msg("Followed hosted ATS link")
}

// adpEntry drives the ADP career center SPA. Its listings and apply
// controls are sdf-* web components that only respond to real clicks.
func (f *flow) adpEntry(ctx context.Context) {
	f.session.WaitSettle(ctx, spaRenderWaitMs)
	f.reinject(ctx)

	const jobJS = `(() => {
  const keywords = ['oiler', 'deckhand', 'dredge', 'crew', 'marine'];
  for (const el of document.querySelectorAll('sdf-link')) {
    const txt = (el.textContent || '').trim().toLowerCase();
    for (const kw of keywords) {
      if (txt.includes(kw)) return el.id || '';
    }
  }
  return '';
})()`
	var jobID string
	if err := f.session.Eval(ctx, jobJS, &jobID); err != nil || jobID == "" {
		f.logger.Debug().Str("url", f.currentURL(ctx)).Msg("No matching listing in career center")
		return
	}
	if err := f.session.Click(ctx, "#"+jobID); err != nil {
		f.logger.Debug().Err(err).Str("id", jobID).Msg("Listing click failed")
		return
	}
	f.logger.Info().Str("id", jobID).Msg("Opened career center listing")
	f.session.WaitSettle(ctx, spaRenderWaitMs)
	f.reinject(ctx)

	f.clickCareerCenterApply(ctx)
	f.session.WaitSettle(ctx, spaRenderWaitMs)
	f.afterNav(ctx)
	f.followPopup(ctx)
	f.reinject(ctx)
}

// clickCareerCenterApply finds the apply control on a job detail page by
// id when possible, falling back to text clicks on the component tags.
func (f *flow) clickCareerCenterApply(ctx context.Context) {
	// 'apply' alone also matches affirmative-action policy links
	const applyJS = `(() => {
  for (const el of document.querySelectorAll('sdf-link, sdf-button, a, button, [role="button"]')) {
    const txt = (el.textContent || '').trim().toLowerCase();
    if (txt.includes('apply') && !txt.includes('affirmative') && !txt.includes('action')) {
      return el.id || el.tagName + ':' + txt;
    }
  }
  return '';
})()`
	var applyID string
	if err := f.session.Eval(ctx, applyJS, &applyID); err != nil {
		f.logger.Debug().Err(err).Msg("Apply control lookup failed")
		return
	}
	if applyID != "" && !strings.Contains(applyID, ":") {
		if err := f.session.Click(ctx, "#"+applyID); err != nil {
			f.logger.Debug().Err(err).Str("id", applyID).Msg("Apply control click failed")
		}
		return
	}
	for _, text := range []string{"Apply", "APPLY"} {
		expr := fmt.Sprintf(
			"//sdf-button[contains(., '%s')] | //button[contains(., '%s')] | //a[contains(., '%s')]",
			text, text, text)
		if err := f.session.ClickXPath(ctx, expr); err == nil {
			return
		}
	}
}

// portalPrep clears the obstacles ATS portals put between the apply
// click and the actual form: parse-error modals, resume-parsing versus
// manual-entry choices, and step-one gates.
func (f *flow) portalPrep(ctx context.Context) {
	for _, text := range models.ModalDismissTexts {
		if err := f.session.ClickXPath(ctx, fmt.Sprintf("//button[contains(., '%s')]", text)); err == nil {
			f.session.WaitSettle(ctx, 500)
		}
	}
	for _, text := range models.ManualEntryTexts {
		expr := fmt.Sprintf(
			"//button[contains(., '%s')] | //a[contains(., '%s')] | //label[contains(., '%s')] | //input[@value='%s']",
			text, text, text, text)
		if err := f.session.ClickXPath(ctx, expr); err == nil {
			f.session.WaitSettle(ctx, 1000)
		}
	}
	f.chooseManualRadio(ctx)
	for _, text := range models.StepAdvanceTexts {
		expr := fmt.Sprintf(
			"//button[contains(., '%s')] | //a[contains(., '%s')] | //input[@value='%s']",
			text, text, text)
		if err := f.session.ClickXPath(ctx, expr); err == nil {
			f.session.WaitSettle(ctx, 1000)
			break
		}
	}
}

// chooseManualRadio picks a "manual entry" radio when the portal offers
// resume parsing as the default path. Parsing stalls on file-format
// quirks; the manual form never does.
func (f *flow) chooseManualRadio(ctx context.Context) {
	const radioJS = `(() => {
  for (const r of document.querySelectorAll('input[type="radio"]')) {
    const holder = r.closest('label') || r.parentElement;
    const txt = holder ? (holder.innerText || '') : '';
    if (txt.toLowerCase().includes('manual')) {
      if (!r.id) r.id = 'manual-entry-radio';
      return r.id;
    }
  }
  return '';
})()`
	var id string
	if err := f.session.Eval(ctx, radioJS, &id); err != nil || id == "" {
		return
	}
	if err := f.session.Click(ctx, "#"+id); err != nil {
		f.logger.Debug().Err(err).Msg("Manual entry radio click failed")
	}
}

// siteFillOverrides runs the per-site fill strategies for portals whose
// forms reject the generic in-page filler.
func (f *flow) siteFillOverrides(ctx context.Context) {
	if strings.Contains(f.currentURL(ctx), "bamboohr") {
		f.bambooTrustedFill(ctx)
		f.bambooFabricSelects(ctx)
	}
	f.session.WaitSettle(ctx, interFillSettleMs)
	if strings.Contains(f.currentURL(ctx), "adp.com") {
		f.adpFill(ctx)
	}
	f.multiStepAdvance(ctx)
}

// bambooTrustedFill retypes core fields through the keyboard. The React
// form drops programmatic value writes that arrive without trusted
// input events.
func (f *flow) bambooTrustedFill(ctx context.Context) {
	p := f.svc.profile
	filled := 0

	named := []struct{ sel, val string }{
		{`input[name="firstName"]`, p.FirstName},
		{`input[name="lastName"]`, p.LastName},
		{`input[name="email"]`, p.Email},
		{`input[name="phone"]`, p.Phone},
		{`input[name="streetAddress"]`, p.AddressLine1},
		{`input[name="city"]`, p.City},
		{`input[name="zip"]`, p.Zip},
		{`input[name="dateAvailable"]`, p.DateAvailable},
		{`input[name="desiredPay"]`, p.DesiredPay},
		{`input[name="referredBy"]`, p.ReferredBy},
	}
	for _, field := range named {
		if field.val == "" {
			continue
		}
		if err := f.session.Type(ctx, field.sel, field.val); err == nil {
			filled++
		}
	}

	labeled := []struct{ label, val string }{
		{"First Name", p.FirstName},
		{"Last Name", p.LastName},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"Street Address", p.AddressLine1},
		{"City", p.City},
		{"Zip", p.Zip},
		{"Date Available", p.DateAvailable},
		{"Desired Pay", p.DesiredPay},
		{"Who Referred You", p.ReferredBy},
	}
	for _, field := range labeled {
		if field.val == "" {
			continue
		}
		if sel := f.resolveLabeledControl(ctx, field.label); sel != "" {
			if err := f.session.Type(ctx, sel, field.val); err == nil {
				filled++
			}
		}
	}

	areas := []struct{ keyword, val string }{
		{"career", p.CareerGoals},
		{"experience", p.Pitch},
		{"environment", p.WorkEnvironment},
	}
	for _, area := range areas {
		if area.val == "" {
			continue
		}
		if sel := f.resolveTextarea(ctx, area.keyword); sel != "" {
			if err := f.session.Type(ctx, sel, area.val); err == nil {
				filled++
			}
		}
	}

	if filled > 0 {
		if filled > f.maxFilled {
			f.maxFilled = filled
		}
		f.logger.Info().Int("fields", filled).Msg("Trusted fill applied")
	}
}

type fabricSelect struct {
	field  string
	values []string
}

// fabricPlan lists the Fabric dropdowns to resolve with the option texts
// tried in order. State and ethnicity follow the profile; the rest
// decline to answer.
func (f *flow) fabricPlan() []fabricSelect {
	p := f.svc.profile

	race := []string{p.EEO.Race}
	if first, _, ok := strings.Cut(p.EEO.Race, " "); ok {
		race = append(race, first)
	}

	return []fabricSelect{
		{"state", []string{p.StateFull(), p.State}},
		{"gender", []string{"Decline to answer", "Decline to Answer", "Decline"}},
		{"ethnicity", race},
		{"disability", []string{
			"Decline to answer", "Decline to Answer", "Decline",
			"I do not wish to answer", "No, I Do Not Have a Disability",
			"No", "None",
		}},
	}
}

// bambooFabricSelects resolves the Fabric UI dropdowns one at a time.
// Opening two menus at once leaves both detached from their toggles.
func (f *flow) bambooFabricSelects(ctx context.Context) {
	for _, sel := range f.fabricPlan() {
		if !f.openFabricMenu(ctx, sel.field) {
			continue
		}
		f.session.WaitSettle(ctx, fabricMenuWaitMs)

		picked := false
		for _, value := range sel.values {
			if f.pickFabricOption(ctx, value) {
				f.session.WaitSettle(ctx, 500)
				picked = true
				break
			}
		}
		if !picked {
			if err := f.session.PressKey(ctx, browser.KeyEscape); err != nil {
				f.logger.Debug().Err(err).Msg("Menu escape failed")
			}
			f.session.WaitSettle(ctx, 300)
			f.forceHiddenSelect(ctx, sel.field)
		}
	}
}

func (f *flow) openFabricMenu(ctx context.Context, field string) bool {
	js := fmt.Sprintf(`(function(field) {
  for (const btn of document.querySelectorAll('button.fab-SelectToggle, button[data-menu-id]')) {
    const label = (btn.getAttribute('aria-label') || '').toLowerCase();
    if (label.includes(field) && label.includes('select')) {
      btn.scrollIntoView({block: 'center'});
      btn.click();
      return true;
    }
  }
  return false;
})(%s)`, jsArg(field))
	var opened bool
	if err := f.session.Eval(ctx, js, &opened); err != nil {
		return false
	}
	return opened
}

func (f *flow) pickFabricOption(ctx context.Context, value string) bool {
	js := fmt.Sprintf(`(function(want) {
  for (const item of document.querySelectorAll('.fab-MenuOption, .fab-MenuOption__content, [role="option"], [role="menuitem"]')) {
    const txt = (item.innerText || item.textContent || '').trim().toLowerCase();
    if (txt === want || txt.includes(want)) {
      item.click();
      return true;
    }
  }
  return false;
})(%s)`, jsArg(strings.ToLower(value)))
	var clicked bool
	if err := f.session.Eval(ctx, js, &clicked); err != nil {
		return false
	}
	return clicked
}

// forceHiddenSelect writes the backing <select> directly when the menu
// never produced a clickable option, firing change through the native
// setter so the framework notices.
func (f *flow) forceHiddenSelect(ctx context.Context, field string) {
	js := fmt.Sprintf(`(function(field, state) {
  const sel = document.querySelector('select[name="' + field + 'Id"], select[name="' + field + '"]');
  if (!sel || !sel.options) return false;
  for (let i = 0; i < sel.options.length; i++) {
    const txt = sel.options[i].text.toLowerCase();
    if (txt.includes('decline') || txt.includes('no') || txt === state) {
      sel.value = sel.options[i].value;
      sel.dispatchEvent(new Event('change', {bubbles: true}));
      const d = Object.getOwnPropertyDescriptor(HTMLSelectElement.prototype, 'value');
      if (d && d.set) {
        d.set.call(sel, sel.options[i].value);
        sel.dispatchEvent(new Event('change', {bubbles: true}));
      }
      return true;
    }
  }
  return false;
})(%s, %s)`, jsArg(field), jsArg(strings.ToLower(f.svc.profile.StateFull())))
	var forced bool
	if err := f.session.Eval(ctx, js, &forced); err == nil && forced {
		f.logger.Debug().Str("field", field).Msg("Hidden select value forced")
	}
}

// adpFill types the guest registration fields and pushes through the
// continue control.
func (f *flow) adpFill(ctx context.Context) {
	p := f.svc.profile
	filled := 0

	named := []struct{ sel, val string }{
		{`input[name="guestFirstName"]`, p.FirstName},
		{`input[name="guestLastName"]`, p.LastName},
		{`input[name="Email"], input[name="email"]`, p.Email},
		{`input[name="phone"]`, p.Phone},
	}
	for _, field := range named {
		if field.val == "" {
			continue
		}
		if err := f.session.Type(ctx, field.sel, field.val); err == nil {
			filled++
		}
	}

	labeled := []struct{ label, val string }{
		{"First Name", p.FirstName},
		{"Last Name", p.LastName},
		{"Email", p.Email},
		{"Mobile Number", p.Phone},
		{"Phone", p.Phone},
		{"Street Address", p.AddressLine1},
		{"City", p.City},
		{"Zip", p.Zip},
	}
	for _, field := range labeled {
		if field.val == "" {
			continue
		}
		if sel := f.resolveLabeledControl(ctx, field.label); sel != "" {
			if err := f.session.Type(ctx, sel, field.val); err == nil {
				filled++
			}
		}
	}

	if filled > 0 {
		if filled > f.maxFilled {
			f.maxFilled = filled
		}
		f.logger.Info().Int("fields", filled).Msg("Registration fields typed")
	}

	for _, id := range []string{"recruitment_login_recaptcha", "recruitment_login_submit"} {
		if err := f.session.Click(ctx, "#"+id); err != nil {
			continue
		}
		f.session.WaitSettle(ctx, spaRenderWaitMs)
		f.reinject(ctx)
		break
	}
}

// multiStepAdvance pushes a paged application onto its next step, then
// clears any validation dialog the step change raised.
func (f *flow) multiStepAdvance(ctx context.Context) {
	url := f.currentURL(ctx)
	if !strings.Contains(url, "ourcareerpages") &&
		!strings.Contains(url, "entertimeonline") &&
		!strings.Contains(url, "careers") {
		return
	}

	for _, text := range models.MultiStepAdvanceTexts {
		expr := fmt.Sprintf(
			"//button[contains(., '%s')] | //a[contains(., '%s')] | //input[@type='submit'][contains(@value, '%s')]",
			text, text, text)
		if err := f.session.ClickXPath(ctx, expr); err != nil {
			continue
		}
		f.session.WaitSettle(ctx, afterNavSettleMs)
		f.reinject(ctx)
		break
	}

	for _, text := range models.ErrorDismissTexts {
		if err := f.session.ClickXPath(ctx, fmt.Sprintf("//button[contains(., '%s')]", text)); err == nil {
			f.session.WaitSettle(ctx, 500)
		}
	}
}

// resolveLabeledControl finds the input a visible label points at and
// returns a selector for it, minting an id when the control has none.
func (f *flow) resolveLabeledControl(ctx context.Context, label string) string {
	js := fmt.Sprintf(`(function(want) {
  want = want.toLowerCase();
  for (const l of document.querySelectorAll('label')) {
    const txt = (l.innerText || '').trim().toLowerCase();
    if (!txt.includes(want)) continue;
    let control = l.htmlFor ? document.getElementById(l.htmlFor) : null;
    if (!control) control = l.querySelector('input, textarea');
    if (control) {
      if (!control.id) control.id = 'labeled-' + Math.random().toString(36).slice(2, 8);
      return control.id;
    }
  }
  for (const el of document.querySelectorAll('input[aria-label], textarea[aria-label]')) {
    if ((el.getAttribute('aria-label') || '').toLowerCase().includes(want)) {
      if (!el.id) el.id = 'labeled-' + Math.random().toString(36).slice(2, 8);
      return el.id;
    }
  }
  return '';
})(%s)`, jsArg(label))
	var id string
	if err := f.session.Eval(ctx, js, &id); err != nil || id == "" {
		return ""
	}
	return "#" + id
}

// resolveTextarea finds a textarea whose name or aria-label mentions the
// keyword.
func (f *flow) resolveTextarea(ctx context.Context, keyword string) string {
	js := fmt.Sprintf(`(function(kw) {
  for (const ta of document.querySelectorAll('textarea')) {
    const ident = ((ta.name || '') + ' ' + (ta.getAttribute('aria-label') || '')).toLowerCase();
    if (ident.includes(kw)) {
      if (!ta.id) ta.id = 'area-' + Math.random().toString(36).slice(2, 8);
      return ta.id;
    }
  }
  return '';
})(%s)`, jsArg(keyword))
	var id string
	if err := f.session.Eval(ctx, js, &id); err != nil || id == "" {
		return ""
	}
	return "#" + id
}

// jsArg renders a Go value as a JS literal argument.
func jsArg(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
