package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp/kb"
)

// KeyEscape closes stray menus and overlays without coupling callers to
// the keyboard layout package.
const KeyEscape = kb.Escape

// HelperCall builds a guarded invocation of a page-helper function. Arguments
// are JSON-encoded so callers can pass Go values directly; fallback is the
// JavaScript expression evaluated when the helper is not (yet) installed.
func HelperCall(fn string, fallback string, args ...interface{}) string {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			b = []byte("null")
		}
		encoded = append(encoded, string(b))
	}
	return fmt.Sprintf("window.__peto ? window.__peto.%s(%s) : %s", fn, strings.Join(encoded, ", "), fallback)
}

// helperScript is installed on every new document of a session. All functions
// that take word lists receive them as arguments; the page side holds no
// profile or hint data of its own.
const helperScript = `
(() => {
  if (window.__peto) return;

  const norm = (v) => String(v || '').toLowerCase().replace(/\s+/g, ' ').trim();
  const allFields = () => Array.from(document.querySelectorAll('input, textarea, select'));

  function desc(el) {
    const parts = [
      el.getAttribute('name'),
      el.getAttribute('id'),
      el.getAttribute('placeholder'),
      el.getAttribute('aria-label'),
      el.getAttribute('data-label'),
      el.getAttribute('autocomplete'),
    ];
    const lbl = el.closest('label');
    if (lbl) parts.push(lbl.innerText);
    if (el.id) {
      const ext = document.querySelector('label[for="' + el.id + '"]');
      if (ext) parts.push(ext.innerText);
    }
    const fs = el.closest('fieldset');
    if (fs) { const lg = fs.querySelector('legend'); if (lg) parts.push(lg.innerText); }
    return norm(parts.join(' '));
  }

  function setVal(el, value) {
    if (!el || value === undefined || value === null || value === '') return false;
    if (el.disabled || el.readOnly) return false;
    // Honeypot traps: focus-unreachable or aria-hidden fields stay untouched
    if (el.tabIndex === -1) return false;
    if (el.closest('[aria-hidden="true"]')) return false;
    const tag = (el.tagName || '').toLowerCase();
    const type = norm(el.getAttribute('type'));
    if (type === 'hidden' || type === 'file') return false;

    if (tag === 'select') {
      const want = norm(value);
      const opts = Array.from(el.options || []);
      let hit = opts.find(o => norm(o.textContent) === want || norm(o.value) === want);
      if (!hit) hit = opts.find(o => norm(o.textContent).includes(want) || norm(o.value).includes(want));
      if (!hit) hit = opts.find(o => want.includes(norm(o.textContent)) || want.includes(norm(o.value)));
      if (!hit) return false;
      el.value = hit.value;
      el.dispatchEvent(new Event('change', { bubbles: true }));
      return true;
    }
    if (type === 'radio' || type === 'checkbox') return false;

    try {
      const proto = tag === 'textarea' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
      const setter = Object.getOwnPropertyDescriptor(proto, 'value');
      if (setter && setter.set) setter.set.call(el, String(value));
      else el.value = String(value);
    } catch(e) { el.value = String(value); }

    el.dispatchEvent(new Event('focus', { bubbles: true }));
    el.dispatchEvent(new Event('input', { bubbles: true }));
    el.dispatchEvent(new Event('change', { bubbles: true }));
    el.dispatchEvent(new Event('blur', { bubbles: true }));
    return true;
  }

  function clickChoice(qHints, oHints) {
    const nodes = Array.from(document.querySelectorAll("input[type='radio'],input[type='checkbox']"));
    for (const n of nodes) {
      const q = desc(n);
      if (!qHints.some(h => q.includes(norm(h)))) continue;
      const lbl = n.closest('label') || (n.id ? document.querySelector('label[for="' + n.id + '"]') : null);
      const txt = norm((lbl ? lbl.innerText : '') + ' ' + (n.value || ''));
      if (oHints.some(h => txt.includes(norm(h)))) {
        n.click();
        n.dispatchEvent(new Event('change', { bubbles: true }));
        return true;
      }
    }
    return false;
  }

  // fillProfile matches every field's description against the alias table and
  // writes the paired profile value. opts: {aliases, yes, no, states}.
  function fillProfile(p, opts) {
    const map = (opts && opts.aliases) || {};
    let filled = 0;
    const all = allFields();
    for (const [k, v] of Object.entries(p || {})) {
      const aliases = map[k] || [k];
      for (const el of all) {
        const d = desc(el);
        if (!aliases.some(a => d.includes(norm(a)))) continue;
        if (setVal(el, v)) filled += 1;
      }
    }

    // Yes/No screening radios (work authorization, relocation, age)
    const yesQuestions = (opts && opts.yes) || [];
    const noQuestions = (opts && opts.no) || [];
    const radios = Array.from(document.querySelectorAll("input[type='radio']"));
    for (const r of radios) {
      const q = desc(r);
      const labelEl = r.closest('label') || (r.id ? document.querySelector('label[for="' + r.id + '"]') : null);
      const rText = ((labelEl ? labelEl.innerText : '') + ' ' + (r.value || '')).toLowerCase().trim();
      if (yesQuestions.some(yq => q.includes(yq)) && (rText.includes('yes') || r.value.toLowerCase() === 'yes')) {
        r.click(); r.dispatchEvent(new Event('change', { bubbles: true })); filled++;
      }
      if (noQuestions.some(nq => q.includes(nq)) && (rText.includes('no') || r.value.toLowerCase() === 'no')) {
        r.click(); r.dispatchEvent(new Event('change', { bubbles: true })); filled++;
      }
    }

    // State dropdowns get several spellings tried in order
    const stateValues = (opts && opts.states) || [];
    for (const s of Array.from(document.querySelectorAll('select'))) {
      const d = desc(s);
      if (!(d.includes('state') || d.includes('province') || d.includes('region'))) continue;
      if (s.value && s.value !== '' && s.selectedIndex > 0) continue;
      const sOpts = Array.from(s.options || []);
      for (const tryVal of stateValues) {
        const hit = sOpts.find(o =>
          norm(o.textContent) === norm(tryVal) ||
          norm(o.value) === norm(tryVal) ||
          norm(o.textContent).includes(norm(tryVal))
        );
        if (hit && hit.value !== '') {
          s.value = hit.value;
          s.dispatchEvent(new Event('change', { bubbles: true }));
          filled += 1;
          break;
        }
      }
    }

    return filled;
  }

  function applyEeo(e) {
    let c = 0;
    for (const s of Array.from(document.querySelectorAll('select'))) {
      const d = desc(s);
      if ((d.includes('race') || d.includes('ethnicity')) && setVal(s, e.race)) c++;
      if ((d.includes('veteran') || d.includes('protected veteran')) && setVal(s, e.veteran)) c++;
      if (d.includes('disability') && setVal(s, e.disability)) c++;
    }
    if (clickChoice(['race','ethnicity'], [e.race])) c++;
    if (clickChoice(['veteran','protected veteran'], ['No','Decline','I am not', e.veteran])) c++;
    if (clickChoice(['disability'], ['No','I do not wish','I don\'t wish', e.disability])) c++;
    return c;
  }

  function clickByHints(hints) {
    const hs = (hints || []).map(norm).filter(Boolean);
    // Styled containers that act as buttons count too
    const sels = "button, a, input[type='submit'], input[type='button'], [role='button'], [class*='btn'], [class*='button'], [class*='cta'], [onclick]";
    const els = Array.from(document.querySelectorAll(sels));
    for (const el of els) {
      const txt = norm(el.innerText || el.value || el.getAttribute('aria-label') || el.getAttribute('title') || '');
      if (!txt || txt.length > 200) continue;
      if (hs.some(h => txt.includes(h))) {
        el.focus();
        el.click();
        el.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true }));
        if (el.type === 'submit' || txt.includes('submit')) {
          const form = el.closest('form');
          if (form && form.requestSubmit) { try { form.requestSubmit(el); } catch(e) {} }
        }
        return txt;
      }
    }
    return '';
  }

  function findAndClickJobLink(keywords) {
    const kw = (keywords || []).map(k => k.toLowerCase());
    const links = Array.from(document.querySelectorAll('a[href]'));
    // Pass 1: link text carries a job keyword
    for (const a of links) {
      const txt = norm(a.innerText || a.textContent || '');
      if (txt.length > 0 && txt.length < 200 && kw.some(k => txt.includes(k))) {
        a.click();
        return txt;
      }
    }
    // Pass 2: href shaped like a job posting
    for (const a of links) {
      const href = (a.href || '').toLowerCase();
      if (href.includes('/jobs/view') || href.includes('/careers/') || href.includes('/job/')) {
        const txt = norm(a.innerText || a.textContent || '');
        if (txt.length > 0 && txt.length < 200) {
          a.click();
          return txt;
        }
      }
    }
    return '';
  }

  function clickApplyATS() {
    const selectors = [
      // BambooHR
      '.BambooHR-ATS-board__apply-btn',
      'a[href*="applicationModal"]',
      'a[href*="apply"]',
      'button[class*="apply"]',
      // SuccessFactors
      'a[class*="apply"]',
      '[data-automation-id="applyButton"]',
      // Generic ATS patterns
      'button[id*="apply"]',
      'a[id*="apply"]',
      'input[value*="Apply" i]',
    ];
    for (const sel of selectors) {
      const el = document.querySelector(sel);
      if (el) {
        el.click();
        return sel;
      }
    }
    return '';
  }

  function detectCaptcha() {
    // Visible widgets only; invisible v3 badges do not block form entry
    const iframe = document.querySelector('iframe[src*="recaptcha"], iframe[src*="hcaptcha"], iframe[src*="challenges.cloudflare"], iframe[src*="captcha"]');
    if (iframe) return true;
    const widget = document.querySelector('[data-sitekey], .h-captcha[data-sitekey]');
    if (widget) return true;
    const challenge = document.querySelector('[class*="captcha"][class*="widget"]:not(button):not(sdf-button)');
    if (challenge && challenge.offsetHeight > 50) return true;
    return false;
  }

  function detectDeadDomain() {
    const u = window.location.href.toLowerCase();
    const b = norm(document.body ? document.body.innerText : '');
    return (
      ['hugedomains.com','godaddy.com/domainsearch','sedo.com','afternic.com','dan.com','parkingcrew'].some(d => u.includes(d)) ||
      /this domain (is|may be) for sale|buy this domain|domain name for sale|domain is available/i.test(b) ||
      /server error in.*application|runtime error|an application error occurred on the server/i.test(b)
    );
  }

  function detectLoginBlock() {
    const b = norm(document.body ? document.body.innerText : '');
    return /already have an account|please log in to continue|sign in to continue|create an account to apply/i.test(b);
  }

  function detectSmsBlock() {
    const b = norm(document.body ? document.body.innerText : '');
    return /enter.*verification.*code|verify.*phone.*number|text.*code.*sent|sms.*verification/i.test(b);
  }

  function getVisibleText() {
    const b = document.body || document.documentElement;
    return (b.innerText || b.textContent || '').toLowerCase();
  }

  // getOverlayText reads modals, alerts, and toasts whose text never lands in
  // the body flow
  function getOverlayText() {
    const sels = [
      '[role="dialog"]', '[role="alert"]', '[role="alertdialog"]',
      '.modal', '.overlay', '.toast', '.alert', '.success-message',
      '[class*="modal"]', '[class*="dialog"]', '[class*="toast"]',
      '[class*="success"]', '[class*="confirm"]', '[class*="thank"]',
    ];
    let found = [];
    for (const sel of sels) {
      for (const el of document.querySelectorAll(sel)) {
        const t = (el.innerText || el.textContent || '').trim();
        if (t) found.push(t.toLowerCase());
      }
    }
    return found.join(' ');
  }

  function getPageSource() {
    return document.documentElement ? document.documentElement.outerHTML : '';
  }

  function countInputs() {
    return allFields().filter(f => {
      const t = (f.getAttribute('type') || '').toLowerCase();
      return t !== 'hidden';
    }).length;
  }

  function clearHoneypots() {
    let cleared = 0;
    document.querySelectorAll('[aria-hidden="true"] input, input[tabindex="-1"]').forEach(inp => {
      if (inp.value) {
        const d = Object.getOwnPropertyDescriptor(HTMLInputElement.prototype, 'value');
        if (d && d.set) d.set.call(inp, '');
        else inp.value = '';
        inp.dispatchEvent(new Event('input', {bubbles: true}));
        inp.dispatchEvent(new Event('change', {bubbles: true}));
        cleared++;
      }
    });
    return cleared;
  }

  function submitFirstForm() {
    const form = document.getElementById('job-application-form') || document.querySelector('form');
    if (!form) return 'no_form_found';
    try { form.requestSubmit(); return 'requestSubmit_ok'; }
    catch(e) { return 'requestSubmit_err: ' + e.message; }
  }

  // probeFormState reports what the form actually holds, for diagnostics on
  // SPA boards that manage field state outside the DOM
  function probeFormState() {
    const form = document.getElementById('job-application-form') || document.querySelector('form');
    if (!form) return {error: 'no_form'};
    const inputs = Array.from(form.querySelectorAll('input, textarea, select'));
    const empty = [];
    const required = [];
    for (const inp of inputs) {
      const name = inp.name || inp.id || inp.getAttribute('aria-label') || inp.type;
      const val = inp.value || '';
      if (!val && inp.type !== 'hidden' && inp.type !== 'file') {
        empty.push(name);
      }
      if (inp.required || inp.getAttribute('aria-required') === 'true') {
        required.push(name + '=' + (val ? 'OK' : 'EMPTY'));
      }
    }
    const submitBtn = form.querySelector('button[type="submit"]');
    return {
      total: inputs.length,
      empty_count: empty.length,
      empty: empty.slice(0, 10),
      required: required.slice(0, 15),
      btn_disabled: submitBtn ? submitBtn.disabled : 'no_btn'
    };
  }

  function hookSubmitLog() {
    if (window.__petoSubmitLog) return true;
    window.__petoSubmitLog = [];
    const origFetch = window.fetch;
    window.fetch = function(...args) {
      window.__petoSubmitLog.push({type: 'fetch', url: String(args[0]).substring(0, 100), method: (args[1] && args[1].method) || 'GET'});
      return origFetch.apply(this, args);
    };
    const origXhrOpen = XMLHttpRequest.prototype.open;
    XMLHttpRequest.prototype.open = function(method, url) {
      window.__petoSubmitLog.push({type: 'xhr', url: String(url).substring(0, 100), method: method});
      return origXhrOpen.apply(this, arguments);
    };
    return true;
  }

  function readSubmitLog() {
    return JSON.stringify(window.__petoSubmitLog || []);
  }

  function collectVisibleErrors() {
    const errs = [];
    document.querySelectorAll('[class*="error"], [class*="Error"], [role="alert"]').forEach(el => {
      const txt = (el.innerText || '').trim();
      if (txt && txt.length < 200) errs.push(txt);
    });
    return errs.slice(0, 10);
  }

  window.__peto = {
    fillProfile, applyEeo, clickByHints, findAndClickJobLink, clickApplyATS,
    detectCaptcha, detectDeadDomain, detectSmsBlock, detectLoginBlock,
    getVisibleText, getOverlayText, getPageSource, countInputs,
    clearHoneypots, submitFirstForm, probeFormState, hookSubmitLog,
    readSubmitLog, collectVisibleErrors
  };
})();
`

// stealthScript hides the obvious automation fingerprints before site scripts
// run. Job boards rarely fingerprint aggressively but ATS vendors do.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {
	get: () => undefined,
	configurable: true
});

Object.defineProperty(navigator, 'plugins', {
	get: () => {
		const plugins = [
			{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
			{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
			{ name: 'Native Client', filename: 'internal-nacl-plugin' }
		];
		plugins.length = 3;
		return plugins;
	},
	configurable: true
});

Object.defineProperty(navigator, 'languages', {
	get: () => ['en-US', 'en'],
	configurable: true
});

if (!window.chrome) window.chrome = {};
window.chrome.runtime = { id: undefined };

if (window.navigator.permissions && window.navigator.permissions.query) {
	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications' ?
			Promise.resolve({ state: Notification.permission }) :
			originalQuery(parameters)
	);
}

if (window.WebGLRenderingContext) {
	const getParameter = WebGLRenderingContext.prototype.getParameter;
	WebGLRenderingContext.prototype.getParameter = function(parameter) {
		if (parameter === 37445) return 'Intel Inc.';
		if (parameter === 37446) return 'Intel Iris OpenGL Engine';
		return getParameter.call(this, parameter);
	};
}
`
