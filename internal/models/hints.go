// -----------------------------------------------------------------------
// Hint tables - Marker phrases, click hints, and field aliases
//
// These are data, not logic. The navigator and filler receive copies per
// session; self-healed extras are appended at run boundaries only.
// -----------------------------------------------------------------------

package models

// StrictTextMarkers are phrases that appear only on post-submit
// confirmation pages, never on pre-submit career pages. An application is
// reported complete only when one of these (or a URL marker) is present.
var StrictTextMarkers = []string{
	"thank you for applying",
	"thanks for applying",
	"your application has been submitted",
	"your application was submitted",
	"application was submitted successfully",
	"we have received your application",
	"we received your application",
	"application number",
	"application complete",
	"thank you for your application",
	"application was received",
	"application has been received",
	"your application was successfully submitted",
	"application submitted successfully",
	"your application has been received",
	"thank you for submitting",
	"thanks for submitting",
	"you have successfully applied",
	"application confirmation",
	"thank you for your interest in",
	"your submission has been received",
}

// StrictURLMarkers are URL substrings of confirmation/thank-you pages.
var StrictURLMarkers = []string{
	"thank-you",
	"thankyou",
	"application-submitted",
	"application-received",
	"application-complete",
	"apply-confirmation",
	"application-confirmation",
}

// CompatMarkers maps legacy umbrella labels to the strict markers that
// imply them. Reports carry both the strict hits and the derived labels.
var CompatMarkers = map[string][]string{
	"thank you": {
		"thank you for applying", "thanks for applying",
		"thank you for your application", "thank you for submitting",
		"thank you for your interest in",
	},
	"application submitted": {
		"your application has been submitted",
		"your application was submitted",
		"application was submitted successfully",
		"application submitted successfully",
		"your application was successfully submitted",
	},
	"confirmation": {"application confirmation"},
	"application received": {
		"we have received your application", "we received your application",
		"application was received", "application has been received",
		"your application has been received", "your submission has been received",
	},
}

// CookieHints dismiss consent banners.
var CookieHints = []string{"accept", "accept all", "allow all", "i agree", "agree", "got it", "ok", "dismiss"}

// JobKeywords select a relevant listing from a careers board.
var JobKeywords = []string{
	"deckhand", "entry level", "entry-level", "dredge",
	"trainee", "boatman", "crew", "leverman", "oiler",
	"maritime training", "deck", "tankerman",
	"view our employment", "apply today",
}

// ApplyHints enter the application form from a job detail page.
var ApplyHints = []string{
	"apply for this job", "apply now", "apply", "apply online",
	"start application", "continue application", "apply for this position",
	"apply today", "submit application", "type it in myself",
}

// SubmitHints fire the final submission control.
var SubmitHints = []string{
	"submit", "submit application", "submit my application",
	"finish application", "complete application", "review and submit",
	"send", "send application", "save", "save application",
	"submit your application", "apply", "confirm",
}

// NavHints reach a careers section from a company front page. The
// "emplyment" variants cover a real typo on one target site.
var NavHints = []string{
	"careers", "view our employment", "view our emplyment",
	"how to apply", "apply today",
	"send resume", "read more", "view opportunities",
	"see open positions", "current openings", "job openings",
	"open positions", "join our team", "employment", "emplyment",
}

// Self-heal candidate pools. One absent candidate per pool is appended
// per heal invocation; the pools themselves never change at runtime.
var (
	HealApplyPool  = []string{"continue", "next", "proceed", "begin application", "start", "quick apply", "view details"}
	HealSubmitPool = []string{"confirm", "complete", "final submit", "send", "review", "done"}
	HealMarkerPool = []string{
		"thanks for applying", "application has been submitted",
		"we received your application", "your application has been received",
	}
)

// FieldAliases maps canonical profile keys to the descriptor fragments
// that identify a matching form control.
var FieldAliases = map[string][]string{
	"first_name":       {"first name", "firstname", "given name", "fname", "first"},
	"last_name":        {"last name", "lastname", "surname", "family name", "lname", "last"},
	"full_name":        {"full name", "your name", "applicant name"},
	"email":            {"email", "e-mail", "email address"},
	"phone":            {"phone", "mobile", "telephone", "contact number", "phone number", "cell"},
	"address_line1":    {"address", "street", "street address", "address line"},
	"city":             {"city", "town"},
	"state":            {"state", "province", "region"},
	"zip":              {"zip", "postal", "zip code", "postal code"},
	"date_available":   {"date available", "available date", "start date", "availability", "when can you start"},
	"desired_pay":      {"desired pay", "salary", "pay", "compensation", "wage", "desired salary", "expected salary", "pay rate", "hourly rate"},
	"referred_by":      {"who referred", "referred", "referral", "how did you hear", "source", "hear about"},
	"career_goals":     {"what are you looking for", "career goal", "looking for in a career", "career interest", "career objective"},
	"work_environment": {"ideal work environment", "work environment", "describe your ideal", "work setting", "preferred environment"},
	"pitch":            {"cover letter", "summary", "message", "why", "about you", "introduction", "comments", "additional comments", "comment", "notes", "tell us"},
	"sea_days_note":    {"sea days", "offshore", "additional information", "experience", "qualifications"},
}

// YesIntentPhrases mark radio questions answered "yes"; NoIntentPhrases
// mark questions answered "no".
var (
	YesIntentPhrases = []string{"are you able to work", "authorized to work", "legally authorized", "eligible to work", "willing to relocate", "18 years"}
	NoIntentPhrases  = []string{"require sponsorship", "need visa", "been convicted"}
)

// StateNames expands US state abbreviations for dropdowns that list
// full names.
var StateNames = map[string]string{
	"TX": "Texas", "CA": "California", "FL": "Florida", "LA": "Louisiana",
	"NY": "New York", "VA": "Virginia", "MD": "Maryland", "NJ": "New Jersey",
	"PA": "Pennsylvania", "OH": "Ohio", "WA": "Washington", "OR": "Oregon",
	"AL": "Alabama", "GA": "Georgia", "SC": "South Carolina", "NC": "North Carolina",
	"CT": "Connecticut", "MA": "Massachusetts", "AK": "Alaska", "HI": "Hawaii",
}

// SocialDomains identify popup windows that are never part of an
// application flow. Popups landing on these are closed and ignored.
var SocialDomains = []string{
	"facebook.com", "twitter.com", "x.com", "linkedin.com",
	"instagram.com", "youtube.com", "tiktok.com", "pinterest.com",
}

// Button texts used around ATS portals: dismissing parse-error modals,
// preferring manual entry over resume parsing, and advancing multi-step
// forms.
var (
	ModalDismissTexts     = []string{"OK", "Ok", "Close", "Dismiss", "Got it"}
	ManualEntryTexts      = []string{"Type it in myself", "Continue", "Start", "Next", "Manual entry"}
	StepAdvanceTexts      = []string{"NEXT", "Next", "Continue", "Proceed"}
	MultiStepAdvanceTexts = []string{
		"Continue", "NEXT", "Next", "Save & Continue",
		"Save and Continue", "NEXT: CONTACT INFO",
		"Submit Application", "Submit",
	}
	ErrorDismissTexts = []string{"OK", "Close", "Dismiss"}
)

// MergeHints returns base with extras appended, skipping duplicates.
// Order is preserved so curated hints are tried before healed ones.
func MergeHints(base, extras []string) []string {
	merged := make([]string, 0, len(base)+len(extras))
	seen := make(map[string]bool, len(base)+len(extras))
	for _, h := range base {
		if h != "" && !seen[h] {
			merged = append(merged, h)
			seen[h] = true
		}
	}
	for _, h := range extras {
		if h != "" && !seen[h] {
			merged = append(merged, h)
			seen[h] = true
		}
	}
	return merged
}
