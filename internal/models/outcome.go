// -----------------------------------------------------------------------
// AttemptOutcome - Result of one application attempt against one target
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// AttemptStatus represents the terminal classification of an attempt
type AttemptStatus string

// AttemptStatus constants
const (
	StatusComplete   AttemptStatus = "complete"   // Strict confirmation marker verified
	StatusBlocked    AttemptStatus = "blocked"    // External obstacle (captcha, login wall, dead domain)
	StatusIncomplete AttemptStatus = "incomplete" // No confirmation observed
)

// IsValidStatus checks if a given AttemptStatus is one of the valid constants
func IsValidStatus(status AttemptStatus) bool {
	switch status {
	case StatusComplete, StatusBlocked, StatusIncomplete:
		return true
	default:
		return false
	}
}

// Block reasons carried in the detail string of blocked outcomes.
const (
	BlockDeadDomain    = "dead_domain"
	BlockLoginRequired = "login_required"
	BlockCaptchaOnForm = "captcha_on_form"
)

// Detail strings for complete/incomplete outcomes.
const (
	DetailConfirmed        = "strict_confirmation_verified"
	DetailNoConfirmation   = "no_strict_confirmation"
	DetailTimeoutConfirmed = "timeout_with_strict_confirmation"
	DetailPostNavConfirmed = "post_navigation_strict_confirmation"
)

// BlockedDetail formats the detail string for a named block reason.
func BlockedDetail(reason string) string {
	return "Blocked - External: " + reason
}

// GateDetail formats the detail string for the captcha/SMS gate check.
func GateDetail(captcha, sms bool) string {
	return fmt.Sprintf("Blocked - External: captcha=%t, sms=%t", captcha, sms)
}

// TimeoutDetail formats the detail string for an attempt that ran out of
// session TTL without reaching a confirmation page.
func TimeoutDetail(ttlSeconds int) string {
	return fmt.Sprintf("timeout_%ds_no_confirmation", ttlSeconds)
}

// ExceptionDetail formats the detail string for an attempt that died on
// an unexpected error. The message is capped so log lines stay readable.
func ExceptionDetail(kind string, err error) string {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return fmt.Sprintf("exception:%s:%s", kind, msg)
}

// Proof is the evidence bundle attached to every outcome. Screenshot is
// diagnostic only; completion is decided by text hits and the URL match.
type Proof struct {
	Screenshot    string   `json:"screenshot"`              // Relative path to the proof screenshot
	FinalURL      string   `json:"final_url"`               // URL at classification time
	TextHits      []string `json:"text_hits"`               // Strict hits plus derived compat labels
	URLMatch      bool     `json:"url_match"`               // True when a URL marker matched
	ScreenshotOK  bool     `json:"screenshot_ok"`           // True when the screenshot was written
	FilledCount   int      `json:"filled_count"`            // Max fields filled in any cycle
	EEOActions    int      `json:"eeo_actions"`             // Max EEO controls resolved in any cycle
	ResumeUploads int      `json:"resume_uploads"`          // Max file inputs that accepted the resume
	EmailReceipt  string   `json:"email_receipt,omitempty"` // Subject of a matching inbox receipt, if any
}

// AttemptOutcome is the persisted result for one (target, attempt) pair.
type AttemptOutcome struct {
	Company     string        `json:"company"`
	URL         string        `json:"url"`
	Status      AttemptStatus `json:"status"`
	Detail      string        `json:"detail"`
	LastAttempt int           `json:"last_attempt"`
	Proof       Proof         `json:"proof"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewOutcome creates an incomplete outcome for a target; the navigator
// upgrades status and detail as the attempt progresses.
func NewOutcome(target Target, attempt int) *AttemptOutcome {
	return &AttemptOutcome{
		Company:     target.Company,
		URL:         target.URL,
		Status:      StatusIncomplete,
		LastAttempt: attempt,
		UpdatedAt:   time.Now().UTC(),
	}
}

// Key returns the storage key for this outcome, unique per (target, attempt).
func (o *AttemptOutcome) Key() string {
	return fmt.Sprintf("%s_attempt%d", Target{Company: o.Company}.Slug(), o.LastAttempt)
}

// Touch updates the outcome timestamp to now (UTC).
func (o *AttemptOutcome) Touch() {
	o.UpdatedAt = time.Now().UTC()
}
