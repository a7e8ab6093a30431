package models

import (
	"errors"
	"strings"
	"testing"
)

// TestDetailStrings verifies the detail formats carried in reports
func TestDetailStrings(t *testing.T) {
	if got := BlockedDetail(BlockDeadDomain); got != "Blocked - External: dead_domain" {
		t.Errorf("BlockedDetail = %q", got)
	}
	if got := GateDetail(true, false); got != "Blocked - External: captcha=true, sms=false" {
		t.Errorf("GateDetail = %q", got)
	}
	if got := TimeoutDetail(120); got != "timeout_120s_no_confirmation" {
		t.Errorf("TimeoutDetail = %q", got)
	}
}

// TestExceptionDetail verifies the message cap on exception details
func TestExceptionDetail(t *testing.T) {
	long := errors.New(strings.Repeat("x", 300))
	got := ExceptionDetail("navigation", long)

	if !strings.HasPrefix(got, "exception:navigation:") {
		t.Errorf("ExceptionDetail prefix wrong: %q", got)
	}
	if len(got) != len("exception:navigation:")+120 {
		t.Errorf("ExceptionDetail message not capped at 120: len=%d", len(got))
	}

	if got := ExceptionDetail("timeout", nil); got != "exception:timeout:" {
		t.Errorf("ExceptionDetail(nil) = %q", got)
	}
}

// TestOutcome_Key verifies keys are unique per target and attempt
func TestOutcome_Key(t *testing.T) {
	target := Target{Company: "Great Lakes Dredge & Dock", URL: "https://gldd.com/careers/"}

	first := NewOutcome(target, 1)
	second := NewOutcome(target, 2)

	if first.Key() != "great-lakes-dredge-dock_attempt1" {
		t.Errorf("Key() = %q", first.Key())
	}
	if first.Key() == second.Key() {
		t.Error("keys for different attempts must differ")
	}
	if first.Status != StatusIncomplete {
		t.Errorf("new outcome status = %q, want %q", first.Status, StatusIncomplete)
	}
}

// TestIsValidStatus verifies the status constant set
func TestIsValidStatus(t *testing.T) {
	for _, s := range []AttemptStatus{StatusComplete, StatusBlocked, StatusIncomplete} {
		if !IsValidStatus(s) {
			t.Errorf("IsValidStatus(%q) = false", s)
		}
	}
	if IsValidStatus("pending") {
		t.Error("IsValidStatus(pending) = true, want false")
	}
}
