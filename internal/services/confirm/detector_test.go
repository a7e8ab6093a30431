package confirm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/models"
)

func strictMarkers() []string {
	return models.StrictTextMarkers
}

func TestClassifyReceiptPageConfirms(t *testing.T) {
	text := "We have received your application. Application Number: 4471."
	url := "https://jobs.example.com/posting/123/apply"

	conf := Classify(text, url, strictMarkers())

	require.True(t, conf.Confirmed)
	assert.Contains(t, conf.StrictHits, "we have received your application")
	assert.Contains(t, conf.StrictHits, "application number")
	assert.False(t, conf.URLMatch, "/apply is not a confirmation URL")
	assert.Contains(t, conf.CompatHits, "application received")
}

func TestClassifyCareersPageDoesNotConfirm(t *testing.T) {
	text := "Apply today. Entry level deckhand positions open. Submit your resume to join our team."
	url := "https://gldd.com/careers/"

	conf := Classify(text, url, strictMarkers())

	assert.False(t, conf.Confirmed)
	assert.Empty(t, conf.StrictHits)
	assert.False(t, conf.URLMatch)
	assert.Empty(t, conf.CompatHits)
}

func TestClassifyURLAloneConfirms(t *testing.T) {
	text := "redirecting..."
	url := "https://careers.example.com/thank-you"

	conf := Classify(text, url, strictMarkers())

	require.True(t, conf.Confirmed)
	assert.Empty(t, conf.StrictHits)
	assert.True(t, conf.URLMatch)
	assert.Equal(t, []string{"confirmation"}, conf.CompatHits)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	text := "THANK YOU FOR APPLYING to Curtin Maritime."
	conf := Classify(text, "https://example.com/jobs", strictMarkers())

	require.True(t, conf.Confirmed)
	assert.Contains(t, conf.StrictHits, "thank you for applying")
	assert.Contains(t, conf.CompatHits, "thank you")
}

func TestClassifyLearnedMarkerExtendsDetection(t *testing.T) {
	state := models.NewRunState()
	state.AddSuccessMarker("application has been submitted")

	text := "Your submission is in. Application has been submitted to the hiring team."
	conf := Classify(text, "https://example.com/jobs", state.SuccessMarkers())

	require.True(t, conf.Confirmed)
	assert.Contains(t, conf.StrictHits, "application has been submitted")
}

func TestClassifyCompatHitsSorted(t *testing.T) {
	text := "Thank you for applying. Your application has been submitted. We have received your application."
	conf := Classify(text, "https://example.com/thank-you", strictMarkers())

	require.True(t, conf.Confirmed)
	want := []string{"application received", "application submitted", "confirmation", "thank you"}
	assert.Equal(t, want, conf.CompatHits)
}

func TestTextHitsCombinesStrictAndCompat(t *testing.T) {
	conf := Classify("thanks for applying", "https://example.com/x", strictMarkers())

	hits := conf.TextHits()
	require.Len(t, hits, 2)
	assert.Equal(t, "thanks for applying", hits[0])
	assert.Equal(t, "thank you", hits[1])
}

func TestContextWindows(t *testing.T) {
	padding := strings.Repeat("x", 200)
	text := padding + " thank you for applying " + padding

	windows := ContextWindows(text, []string{"thank you for applying"})

	require.Len(t, windows, 1)
	assert.Contains(t, windows[0], "thank you for applying")
	// Window is the marker plus up to 120 characters each side
	assert.LessOrEqual(t, len(windows[0]), len("thank you for applying")+2*models.ContextWindow)
	assert.Greater(t, len(windows[0]), len("thank you for applying"))
}

func TestContextWindowsAtTextBoundary(t *testing.T) {
	text := "thank you for applying and good luck"

	windows := ContextWindows(text, []string{"thank you for applying"})

	require.Len(t, windows, 1)
	assert.Equal(t, text, windows[0])
}

func TestContextWindowsSkipsMissingHit(t *testing.T) {
	windows := ContextWindows("nothing here", []string{"thank you for applying"})
	assert.Empty(t, windows)
}
