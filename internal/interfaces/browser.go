// -----------------------------------------------------------------------
// Browser interfaces - Session driving surface used by the navigator,
// filler, and confirmation checker
// -----------------------------------------------------------------------

package interfaces

import "context"

// SubmitResponse records a network response observed around a submit
// attempt, used to judge whether a form actually posted.
type SubmitResponse struct {
	URL    string
	Status int
	Method string
}

// BrowserSession is one isolated page context against one target. All
// page interaction funnels through here so the flow logic can be tested
// against a fake.
type BrowserSession interface {
	// Navigate loads a URL and waits for DOM content
	Navigate(ctx context.Context, url string) error

	// Reinject re-establishes the in-page helper. Required after every
	// navigation; the helper does not survive document changes.
	Reinject(ctx context.Context) error

	// Eval runs a JavaScript expression and decodes the result into out
	// (out may be nil). On a destroyed context it retries once after
	// re-injecting the helper.
	Eval(ctx context.Context, js string, out interface{}) error

	// WaitSettle pauses in page time for the given duration
	WaitSettle(ctx context.Context, ms int)

	// CurrentURL returns the page's current location
	CurrentURL(ctx context.Context) (string, error)

	// Screenshot captures a full-page screenshot to path
	Screenshot(ctx context.Context, path string) error

	// Click performs a trusted click on the first element matching a
	// CSS selector
	Click(ctx context.Context, selector string) error

	// ClickXPath performs a trusted click on the first element matching
	// an XPath expression
	ClickXPath(ctx context.Context, expr string) error

	// Type clears a field and types the value with trusted key events.
	// SPA state managers ignore synthetic input events; typing is what
	// they observe.
	Type(ctx context.Context, selector, value string) error

	// PressKey sends a trusted key press to the focused element
	PressKey(ctx context.Context, key string) error

	// UploadResume sets the file on every file input; returns the count
	// of inputs that accepted it
	UploadResume(ctx context.Context, path string) (int, error)

	// AdoptPopup switches the session to the newest popup page, closing
	// and ignoring social-media popups. Returns true when adopted.
	AdoptPopup(ctx context.Context) (bool, error)

	// ResponseMark returns a cursor into the observed response log
	ResponseMark() int

	// ResponsesSince returns submit-relevant responses observed after
	// the given cursor
	ResponsesSince(mark int) []SubmitResponse

	// Close tears down the page context
	Close() error
}

// BrowserService owns the shared browser process and creates per-target
// sessions with network filtering and helper injection installed.
type BrowserService interface {
	// Initialize starts the browser allocator
	Initialize(ctx context.Context) error

	// NewSession creates an isolated session; id is used as the log
	// correlation id
	NewSession(ctx context.Context, id string) (BrowserSession, error)

	// Close shuts down the browser and all sessions
	Close() error
}
