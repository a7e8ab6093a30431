// Package browsertest provides a scriptable BrowserSession fake so flow
// logic can be tested without a browser process.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ternarybob/peto/internal/interfaces"
)

// FakeSession implements interfaces.BrowserSession against canned data.
// Helper calls are answered from Script, keyed by helper function name;
// a Script value may be a plain value or a func() interface{} evaluated
// per call. Everything the flow does is recorded for assertions.
type FakeSession struct {
	mu sync.Mutex

	// URLValue is returned by CurrentURL. Script funcs may change it to
	// simulate navigation.
	URLValue string

	// Script answers Eval calls by helper function name
	Script map[string]interface{}

	// EvalFn, when set, intercepts every Eval before Script lookup
	EvalFn func(js string, out interface{}) error

	// Error overrides
	NavigateErr   error
	ScreenshotErr error

	// AdoptQueue feeds AdoptPopup results in order; empty means false
	AdoptQueue []bool

	// UploadResult is returned by UploadResume
	UploadResult int

	// ResponseLog feeds ResponsesSince
	ResponseLog []interfaces.SubmitResponse

	// Recorded activity
	Navigations []string
	Evals       []string
	Clicks      []string
	XPathClicks []string
	Typed       map[string]string
	KeysPressed []string
	Screenshots []string
	Settles     []int
	Uploads     []string
	Reinjects   int
	Closed      bool
}

func NewFakeSession(url string) *FakeSession {
	return &FakeSession{
		URLValue: url,
		Script:   make(map[string]interface{}),
		Typed:    make(map[string]string),
	}
}

// Answer sets the canned result for a helper function.
func (f *FakeSession) Answer(fn string, value interface{}) *FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Script[fn] = value
	return f
}

func (f *FakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Navigations = append(f.Navigations, url)
	if f.NavigateErr != nil {
		return f.NavigateErr
	}
	f.URLValue = url
	return nil
}

func (f *FakeSession) Reinject(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reinjects++
	return nil
}

func (f *FakeSession) Eval(ctx context.Context, js string, out interface{}) error {
	f.mu.Lock()
	f.Evals = append(f.Evals, js)
	evalFn := f.EvalFn
	f.mu.Unlock()

	if evalFn != nil {
		return evalFn(js, out)
	}

	f.mu.Lock()
	var value interface{}
	found := false
	for fn, v := range f.Script {
		if strings.Contains(js, "."+fn+"(") {
			value = v
			found = true
			break
		}
	}
	f.mu.Unlock()

	if !found || out == nil {
		return nil
	}
	if dynamic, ok := value.(func() interface{}); ok {
		value = dynamic()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("fake eval marshal: %w", err)
	}
	return json.Unmarshal(data, out)
}

func (f *FakeSession) WaitSettle(ctx context.Context, ms int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Settles = append(f.Settles, ms)
}

func (f *FakeSession) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.URLValue, nil
}

func (f *FakeSession) Screenshot(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Screenshots = append(f.Screenshots, path)
	if f.ScreenshotErr != nil {
		return f.ScreenshotErr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("png"), 0644)
}

func (f *FakeSession) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clicks = append(f.Clicks, selector)
	return nil
}

func (f *FakeSession) ClickXPath(ctx context.Context, expr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.XPathClicks = append(f.XPathClicks, expr)
	return nil
}

func (f *FakeSession) Type(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Typed[selector] = value
	return nil
}

func (f *FakeSession) PressKey(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KeysPressed = append(f.KeysPressed, key)
	return nil
}

func (f *FakeSession) UploadResume(ctx context.Context, path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads = append(f.Uploads, path)
	return f.UploadResult, nil
}

func (f *FakeSession) AdoptPopup(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.AdoptQueue) == 0 {
		return false, nil
	}
	adopted := f.AdoptQueue[0]
	f.AdoptQueue = f.AdoptQueue[1:]
	return adopted, nil
}

func (f *FakeSession) ResponseMark() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ResponseLog)
}

func (f *FakeSession) ResponsesSince(mark int) []interfaces.SubmitResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mark < 0 || mark > len(f.ResponseLog) {
		mark = 0
	}
	out := make([]interfaces.SubmitResponse, len(f.ResponseLog)-mark)
	copy(out, f.ResponseLog[mark:])
	return out
}

// AddResponse appends to the observed response log, simulating network
// traffic seen after a submit click.
func (f *FakeSession) AddResponse(resp interfaces.SubmitResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResponseLog = append(f.ResponseLog, resp)
}

func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// EvalCount returns how many Eval calls mentioned the given helper.
func (f *FakeSession) EvalCount(fn string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, js := range f.Evals {
		if strings.Contains(js, "."+fn+"(") {
			count++
		}
	}
	return count
}
