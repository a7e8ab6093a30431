package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/interfaces"
)

const (
	clickTimeout   = 3 * time.Second
	adoptTimeout   = 10 * time.Second
	evalRetryDelay = 500 * time.Millisecond
)

// Session drives one tab. When a popup is adopted the session's context
// switches to the popup target; the original tab stays open until Close
// so in-flight requests on it can finish.
type Session struct {
	id     string
	svc    *Service
	logger arbor.ILogger

	ctx      context.Context
	cancel   context.CancelFunc
	targetID target.ID
	retired  []context.CancelFunc

	navTimeout time.Duration

	// Response log shared by every context this session has owned
	respMu    sync.Mutex
	responses []interfaces.SubmitResponse
	methods   map[string]string
}

// prepare wires a page context for use: request filtering, response
// observation, stealth, and the page helper on every new document. Called
// once per context, including adopted popups.
func (s *Session) prepare(ctx context.Context) error {
	chromedp.ListenTarget(ctx, s.targetListener(ctx))

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := network.Enable().Do(ctx); err != nil {
				return fmt.Errorf("network enable: %w", err)
			}
			if err := s.svc.enableRequestFilter(ctx); err != nil {
				return fmt.Errorf("fetch enable: %w", err)
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
				return fmt.Errorf("stealth install: %w", err)
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(helperScript).Do(ctx); err != nil {
				return fmt.Errorf("helper install: %w", err)
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	if c := chromedp.FromContext(ctx); c != nil && c.Target != nil {
		s.targetID = c.Target.TargetID
	}
	return nil
}

// run executes chromedp actions on the session's context while honoring
// the caller's deadline and cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads a URL under the configured navigation budget.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Reinject reinstalls the page helper into the current document. The
// helper guards against double installation so this is always safe.
func (s *Session) Reinject(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(helperScript, nil))
}

// Eval runs a JavaScript expression. A failed evaluation usually means
// the document changed underneath us, so it reinstalls the helper and
// retries once before giving up.
func (s *Session) Eval(ctx context.Context, js string, out interface{}) error {
	err := s.run(ctx, chromedp.Evaluate(js, out))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	s.WaitSettle(ctx, int(evalRetryDelay.Milliseconds()))
	if rerr := s.Reinject(ctx); rerr != nil {
		return fmt.Errorf("eval failed and helper reinstall failed: %w", err)
	}
	return s.run(ctx, chromedp.Evaluate(js, out))
}

// WaitSettle pauses in page time so SPA updates and queued XHRs can
// land. Falls back to wall-clock sleep when the page cannot run timers.
func (s *Session) WaitSettle(ctx context.Context, ms int) {
	if ms <= 0 {
		return
	}
	js := fmt.Sprintf("new Promise(resolve => setTimeout(resolve, %d))", ms)
	err := s.run(ctx, chromedp.Evaluate(js, nil, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err == nil {
		return
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-ctx.Done():
	}
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

// Screenshot writes a full-page capture to path, creating parent
// directories as needed.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 85)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

// Click sends a trusted click to the first visible match of a CSS
// selector. Times out quickly; callers treat absence as a normal miss.
func (s *Session) Click(ctx context.Context, selector string) error {
	clickCtx, cancel := context.WithTimeout(s.ctx, clickTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(clickCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// ClickXPath sends a trusted click to the first match of an XPath
// expression. Used where text matching beats CSS, e.g. a:has-text flows.
func (s *Session) ClickXPath(ctx context.Context, expr string) error {
	clickCtx, cancel := context.WithTimeout(s.ctx, clickTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(clickCtx, chromedp.Click(expr, chromedp.BySearch)); err != nil {
		return fmt.Errorf("click xpath %q: %w", expr, err)
	}
	return nil
}

// Type clears the first match of a CSS selector and types the value
// with trusted key events.
func (s *Session) Type(ctx context.Context, selector, value string) error {
	typeCtx, cancel := context.WithTimeout(s.ctx, clickTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(typeCtx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

// PressKey sends a trusted key press to whatever holds focus.
func (s *Session) PressKey(ctx context.Context, key string) error {
	keyCtx, cancel := context.WithTimeout(s.ctx, clickTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(keyCtx, chromedp.KeyEvent(key)); err != nil {
		return fmt.Errorf("press key: %w", err)
	}
	return nil
}

// UploadResume attaches the file to every file input on the page and
// returns how many accepted it. A missing file is not an error; the
// application proceeds without an attachment.
func (s *Session) UploadResume(ctx context.Context, path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve resume path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return 0, nil
	}

	findCtx, cancel := context.WithTimeout(s.ctx, clickTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var nodes []*cdp.Node
	err = chromedp.Run(findCtx, chromedp.Nodes(`input[type="file"]`, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil || len(nodes) == 0 {
		return 0, nil
	}

	uploaded := 0
	for _, node := range nodes {
		nodeID := node.NodeID
		err := chromedp.Run(findCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.SetFileInputFiles([]string{abs}).WithNodeID(nodeID).Do(ctx)
		}))
		if err != nil {
			continue
		}
		uploaded++
	}

	if uploaded > 0 {
		s.logger.Debug().Int("file_inputs", uploaded).Msg("Resume attached")
	}
	return uploaded, nil
}

// ResponseMark returns a cursor into the response log; pair with
// ResponsesSince to isolate responses triggered by one submit attempt.
func (s *Session) ResponseMark() int {
	s.respMu.Lock()
	defer s.respMu.Unlock()
	return len(s.responses)
}

func (s *Session) ResponsesSince(mark int) []interfaces.SubmitResponse {
	s.respMu.Lock()
	defer s.respMu.Unlock()
	if mark < 0 || mark > len(s.responses) {
		mark = 0
	}
	out := make([]interfaces.SubmitResponse, len(s.responses)-mark)
	copy(out, s.responses[mark:])
	return out
}

// Close tears down the active context and every retired popup context.
func (s *Session) Close() error {
	for _, cancel := range s.retired {
		cancel()
	}
	s.retired = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Debug().Str("session_id", s.id).Msg("Browser session closed")
	return nil
}
