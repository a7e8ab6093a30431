package browser

import (
	"context"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/peto/internal/interfaces"
)

// enableRequestFilter turns on request interception when any block rules
// are configured. With no rules the fetch domain stays off and requests
// flow untouched.
func (s *Service) enableRequestFilter(ctx context.Context) error {
	cfg := s.config.Browser
	if len(cfg.BlockedResources) == 0 && len(cfg.BlockedExtensions) == 0 && len(cfg.BlockedDomains) == 0 {
		return nil
	}
	return fetch.Enable().Do(ctx)
}

// shouldBlock decides whether a paused request gets dropped. Images,
// media, fonts, and tracker calls add seconds per page and nothing to a
// form flow.
func (s *Service) shouldBlock(url string, resourceType network.ResourceType) bool {
	cfg := s.config.Browser
	for _, rt := range cfg.BlockedResources {
		if string(resourceType) == rt {
			return true
		}
	}

	lower := strings.ToLower(url)
	path := lower
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range cfg.BlockedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	for _, domain := range cfg.BlockedDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// targetListener routes CDP events for one page context. Paused requests
// resolve on their own goroutine; blocking the event handler stalls the
// whole CDP connection.
func (s *Session) targetListener(ctx context.Context) func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go s.resolvePaused(ctx, e)
		case *network.EventRequestWillBeSent:
			s.noteRequest(e)
		case *network.EventResponseReceived:
			s.noteResponse(e)
		case *runtime.EventConsoleAPICalled:
			s.noteConsole(e)
		}
	}
}

// noteConsole surfaces in-page console errors and warnings in the swarm
// log. A submit that silently fails on an SPA form usually shows up here
// before anywhere else.
func (s *Session) noteConsole(e *runtime.EventConsoleAPICalled) {
	if e.Type != runtime.APITypeError && e.Type != runtime.APITypeWarning {
		return
	}
	var msg string
	for _, arg := range e.Args {
		if arg != nil && arg.Value != nil {
			msg += string(arg.Value) + " "
		}
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	s.logger.Debug().
		Str("type", string(e.Type)).
		Str("message", msg).
		Msg("Page console message")
}

func (s *Session) resolvePaused(ctx context.Context, e *fetch.EventRequestPaused) {
	c := chromedp.FromContext(ctx)
	if c == nil || c.Target == nil {
		return
	}
	execCtx := cdp.WithExecutor(ctx, c.Target)
	if s.svc.shouldBlock(e.Request.URL, e.ResourceType) {
		_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
		return
	}
	_ = fetch.ContinueRequest(e.RequestID).Do(execCtx)
}

func (s *Session) noteRequest(e *network.EventRequestWillBeSent) {
	if e.Request == nil {
		return
	}
	s.respMu.Lock()
	defer s.respMu.Unlock()
	// Bounded; a long SPA session can fire tens of thousands of requests
	if len(s.methods) > 2048 {
		s.methods = make(map[string]string)
	}
	s.methods[string(e.RequestID)] = e.Request.Method
}

// noteResponse records responses that look like form submissions: write
// methods, API calls, and anything against a known ATS host. The log is
// how the submit tiers learn whether a click actually posted.
func (s *Session) noteResponse(e *network.EventResponseReceived) {
	if e.Response == nil {
		return
	}
	s.respMu.Lock()
	defer s.respMu.Unlock()

	method := s.methods[string(e.RequestID)]
	urlLower := strings.ToLower(e.Response.URL)
	if method != "POST" && method != "PUT" && method != "PATCH" &&
		!strings.Contains(urlLower, "api") && !strings.Contains(urlLower, "bamboohr") {
		return
	}

	url := e.Response.URL
	if len(url) > 120 {
		url = url[:120]
	}
	s.responses = append(s.responses, interfaces.SubmitResponse{
		URL:    url,
		Status: int(e.Response.Status),
		Method: method,
	})
}
