// -----------------------------------------------------------------------
// Browser service - shared Chrome process and per-target page sessions
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

const startupTimeout = 30 * time.Second

// Service owns one Chrome process. Every target gets its own tab via
// NewSession; popups opened by those tabs are tracked so sessions can
// adopt or discard them.
type Service struct {
	config *common.Config
	logger arbor.ILogger

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	popups      *popupRegistry
	mu          sync.Mutex
	initialized bool
}

func NewService(config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
		popups: newPopupRegistry(),
	}
}

// Initialize starts Chrome, verifies it responds, and enables target
// discovery so popup windows become visible to the registry.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return fmt.Errorf("browser service already initialized")
	}

	s.logger.Info().
		Bool("headful", s.config.Browser.Headful).
		Int("window_width", s.config.Browser.WindowWidth).
		Int("window_height", s.config.Browser.WindowHeight).
		Msg("Starting browser")

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, s.allocatorOptions()...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			s.logger.Debug().Msgf(format, args...)
		}),
	)

	// Startup test confirms the process came up before any target work
	testCtx, testCancel := context.WithTimeout(s.browserCtx, startupTimeout)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		s.browserCancel()
		s.allocCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	chromedp.ListenBrowser(s.browserCtx, s.popups.handleEvent)

	// Target discovery is off by default; without it no TargetCreated
	// events arrive and popups would go unseen
	err := chromedp.Run(s.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.SetDiscoverTargets(true).Do(ctx)
	}))
	if err != nil {
		s.browserCancel()
		s.allocCancel()
		return fmt.Errorf("failed to enable target discovery: %w", err)
	}

	s.initialized = true
	s.logger.Info().Msg("Browser started")
	return nil
}

// allocatorOptions assembles the Chrome launch flags. The stealth set
// keeps ATS bot checks from flagging the session before any page script
// runs.
func (s *Service) allocatorOptions() []chromedp.ExecAllocatorOption {
	cfg := s.config.Browser
	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox,
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),

		// Stealth flags
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),

		// Stability flags
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("enable-webgl", true),
	)

	if !cfg.Headful {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	return opts
}

// NewSession opens a fresh tab with network filtering, stealth, and the
// page helper installed. The id becomes the session's log correlation id.
func (s *Service) NewSession(ctx context.Context, id string) (interfaces.BrowserSession, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil, fmt.Errorf("browser service not initialized")
	}
	browserCtx := s.browserCtx
	s.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)

	session := &Session{
		id:         id,
		svc:        s,
		ctx:        tabCtx,
		cancel:     tabCancel,
		logger:     s.logger.WithCorrelationId(id),
		navTimeout: s.config.Browser.NavigationTimeout,
		methods:    make(map[string]string),
	}

	if err := session.prepare(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to prepare session %s: %w", id, err)
	}

	session.logger.Debug().Str("session_id", id).Msg("Browser session ready")
	return session, nil
}

// Close tears down the browser process. Sessions still open die with it.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}

	s.logger.Info().Msg("Shutting down browser")

	done := make(chan struct{})
	go func() {
		if s.browserCancel != nil {
			s.browserCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(startupTimeout):
		s.logger.Warn().Msg("Browser shutdown timed out")
	}

	s.initialized = false
	return nil
}
