package confirm

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/browser"
)

// Service performs strict confirmation checks against a live session and
// writes the evidence trail: a screenshot on every check, page source
// and a markdown rendition when confirmed, and a forensic record of what
// matched where.
type Service struct {
	dirs   *common.RunDirs
	logger arbor.ILogger
}

func NewService(dirs *common.RunDirs, logger arbor.ILogger) *Service {
	return &Service{
		dirs:   dirs,
		logger: logger,
	}
}

// Check reads the page evidence, classifies it, and captures artifacts.
// The screenshot is taken whether or not the check passes; failed checks
// need reviewable evidence just as much as passing ones.
func (s *Service) Check(ctx context.Context, session interfaces.BrowserSession, slug string, attempt int, markers []string) (*models.Confirmation, models.Proof) {
	text := s.readText(ctx, session)
	url, err := session.CurrentURL(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("URL read failed during confirmation check")
	}

	conf := Classify(text, url, markers)

	screenshotPath := s.dirs.ScreenshotPath(slug, attempt, false)
	screenshotOK := s.capture(ctx, session, screenshotPath)

	if conf.Confirmed {
		s.captureSource(ctx, session, slug, attempt)
	}
	s.writeForensic(slug, attempt, conf, text)

	proof := models.Proof{
		FinalURL:     url,
		TextHits:     conf.TextHits(),
		URLMatch:     conf.URLMatch,
		ScreenshotOK: screenshotOK,
	}
	if screenshotOK {
		proof.Screenshot = s.relativeProofPath(screenshotPath)
	}

	s.logger.Debug().
		Str("slug", slug).
		Bool("confirmed", conf.Confirmed).
		Int("strict_hits", len(conf.StrictHits)).
		Bool("url_match", conf.URLMatch).
		Msg("Confirmation check")

	return conf, proof
}

// CaptureBlocked writes the blocked-attempt screenshot and returns the
// proof bundle for a blocked outcome. Blocked pages carry no marker
// evidence; the screenshot shows the obstacle.
func (s *Service) CaptureBlocked(ctx context.Context, session interfaces.BrowserSession, slug string, attempt int) models.Proof {
	url, _ := session.CurrentURL(ctx)

	screenshotPath := s.dirs.ScreenshotPath(slug, attempt, true)
	screenshotOK := s.capture(ctx, session, screenshotPath)

	proof := models.Proof{
		FinalURL:     url,
		TextHits:     []string{},
		URLMatch:     false,
		ScreenshotOK: screenshotOK,
	}
	if screenshotOK {
		proof.Screenshot = s.relativeProofPath(screenshotPath)
	}
	return proof
}

// readText combines body text with overlay text. Confirmation toasts on
// SPA boards often never join the body flow.
func (s *Service) readText(ctx context.Context, session interfaces.BrowserSession) string {
	var text string
	if err := session.Eval(ctx, browser.HelperCall("getVisibleText", "''"), &text); err != nil {
		s.logger.Debug().Err(err).Msg("Visible text read failed")
	}

	var overlay string
	if err := session.Eval(ctx, browser.HelperCall("getOverlayText", "''"), &overlay); err != nil {
		s.logger.Debug().Err(err).Msg("Overlay text read failed")
	}

	if overlay != "" {
		text = text + " " + overlay
	}
	return text
}

func (s *Service) capture(ctx context.Context, session interfaces.BrowserSession, path string) bool {
	if err := session.Screenshot(ctx, path); err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("Screenshot failed")
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// relativeProofPath rewrites an artifact path relative to the run root,
// the shape the report contract carries.
func (s *Service) relativeProofPath(path string) string {
	return filepath.ToSlash(filepath.Join(filepath.Base(s.dirs.Proof), filepath.Base(path)))
}
