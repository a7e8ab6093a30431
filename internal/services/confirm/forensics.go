package confirm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/browser"
)

// captureSource saves the raw page HTML and a readable markdown
// rendition for a confirmed attempt. The HTML is the proof; the markdown
// is what reviewers actually read.
func (s *Service) captureSource(ctx context.Context, session interfaces.BrowserSession, slug string, attempt int) {
	var source string
	if err := session.Eval(ctx, browser.HelperCall("getPageSource", "''"), &source); err != nil {
		s.logger.Debug().Err(err).Msg("Page source read failed")
		return
	}
	if source == "" {
		return
	}
	if len(source) > models.PageSourceCap {
		source = source[:models.PageSourceCap]
	}

	sourcePath := s.dirs.SourcePath(slug, attempt)
	if err := os.WriteFile(sourcePath, []byte(source), 0644); err != nil {
		s.logger.Warn().Err(err).Str("path", sourcePath).Msg("Failed to write page source")
		return
	}

	markdown, err := renderMarkdown(source)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Markdown rendition failed")
		return
	}
	mdPath := s.dirs.MarkdownPath(slug, attempt)
	if err := os.WriteFile(mdPath, []byte(markdown), 0644); err != nil {
		s.logger.Debug().Err(err).Str("path", mdPath).Msg("Failed to write markdown rendition")
	}
}

// CaptureDiagnostic saves the page source regardless of outcome. Run on
// the final check of every attempt so failed flows leave something to
// debug against.
func (s *Service) CaptureDiagnostic(ctx context.Context, session interfaces.BrowserSession, slug string, attempt int) {
	var source string
	if err := session.Eval(ctx, browser.HelperCall("getPageSource", "''"), &source); err != nil {
		s.logger.Debug().Err(err).Msg("Diagnostic source read failed")
		return
	}
	if source == "" {
		return
	}
	if len(source) > models.PageSourceCap {
		source = source[:models.PageSourceCap]
	}

	diagPath := s.dirs.DiagSourcePath(slug, attempt)
	if err := os.WriteFile(diagPath, []byte(source), 0644); err != nil {
		s.logger.Debug().Err(err).Str("path", diagPath).Msg("Failed to write diagnostic source")
	}
}

// writeForensic records what matched and the text around each hit.
// Written on every check; an empty record documents that nothing
// matched, which matters when auditing a failed run.
func (s *Service) writeForensic(slug string, attempt int, conf *models.Confirmation, text string) {
	record := models.ForensicRecord{
		Slug:       slug,
		Attempt:    attempt,
		StrictHits: conf.StrictHits,
		CompatHits: conf.CompatHits,
		URLMatch:   conf.URLMatch,
		FinalURL:   conf.FinalURL,
		Contexts:   ContextWindows(text, conf.StrictHits),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		s.logger.Debug().Err(err).Msg("Forensic record marshal failed")
		return
	}

	path := s.dirs.ForensicPath(slug, attempt)
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("Failed to write forensic record")
	}
}

// renderMarkdown converts captured page HTML into markdown, stripping
// script and style noise and leading with the page title.
func renderMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, svg").Remove()

	body, err := doc.Find("body").Html()
	if err != nil || body == "" {
		body = html
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}

	if title != "" {
		markdown = "# " + title + "\n\n" + markdown
	}
	return markdown, nil
}
