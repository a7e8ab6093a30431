// -----------------------------------------------------------------------
// Report - Markdown and HTML renditions of a run report
// -----------------------------------------------------------------------

package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// Service writes the human-readable renditions of a run report. The
// JSON payload is written by the run itself; this adds a markdown
// summary and a styled HTML page beside it.
type Service struct {
	config *common.Config
	logger arbor.ILogger
}

func NewService(config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// WriteRenditions renders the report to markdown and HTML files and
// returns their paths.
func (s *Service) WriteRenditions(report *models.RunReport) (string, string, error) {
	dir := s.config.Report.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create report directory: %w", err)
	}

	markdown := Markdown(report)
	base := fmt.Sprintf("report_attempt_%d", report.Attempt)

	mdPath := filepath.Join(dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write markdown report: %w", err)
	}

	page, err := renderHTML(markdown)
	if err != nil {
		return mdPath, "", err
	}
	htmlPath := filepath.Join(dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(page), 0644); err != nil {
		return mdPath, "", fmt.Errorf("failed to write html report: %w", err)
	}

	s.logger.Info().
		Str("markdown", mdPath).
		Str("html", htmlPath).
		Msg("Report renditions written")
	return mdPath, htmlPath, nil
}

// Markdown builds the run summary: status counts, run parameters and a
// per-target result table.
func Markdown(report *models.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Swarm Run Report - Attempt %d\n\n", report.Attempt)
	fmt.Fprintf(&b, "Generated %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Count |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Complete | %d |\n", report.Summary.Complete)
	fmt.Fprintf(&b, "| Blocked | %d |\n", report.Summary.Blocked)
	fmt.Fprintf(&b, "| Incomplete | %d |\n", report.Summary.Incomplete)
	fmt.Fprintf(&b, "| Total | %d |\n\n", report.Summary.Total)

	fmt.Fprintf(&b, "Batch size %d, session TTL %ds, self-heal cap %d.\n\n",
		report.BatchSize, report.TTLSeconds, report.MaxSelfHealAttempts)

	b.WriteString("## Results\n\n")
	b.WriteString("| Company | Status | Detail | Evidence |\n|---------|--------|--------|----------|\n")
	for i := range report.Results {
		outcome := &report.Results[i]
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(outcome.Company), outcome.Status, cell(outcome.Detail), evidence(outcome))
	}

	return b.String()
}

// evidence condenses the proof bundle into one table cell.
func evidence(outcome *models.AttemptOutcome) string {
	var parts []string
	if n := len(outcome.Proof.TextHits); n > 0 {
		parts = append(parts, fmt.Sprintf("%d text hits", n))
	}
	if outcome.Proof.URLMatch {
		parts = append(parts, "url match")
	}
	if outcome.Proof.FilledCount > 0 {
		parts = append(parts, fmt.Sprintf("%d fields", outcome.Proof.FilledCount))
	}
	if outcome.Proof.ResumeUploads > 0 {
		parts = append(parts, fmt.Sprintf("resume x%d", outcome.Proof.ResumeUploads))
	}
	if outcome.Proof.EmailReceipt != "" {
		parts = append(parts, "email receipt")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// cell makes a value safe inside a GFM table row. Detail strings can
// carry exception text with pipes or newlines.
func cell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}

// renderHTML converts the markdown summary into a standalone page.
func renderHTML(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert report markdown: %w", err)
	}
	return wrapInPage(buf.String()), nil
}

func wrapInPage(content string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Swarm Run Report</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
      line-height: 1.6;
      color: #333;
      max-width: 900px;
      margin: 0 auto;
      padding: 20px;
      background-color: #f9f9f9;
    }
    .content {
      background-color: #fff;
      padding: 30px;
      border-radius: 8px;
      box-shadow: 0 1px 3px rgba(0,0,0,0.1);
    }
    h1 { color: #1a1a1a; font-size: 24px; margin-top: 0; border-bottom: 2px solid #eee; padding-bottom: 10px; }
    h2 { color: #2a2a2a; font-size: 20px; margin-top: 24px; }
    table { border-collapse: collapse; width: 100%; margin: 16px 0; }
    th, td { border: 1px solid #ddd; padding: 8px 12px; text-align: left; }
    th { background: #f4f4f4; font-weight: 600; }
    code { background: #f4f4f4; padding: 2px 6px; border-radius: 3px; font-family: 'SF Mono', Monaco, 'Courier New', monospace; font-size: 14px; }
  </style>
</head>
<body>
  <div class="content">
    ` + content + `
  </div>
</body>
</html>`
}
