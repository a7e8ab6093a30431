// -----------------------------------------------------------------------
// Resume - Generates the applicant resume PDF from the profile
// -----------------------------------------------------------------------

package resume

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

// Service provisions the resume PDF that gets uploaded into application
// file inputs. When the configured file is missing it builds a one-page
// PDF from the profile, so a fresh checkout can run without a
// hand-authored resume.
type Service struct {
	config  *common.Config
	profile *models.Profile
	logger  arbor.ILogger
}

func NewService(config *common.Config, profile *models.Profile, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		profile: profile,
		logger:  logger,
	}
}

// Ensure returns the path of a valid resume PDF, generating one when the
// configured file is absent. An existing file that fails structural
// validation is regenerated rather than uploaded broken.
func (s *Service) Ensure(ctx context.Context) (string, error) {
	path := s.config.Resume.Path
	if path == "" {
		path = s.profile.ResumePath
	}

	if _, err := os.Stat(path); err == nil {
		if err := validatePDF(path); err == nil {
			s.logger.Debug().Str("path", path).Msg("Resume present and valid")
			return path, nil
		} else if !s.config.Resume.Generate {
			return "", fmt.Errorf("resume %s failed validation: %w", path, err)
		}
		s.logger.Warn().Str("path", path).Msg("Existing resume failed validation, regenerating")
	} else if !s.config.Resume.Generate {
		return "", fmt.Errorf("resume %s not found and generation is disabled", path)
	}

	if err := s.Generate(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// Generate renders the profile resume to a PDF at path and validates
// the result before handing it over.
func (s *Service) Generate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	markdown := Markdown(s.profile)
	pdfBytes, err := s.Render(markdown)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create resume directory: %w", err)
		}
	}
	if err := os.WriteFile(path, pdfBytes, 0644); err != nil {
		return fmt.Errorf("failed to write resume: %w", err)
	}

	if err := validatePDF(path); err != nil {
		os.Remove(path)
		return fmt.Errorf("generated resume failed validation: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("bytes", len(pdfBytes)).
		Msg("Resume generated from profile")
	return nil
}

// Markdown assembles the resume source from profile fields. Every line
// traces back to a profile value; nothing is invented here.
func Markdown(profile *models.Profile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", profile.FullName())

	contact := []string{}
	if profile.AddressLine1 != "" {
		contact = append(contact, profile.AddressLine1)
	}
	cityLine := strings.TrimSpace(strings.TrimSuffix(profile.City+", "+profile.State+" "+profile.Zip, ", "))
	if cityLine != "" {
		contact = append(contact, cityLine)
	}
	if profile.Phone != "" {
		contact = append(contact, profile.Phone)
	}
	if profile.Email != "" {
		contact = append(contact, profile.Email)
	}
	fmt.Fprintf(&b, "%s\n\n---\n\n", strings.Join(contact, " | "))

	if profile.CareerGoals != "" {
		fmt.Fprintf(&b, "## Objective\n\n%s\n\n", profile.CareerGoals)
	}
	if profile.Pitch != "" {
		fmt.Fprintf(&b, "## Profile\n\n%s\n\n", profile.Pitch)
	}

	b.WriteString("## Highlights\n\n")
	if profile.SeaDaysNote != "" {
		fmt.Fprintf(&b, "- %s\n", profile.SeaDaysNote)
	}
	if profile.WorkEnvironment != "" {
		fmt.Fprintf(&b, "- Seeking: %s\n", strings.TrimSuffix(profile.WorkEnvironment, "."))
	}
	if profile.DateAvailable != "" {
		fmt.Fprintf(&b, "- Available from %s\n", profile.DateAvailable)
	}
	if profile.DesiredPay != "" {
		fmt.Fprintf(&b, "- Desired pay: %s\n", profile.DesiredPay)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Contact\n\nReferred by: %s\n", profile.ReferredBy)

	return b.String()
}

// Render converts resume markdown to PDF bytes by walking the goldmark
// AST into an fpdf document.
func (s *Service) Render(markdown string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	renderer := &pdfRenderer{pdf: pdf, source: source, size: 10}
	if err := renderer.render(doc); err != nil {
		return nil, fmt.Errorf("failed to render resume: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to produce resume output: %w", err)
	}
	return buf.Bytes(), nil
}

// validatePDF runs a pdfcpu structural validation so broken output
// never reaches a file input.
func validatePDF(path string) error {
	return api.ValidateFile(path, model.NewDefaultConfiguration())
}
