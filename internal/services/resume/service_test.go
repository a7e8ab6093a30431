package resume

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Resume.Path = filepath.Join(t.TempDir(), "resume.pdf")
	cfg.Resume.Generate = true

	profile := &models.Profile{}
	profile.ApplyDefaults()

	return NewService(cfg, profile, common.GetLogger())
}

func TestMarkdownContainsProfileFields(t *testing.T) {
	profile := &models.Profile{}
	profile.ApplyDefaults()

	markdown := Markdown(profile)

	assert.Contains(t, markdown, "# Elijah Wallis")
	assert.Contains(t, markdown, "elijahcwallis@gmail.com")
	assert.Contains(t, markdown, "985-991-4360")
	assert.Contains(t, markdown, "Plano, TX 75074")
	assert.Contains(t, markdown, "## Objective")
	assert.Contains(t, markdown, "250 documented sea days")
	assert.Contains(t, markdown, "Available from 03/10/2026")
	assert.Contains(t, markdown, "Desired pay: Negotiable")
}

func TestMarkdownSkipsEmptyOptionalFields(t *testing.T) {
	profile := &models.Profile{
		FirstName: "Ada",
		LastName:  "Byrne",
		Email:     "ada@example.com",
		Phone:     "555-0100",
	}

	markdown := Markdown(profile)

	assert.Contains(t, markdown, "# Ada Byrne")
	assert.NotContains(t, markdown, "## Objective")
	assert.NotContains(t, markdown, "Available from")
	assert.NotContains(t, markdown, "Desired pay")
}

func TestRenderProducesPDF(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name     string
		markdown string
	}{
		{name: "Profile Resume", markdown: Markdown(svc.profile)},
		{name: "Minimal", markdown: "# Name\n\nOne paragraph."},
		{name: "Styling", markdown: "Normal **Bold** *Italic*\n\n- item one\n- item two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfBytes, err := svc.Render(tt.markdown)
			require.NoError(t, err)
			require.NotEmpty(t, pdfBytes)
			assert.Equal(t, "%PDF", string(pdfBytes[:4]))
		})
	}
}

func TestGenerateWritesValidatedPDF(t *testing.T) {
	svc := newTestService(t)
	path := svc.config.Resume.Path

	require.NoError(t, svc.Generate(context.Background(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
	assert.Greater(t, len(data), 500)
}

func TestEnsureGeneratesWhenMissing(t *testing.T) {
	svc := newTestService(t)

	path, err := svc.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, svc.config.Resume.Path, path)
	assert.FileExists(t, path)

	// Second call reuses the valid file
	again, err := svc.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestEnsureFailsWhenGenerationDisabled(t *testing.T) {
	svc := newTestService(t)
	svc.config.Resume.Generate = false

	_, err := svc.Ensure(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation is disabled")
}

func TestEnsureReplacesInvalidFile(t *testing.T) {
	svc := newTestService(t)
	path := svc.config.Resume.Path
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0644))

	got, err := svc.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}
