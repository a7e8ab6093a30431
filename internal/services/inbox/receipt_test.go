package inbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
)

func TestMatchesReceipt(t *testing.T) {
	tests := []struct {
		name    string
		company string
		subject string
		from    string
		body    string
		want    bool
	}{
		{
			name:    "Subject phrase and company",
			company: "Harbor Docks",
			subject: "Thank you for applying to Harbor Docks",
			want:    true,
		},
		{
			name:    "Phrase in body, collapsed company in sender",
			company: "Gulf Crane",
			subject: "Your submission",
			from:    "careers@gulfcrane.example.com",
			body:    "We received your application and will be in touch.",
			want:    true,
		},
		{
			name:    "Phrase and company both in body",
			company: "Gulf Crane",
			subject: "Careers update",
			body:    "Gulf Crane has received your application. Application received!",
			want:    true,
		},
		{
			name:    "Corporate suffix stripped",
			company: "Callan Marine LTD",
			subject: "Thank you for your application",
			body:    "Callan Marine appreciates your interest.",
			want:    true,
		},
		{
			name:    "Receipt phrase without company",
			company: "Harbor Docks",
			subject: "Application received",
			body:    "Someone else entirely.",
			want:    false,
		},
		{
			name:    "Company without receipt phrase",
			company: "Harbor Docks",
			subject: "Harbor Docks newsletter",
			body:    "Open positions this month.",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchesReceipt(tt.company, tt.subject, tt.from, tt.body)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCompany(t *testing.T) {
	assert.Equal(t, "callan marine", normalizeCompany("Callan Marine LTD"))
	assert.Equal(t, "harbor docks", normalizeCompany("Harbor Docks"))
	assert.Equal(t, "moran towing", normalizeCompany("Moran Towing Corp."))
	assert.Equal(t, "acme", normalizeCompany("ACME Inc. LLC"))
	assert.Equal(t, "", normalizeCompany(""))
}

func TestExtractBodyPlainText(t *testing.T) {
	raw := strings.Join([]string{
		"From: careers@harbordocks.example.com",
		"To: applicant@example.com",
		"Subject: Thank you for applying",
		"Date: Mon, 17 Aug 2026 10:00:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"We received your application.",
		"",
	}, "\r\n")

	body, err := extractBody(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "We received your application.", body)
}

func TestExtractBodyHTMLFallsBackToStrippedText(t *testing.T) {
	raw := strings.Join([]string{
		"From: careers@gulfcrane.example.com",
		"To: applicant@example.com",
		"Subject: Application received",
		"Date: Mon, 17 Aug 2026 10:00:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=b1",
		"",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><style>p{color:red}</style><p>We received your <b>application</b>.</p></body></html>",
		"--b1--",
		"",
	}, "\r\n")

	body, err := extractBody(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "We received your application.", body)
}

func TestExtractBodyPrefersPlainOverHTML(t *testing.T) {
	raw := strings.Join([]string{
		"From: careers@gulfcrane.example.com",
		"To: applicant@example.com",
		"Subject: Application received",
		"Date: Mon, 17 Aug 2026 10:00:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=b1",
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain wins",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html loses</p>",
		"--b1--",
		"",
	}, "\r\n")

	body, err := extractBody(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "plain wins", body)
}

func TestFindReceiptDisabledIsNoOp(t *testing.T) {
	cfg := common.NewDefaultConfig()
	svc := NewService(&cfg.Inbox, common.GetLogger())

	subject, err := svc.FindReceipt(context.Background(), "Harbor Docks", time.Now())
	require.NoError(t, err)
	assert.Empty(t, subject)
}

func TestFindReceiptRequiresCredentials(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Inbox.Enabled = true
	svc := NewService(&cfg.Inbox, common.GetLogger())

	_, err := svc.FindReceipt(context.Background(), "Harbor Docks", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
