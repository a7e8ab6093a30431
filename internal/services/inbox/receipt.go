package inbox

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message/mail"
)

// receiptPhrases are the subject/body fragments that identify an
// application receipt. Compared lowercase.
var receiptPhrases = []string{
	"thank you for applying",
	"thank you for your application",
	"application received",
	"we received your application",
	"your application has been received",
	"your application has been submitted",
	"application confirmation",
}

// corporateSuffixes are dropped from company names before matching, so
// "Callan Marine LTD" still matches a "Callan Marine" sender.
var corporateSuffixes = []string{"inc", "inc.", "llc", "ltd", "ltd.", "co", "co.", "corp", "corp.", "company"}

// matchesReceipt reports whether an email is an application receipt for
// the company: a receipt phrase must appear in the subject or body, and
// the company name must appear in the subject, sender or body.
func matchesReceipt(company, subject, from, body string) bool {
	subject = strings.ToLower(subject)
	body = strings.ToLower(body)
	from = strings.ToLower(from)

	phraseHit := false
	for _, phrase := range receiptPhrases {
		if strings.Contains(subject, phrase) || strings.Contains(body, phrase) {
			phraseHit = true
			break
		}
	}
	if !phraseHit {
		return false
	}

	name := normalizeCompany(company)
	if name == "" {
		return false
	}
	haystack := subject + " " + from + " " + body
	if strings.Contains(haystack, name) {
		return true
	}
	// Sender domains collapse the name: careers@gulfcrane.com
	return strings.Contains(haystack, strings.ReplaceAll(name, " ", ""))
}

// normalizeCompany lowercases a company name and strips trailing
// corporate suffixes.
func normalizeCompany(company string) string {
	words := strings.Fields(strings.ToLower(company))
	for len(words) > 0 {
		last := words[len(words)-1]
		stripped := false
		for _, suffix := range corporateSuffixes {
			if last == suffix {
				words = words[:len(words)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(words, " ")
}

// extractBody reads the message and returns its text content. Plain
// text parts win; an HTML-only message is stripped to text.
func extractBody(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to create mail reader: %w", err)
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		header, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("failed to read body: %w", err)
			}
			plain = string(b)
		case strings.HasPrefix(contentType, "text/html") && html == "":
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("failed to read body: %w", err)
			}
			html = string(b)
		}
	}

	if plain != "" {
		return strings.TrimSpace(plain), nil
	}
	if html != "" {
		return htmlToText(html)
	}
	return "", nil
}

// htmlToText strips an HTML body down to its visible text.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html body: %w", err)
	}
	doc.Find("script,style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}
