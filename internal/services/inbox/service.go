// -----------------------------------------------------------------------
// Inbox - IMAP scan for application receipt emails
// -----------------------------------------------------------------------

package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

// Service scans a mailbox for application-receipt emails after a run.
// A receipt is supplementary evidence attached to an outcome; page
// markers stay the only proof that flips a status to complete.
type Service struct {
	config *common.InboxConfig
	logger arbor.ILogger
}

var _ interfaces.InboxService = (*Service)(nil)

func NewService(config *common.InboxConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// FindReceipt searches messages received since the given time for a
// receipt matching the company. Returns the subject of the first match,
// or "" when none is found.
func (s *Service) FindReceipt(ctx context.Context, company string, since time.Time) (string, error) {
	if !s.config.Enabled {
		return "", nil
	}
	if s.config.Host == "" || s.config.Username == "" || s.config.Password == "" {
		return "", fmt.Errorf("inbox enabled but host/username/password not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	floor := time.Now().Add(-s.config.Lookback)
	if since.IsZero() || since.Before(floor) {
		since = floor
	}

	emails, err := s.fetchSince(since)
	if err != nil {
		return "", err
	}

	for _, email := range emails {
		if matchesReceipt(company, email.Subject, email.From, email.Body) {
			s.logger.Debug().
				Str("company", company).
				Str("subject", email.Subject).
				Str("from", email.From).
				Msg("Receipt matched")
			return email.Subject, nil
		}
	}
	return "", nil
}

type email struct {
	From    string
	Subject string
	Body    string
	Date    time.Time
}

// fetchSince pulls envelope, date and body for every message the server
// reports as received on or after since. IMAP SINCE is date-granular,
// so the envelope date is re-checked client side.
func (s *Service) fetchSince(since time.Time) ([]email, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var c *client.Client
	var err error
	if s.config.UseTLS {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer c.Logout()

	if err := c.Login(s.config.Username, s.config.Password); err != nil {
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	mailbox := s.config.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	mbox, err := c.Select(mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", mailbox, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("receipt search failed: %w", err)
	}
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)
	section := &imap.BodySectionName{Peek: true}

	messages := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	var emails []email
	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		if msg.Envelope.Date.Before(since) {
			continue
		}

		from := ""
		if len(msg.Envelope.From) > 0 {
			from = msg.Envelope.From[0].Address()
		}

		body := ""
		if r := msg.GetBody(section); r != nil {
			if text, err := extractBody(r); err != nil {
				s.logger.Warn().Err(err).Uint32("seq", msg.SeqNum).Msg("Failed to parse message body")
			} else {
				body = text
			}
		}

		emails = append(emails, email{
			From:    from,
			Subject: msg.Envelope.Subject,
			Body:    body,
			Date:    msg.Envelope.Date,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	s.logger.Debug().Int("count", len(emails)).Str("since", since.Format(time.RFC3339)).Msg("Fetched candidate receipts")
	return emails, nil
}
