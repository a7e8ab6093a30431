package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/browser/browsertest"
	"github.com/ternarybob/peto/internal/storage/badger"
)

const confirmationText = "thank you for applying. application number: 8841."

// fakeBrowser hands out FakeSessions keyed by correlation id, with an
// optional per-session prepare hook and per-id failure injection.
type fakeBrowser struct {
	mu       sync.Mutex
	prepare  func(id string, session *browsertest.FakeSession)
	failFor  map[string]error
	sessions map[string]*browsertest.FakeSession
	order    []string
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		failFor:  make(map[string]error),
		sessions: make(map[string]*browsertest.FakeSession),
	}
}

func (b *fakeBrowser) Initialize(ctx context.Context) error { return nil }

func (b *fakeBrowser) NewSession(ctx context.Context, id string) (interfaces.BrowserSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.failFor[id]; ok {
		return nil, err
	}
	session := browsertest.NewFakeSession("about:blank")
	if b.prepare != nil {
		b.prepare(id, session)
	}
	b.sessions[id] = session
	b.order = append(b.order, id)
	return session, nil
}

func (b *fakeBrowser) Close() error { return nil }

type fakeInbox struct {
	mu       sync.Mutex
	subjects map[string]string
	errFor   map[string]error
	calls    []string
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{
		subjects: make(map[string]string),
		errFor:   make(map[string]error),
	}
}

func (f *fakeInbox) FindReceipt(ctx context.Context, company string, since time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, company)
	if err, ok := f.errFor[company]; ok {
		return "", err
	}
	return f.subjects[company], nil
}

// eventBus captures published events; workers publish concurrently so
// access is locked.
type eventBus struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (b *eventBus) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (b *eventBus) Unsubscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (b *eventBus) Publish(ctx context.Context, event interfaces.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *eventBus) PublishSync(ctx context.Context, event interfaces.Event) error {
	return b.Publish(ctx, event)
}

func (b *eventBus) Close() error { return nil }

func (b *eventBus) byType(eventType interfaces.EventType) []interfaces.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []interfaces.Event
	for _, event := range b.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type harness struct {
	svc     *Service
	browser *fakeBrowser
	storage interfaces.StorageManager
	config  *common.Config
}

func newHarness(t *testing.T, targets []models.Target, events interfaces.EventService, inbox interfaces.InboxService) *harness {
	t.Helper()

	cfg := common.NewDefaultConfig()
	base := t.TempDir()
	cfg.Swarm.ProofDir = filepath.Join(base, "proof")
	cfg.Swarm.LogsDir = filepath.Join(base, "logs")
	cfg.Report.Dir = filepath.Join(base, "reports")
	cfg.Resume.Path = filepath.Join(base, "resume.pdf")
	cfg.Storage.Badger.Path = filepath.Join(base, "badger")
	cfg.Swarm.StartRate = 0 // no pacing between session starts

	manager, err := badger.NewManager(common.GetLogger(), &cfg.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	profile := &models.Profile{}
	profile.ApplyDefaults()

	browserSvc := newFakeBrowser()
	svc := NewService(cfg, profile, targets, browserSvc, manager, events, inbox, common.GetLogger())
	return &harness{svc: svc, browser: browserSvc, storage: manager, config: cfg}
}

func TestRunYieldsOneOutcomePerTargetInOrder(t *testing.T) {
	targets := []models.Target{
		{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor"},
		{Company: "Moss Point Marine", URL: "https://jobs.example.com/moss"},
		{Company: "Delta Terminal", URL: "https://jobs.example.com/delta"},
		{Company: "Gulf Crane", URL: "https://jobs.example.com/gulf"},
		{Company: "Bayou Fabrication", URL: "https://jobs.example.com/bayou"},
	}
	h := newHarness(t, targets, nil, nil)
	h.config.Swarm.BatchSize = 2

	report, err := h.svc.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	require.Len(t, report.Results, len(targets))
	for i, target := range targets {
		assert.Equal(t, target.Company, report.Results[i].Company)
		assert.Equal(t, 1, report.Results[i].LastAttempt)
	}
	assert.Equal(t, len(targets), report.Summary.Total)
	assert.Equal(t, len(targets), report.Summary.Incomplete)

	slugs := make([]string, 0, len(targets))
	for _, target := range targets {
		slugs = append(slugs, target.Slug())
	}
	assert.ElementsMatch(t, slugs, h.browser.order)
	for slug, session := range h.browser.sessions {
		assert.True(t, session.Closed, "session %s not closed", slug)
	}
}

func TestRunMixesStatusesIntoSummary(t *testing.T) {
	targets := []models.Target{
		{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor"},
		{Company: "Moss Point Marine", URL: "https://jobs.example.com/moss"},
		{Company: "Delta Terminal", URL: "https://jobs.example.com/delta"},
	}
	h := newHarness(t, targets, nil, nil)
	h.browser.prepare = func(id string, session *browsertest.FakeSession) {
		switch id {
		case "harbor-docks":
			session.Answer("fillProfile", 5).Answer("getVisibleText", confirmationText)
		case "delta-terminal":
			session.Answer("detectDeadDomain", true)
		}
	}

	report, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Complete)
	assert.Equal(t, 1, report.Summary.Blocked)
	assert.Equal(t, 1, report.Summary.Incomplete)

	assert.Equal(t, models.StatusComplete, report.Results[0].Status)
	assert.Equal(t, models.DetailConfirmed, report.Results[0].Detail)
	assert.Equal(t, models.StatusIncomplete, report.Results[1].Status)
	assert.Equal(t, models.StatusBlocked, report.Results[2].Status)
	assert.Equal(t, models.BlockedDetail(models.BlockDeadDomain), report.Results[2].Detail)

	ctx := context.Background()
	saved, err := h.storage.OutcomeStorage().GetOutcome(ctx, "Harbor Docks", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, saved.Status)
	saved, err = h.storage.OutcomeStorage().GetOutcome(ctx, "Delta Terminal", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, saved.Status)
}

func TestRunPersistsAndWritesReport(t *testing.T) {
	targets := []models.Target{
		{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor"},
	}
	h := newHarness(t, targets, nil, nil)

	report, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	stored, err := h.storage.ReportStorage().GetReport(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, report.Summary, stored.Summary)
	assert.Equal(t, report.BatchSize, stored.BatchSize)

	path := filepath.Join(h.config.Report.Dir, "report_attempt_1.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk models.RunReport
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, 1, onDisk.Attempt)
	assert.Len(t, onDisk.Results, 1)
	assert.Equal(t, report.Summary, onDisk.Summary)
}

func TestSessionFailureRecordsExceptionOutcome(t *testing.T) {
	targets := []models.Target{
		{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor"},
		{Company: "Moss Point Marine", URL: "https://jobs.example.com/moss"},
	}
	h := newHarness(t, targets, nil, nil)
	h.browser.failFor["harbor-docks"] = errors.New("allocator crashed")

	report, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	failed := report.Results[0]
	assert.Equal(t, models.StatusIncomplete, failed.Status)
	assert.True(t, strings.HasPrefix(failed.Detail, "exception:SessionError:"), "detail %q", failed.Detail)
	assert.Contains(t, failed.Detail, "allocator crashed")

	saved, err := h.storage.OutcomeStorage().GetOutcome(context.Background(), "Harbor Docks", 1)
	require.NoError(t, err)
	assert.Equal(t, failed.Detail, saved.Detail)
	assert.Equal(t, 2, report.Summary.Incomplete)
}

func TestEventsFollowRunLifecycle(t *testing.T) {
	targets := []models.Target{
		{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor"},
		{Company: "Moss Point Marine", URL: "https://jobs.example.com/moss"},
	}
	bus := &eventBus{}
	h := newHarness(t, targets, bus, nil)
	h.browser.prepare = func(id string, session *browsertest.FakeSession) {
		if id == "harbor-docks" {
			session.Answer("getVisibleText", confirmationText)
		}
	}

	report, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	bus.mu.Lock()
	require.NotEmpty(t, bus.events)
	first := bus.events[0]
	last := bus.events[len(bus.events)-1]
	bus.mu.Unlock()

	assert.Equal(t, interfaces.EventRunStarted, first.Type)
	update, ok := first.Payload.(models.RunUpdate)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(update.RunID, "run_"))
	assert.Equal(t, 1, update.Attempt)
	assert.Equal(t, 2, update.Targets)

	assert.Equal(t, interfaces.EventRunCompleted, last.Type)
	completed, ok := last.Payload.(*models.RunReport)
	require.True(t, ok)
	assert.Equal(t, report.Summary, completed.Summary)

	assert.Len(t, bus.byType(interfaces.EventTargetStarted), 2)
	recorded := bus.byType(interfaces.EventOutcomeRecorded)
	require.Len(t, recorded, 2)
	for _, event := range recorded {
		_, ok := event.Payload.(*models.AttemptOutcome)
		assert.True(t, ok)
	}
}

func TestReceiptCorroboratesCompletedOutcomes(t *testing.T) {
	targets := []models.Target{
		{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor"},
		{Company: "Gulf Crane", URL: "https://jobs.example.com/gulf"},
		{Company: "Moss Point Marine", URL: "https://jobs.example.com/moss"},
	}
	inbox := newFakeInbox()
	inbox.subjects["Harbor Docks"] = "Thank you for applying to Harbor Docks"
	inbox.errFor["Gulf Crane"] = errors.New("imap: connection reset")

	h := newHarness(t, targets, nil, inbox)
	h.config.Inbox.Enabled = true
	h.browser.prepare = func(id string, session *browsertest.FakeSession) {
		if id == "harbor-docks" || id == "gulf-crane" {
			session.Answer("getVisibleText", confirmationText)
		}
	}

	report, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Thank you for applying to Harbor Docks", report.Results[0].Proof.EmailReceipt)
	assert.Equal(t, models.StatusComplete, report.Results[0].Status)

	// Lookup errors leave the outcome untouched
	assert.Empty(t, report.Results[1].Proof.EmailReceipt)
	assert.Equal(t, models.StatusComplete, report.Results[1].Status)

	// Incomplete outcomes are never looked up
	assert.ElementsMatch(t, []string{"Harbor Docks", "Gulf Crane"}, inbox.calls)

	saved, err := h.storage.OutcomeStorage().GetOutcome(context.Background(), "Harbor Docks", 1)
	require.NoError(t, err)
	assert.Equal(t, "Thank you for applying to Harbor Docks", saved.Proof.EmailReceipt)
}

func TestInboxDisabledSkipsReceiptLookup(t *testing.T) {
	targets := []models.Target{
		{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor"},
	}
	inbox := newFakeInbox()
	inbox.subjects["Harbor Docks"] = "Receipt"

	h := newHarness(t, targets, nil, inbox)
	h.browser.prepare = func(id string, session *browsertest.FakeSession) {
		session.Answer("getVisibleText", confirmationText)
	}

	report, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, inbox.calls)
	assert.Empty(t, report.Results[0].Proof.EmailReceipt)
}

func TestBatchAndSessionBoundsClampToOne(t *testing.T) {
	targets := []models.Target{
		{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor"},
		{Company: "Moss Point Marine", URL: "https://jobs.example.com/moss"},
	}
	h := newHarness(t, targets, nil, nil)
	h.config.Swarm.BatchSize = 0
	h.config.Swarm.MaxSessions = 0

	report, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.BatchSize)
	assert.Len(t, report.Results, 2)
}

func TestStartLimiterDisabledForNonPositiveRate(t *testing.T) {
	assert.Equal(t, rate.Inf, startLimiter(0).Limit())
	assert.Equal(t, rate.Inf, startLimiter(-1).Limit())
	assert.Equal(t, rate.Limit(2.5), startLimiter(2.5).Limit())
}
