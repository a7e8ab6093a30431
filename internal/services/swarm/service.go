// -----------------------------------------------------------------------
// Swarm - Batch orchestration of application attempts across targets
// -----------------------------------------------------------------------

package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/confirm"
	"github.com/ternarybob/peto/internal/services/matcher"
	"github.com/ternarybob/peto/internal/services/navigator"
)

// Service drives one full swarm pass: targets in sequential batches,
// sessions capped by a hard concurrency bound, one outcome per target
// no matter what happens inside, and an aggregate report at the end.
type Service struct {
	config  *common.Config
	profile *models.Profile
	targets []models.Target
	browser interfaces.BrowserService
	storage interfaces.StorageManager
	events  interfaces.EventService
	inbox   interfaces.InboxService
	logger  arbor.ILogger
}

func NewService(config *common.Config, profile *models.Profile, targets []models.Target, browserSvc interfaces.BrowserService, storage interfaces.StorageManager, events interfaces.EventService, inbox interfaces.InboxService, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		profile: profile,
		targets: targets,
		browser: browserSvc,
		storage: storage,
		events:  events,
		inbox:   inbox,
		logger:  logger,
	}
}

// run carries the per-pass state every worker shares.
type run struct {
	svc     *Service
	nav     *navigator.Service
	state   *models.RunState
	limiter *rate.Limiter
	attempt int
	logger  arbor.ILogger
}

// Run executes one swarm pass and returns the aggregate report. The
// browser service must already be initialized.
func (s *Service) Run(ctx context.Context) (*models.RunReport, error) {
	start := time.Now().UTC()
	attempt := s.config.Swarm.Attempt
	runID := common.NewRunID()

	dirs, err := common.EnsureRunDirs(s.config)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare run directories: %w", err)
	}

	// The attempt log is an output of the run: self-heal reads it back,
	// so every worker logs through it
	attemptLogger, logPath, err := common.NewAttemptLogger(s.config)
	if err != nil {
		return nil, fmt.Errorf("failed to open attempt log: %w", err)
	}

	state, err := s.storage.RunStateStorage().GetRunState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}

	batchSize := s.config.Swarm.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	sessions := s.config.Swarm.MaxSessions
	if sessions < 1 {
		sessions = 1
	}
	if sessions > batchSize {
		sessions = batchSize
	}

	r := &run{
		svc:     s,
		nav:     navigator.NewService(s.config, s.profile, matcher.NewService(s.profile, attemptLogger), confirm.NewService(dirs, attemptLogger), s.events, attemptLogger),
		state:   state,
		limiter: startLimiter(s.config.Swarm.StartRate),
		attempt: attempt,
		logger:  attemptLogger,
	}

	attemptLogger.Info().
		Str("run", runID).
		Int("attempt", attempt).
		Int("targets", len(s.targets)).
		Int("batch_size", batchSize).
		Int("max_sessions", sessions).
		Str("log", logPath).
		Msg("Swarm run starting")
	s.publish(ctx, interfaces.EventRunStarted, models.RunUpdate{RunID: runID, Attempt: attempt, Targets: len(s.targets)})

	results := make([]models.AttemptOutcome, 0, len(s.targets))
	for batchStart := 0; batchStart < len(s.targets); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(s.targets) {
			batchEnd = len(s.targets)
		}
		batch := s.targets[batchStart:batchEnd]

		// Batch N finishes completely before batch N+1 begins
		outcomes := make([]*models.AttemptOutcome, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(sessions)
		for i, target := range batch {
			g.Go(func() error {
				outcomes[i] = r.attemptTarget(gctx, target)
				return nil
			})
		}
		_ = g.Wait()

		for _, outcome := range outcomes {
			if outcome != nil {
				results = append(results, *outcome)
			}
		}
		attemptLogger.Info().
			Int("from", batchStart).
			Int("done", len(results)).
			Int("of", len(s.targets)).
			Msg("Batch finished")
	}

	s.supplementReceipts(ctx, results, start)

	report := models.NewRunReport(attempt, batchSize, int(s.config.Swarm.SessionTTL.Seconds()), s.config.SelfHeal.MaxAttempts, results)
	if err := s.storage.ReportStorage().SaveReport(ctx, report); err != nil {
		attemptLogger.Warn().Err(err).Msg("Failed to persist run report")
	}
	if path, err := s.writeReportFile(dirs, report); err != nil {
		attemptLogger.Warn().Err(err).Msg("Failed to write report file")
	} else {
		attemptLogger.Info().Str("path", path).Msg("Report written")
	}

	s.publish(ctx, interfaces.EventRunCompleted, report)

	attemptLogger.Info().
		Int("total", report.Summary.Total).
		Int("complete", report.Summary.Complete).
		Int("blocked", report.Summary.Blocked).
		Int("incomplete", report.Summary.Incomplete).
		Str("elapsed", time.Since(start).Round(time.Second).String()).
		Msg("Swarm run finished")

	return report, nil
}

// attemptTarget runs one target through a fresh session and persists the
// outcome. Always returns an outcome; internal failures become detail
// strings, never missing results.
func (r *run) attemptTarget(ctx context.Context, target models.Target) *models.AttemptOutcome {
	outcome := models.NewOutcome(target, r.attempt)

	// Politeness pacing on session starts
	if err := r.limiter.Wait(ctx); err != nil {
		outcome.Detail = models.ExceptionDetail("RunCancelled", err)
		r.persist(ctx, outcome)
		return outcome
	}

	r.svc.publish(ctx, interfaces.EventTargetStarted, models.TargetUpdate{
		Company: target.Company,
		URL:     target.URL,
		Attempt: r.attempt,
	})
	r.logger.Info().
		Str("company", target.Company).
		Str("url", target.URL).
		Msg("Target starting")

	session, err := r.svc.browser.NewSession(ctx, target.Slug())
	if err != nil {
		r.logger.Warn().Err(err).Str("company", target.Company).Msg("Session creation failed")
		outcome.Detail = models.ExceptionDetail("SessionError", err)
		r.persist(ctx, outcome)
		return outcome
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Debug().Err(err).Str("company", target.Company).Msg("Session close failed")
		}
	}()

	outcome = r.nav.Run(ctx, session, target, r.state)
	r.persist(ctx, outcome)
	r.svc.publish(ctx, interfaces.EventOutcomeRecorded, outcome)
	return outcome
}

func (r *run) persist(ctx context.Context, outcome *models.AttemptOutcome) {
	if err := r.svc.storage.OutcomeStorage().SaveOutcome(ctx, outcome); err != nil {
		r.logger.Warn().Err(err).Str("company", outcome.Company).Msg("Failed to persist outcome")
	}
}

// supplementReceipts attaches inbox receipt subjects to completed
// outcomes. Receipts corroborate a confirmation; they never change a
// status in either direction.
func (s *Service) supplementReceipts(ctx context.Context, results []models.AttemptOutcome, since time.Time) {
	if s.inbox == nil || !s.config.Inbox.Enabled {
		return
	}
	for i := range results {
		if results[i].Status != models.StatusComplete {
			continue
		}
		subject, err := s.inbox.FindReceipt(ctx, results[i].Company, since)
		if err != nil {
			s.logger.Debug().Err(err).Str("company", results[i].Company).Msg("Receipt lookup failed")
			continue
		}
		if subject == "" {
			continue
		}
		results[i].Proof.EmailReceipt = subject
		results[i].Touch()
		if err := s.storage.OutcomeStorage().SaveOutcome(ctx, &results[i]); err != nil {
			s.logger.Warn().Err(err).Str("company", results[i].Company).Msg("Failed to persist receipt")
			continue
		}
		s.logger.Info().
			Str("company", results[i].Company).
			Str("subject", subject).
			Msg("Email receipt attached")
	}
}

func (s *Service) writeReportFile(dirs *common.RunDirs, report *models.RunReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	path := filepath.Join(dirs.Reports, fmt.Sprintf("report_attempt_%d.json", report.Attempt))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Debug().Err(err).Str("type", string(eventType)).Msg("Event publish failed")
	}
}

// startLimiter builds the session-start pacer. A non-positive rate
// disables pacing.
func startLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
