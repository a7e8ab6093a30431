package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

// StatusHandler serves JSON snapshots of the run: the service status,
// the latest report and the stored outcomes for an attempt.
type StatusHandler struct {
	config    *common.Config
	storage   interfaces.StorageManager
	scheduler interfaces.SchedulerService
	handler   *WebSocketHandler
	startedAt time.Time
	logger    arbor.ILogger
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Service          string                  `json:"service"`
	Version          string                  `json:"version"`
	Status           string                  `json:"status"`
	ServerInstanceID string                  `json:"server_instance_id"`
	UptimeSeconds    int64                   `json:"uptime_seconds"`
	Attempt          int                     `json:"attempt"`
	Clients          int                     `json:"clients"`
	Outcomes         OutcomeCounts           `json:"outcomes"`
	LastReport       string                  `json:"last_report,omitempty"`
	Jobs             []*interfaces.JobStatus `json:"jobs,omitempty"`
}

// OutcomeCounts summarises stored outcomes for one attempt.
type OutcomeCounts struct {
	Complete   int `json:"complete"`
	Blocked    int `json:"blocked"`
	Incomplete int `json:"incomplete"`
	Total      int `json:"total"`
}

// NewStatusHandler creates the handler. The scheduler may be nil when
// scheduled runs are disabled.
func NewStatusHandler(config *common.Config, storage interfaces.StorageManager, scheduler interfaces.SchedulerService, handler *WebSocketHandler, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:    config,
		storage:   storage,
		scheduler: scheduler,
		handler:   handler,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// GetStatus handles GET /status.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	attempt := h.attemptParam(r)
	resp := StatusResponse{
		Service:          h.config.Service.Name,
		Version:          common.GetVersion(),
		Status:           "ONLINE",
		ServerInstanceID: h.handler.InstanceID(),
		UptimeSeconds:    int64(time.Since(h.startedAt).Seconds()),
		Attempt:          attempt,
		Clients:          h.handler.ClientCount(),
		Outcomes:         h.countOutcomes(r.Context(), attempt),
	}

	if report, err := h.storage.ReportStorage().LatestReport(r.Context()); err == nil && report != nil {
		resp.LastReport = report.GeneratedAt.Format(time.RFC3339)
	}

	if h.scheduler != nil {
		resp.Jobs = h.scheduler.ListJobs()
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetReport handles GET /api/report. Without an attempt query the
// latest stored report is returned.
func (h *StatusHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	var (
		report *models.RunReport
		err    error
	)
	if raw := r.URL.Query().Get("attempt"); raw != "" {
		attempt, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			WriteError(w, http.StatusBadRequest, "attempt must be an integer")
			return
		}
		report, err = h.storage.ReportStorage().GetReport(r.Context(), attempt)
	} else {
		report, err = h.storage.ReportStorage().LatestReport(r.Context())
	}

	if err != nil || report == nil {
		WriteError(w, http.StatusNotFound, "no report found")
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// ListOutcomes handles GET /api/outcomes.
func (h *StatusHandler) ListOutcomes(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	attempt := h.attemptParam(r)
	outcomes, err := h.storage.OutcomeStorage().ListOutcomes(r.Context(), attempt)
	if err != nil {
		h.logger.Error().Err(err).Int("attempt", attempt).Msg("Failed to list outcomes")
		WriteError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}
	if outcomes == nil {
		outcomes = []*models.AttemptOutcome{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"attempt":  attempt,
		"count":    len(outcomes),
		"outcomes": outcomes,
	})
}

func (h *StatusHandler) countOutcomes(ctx context.Context, attempt int) OutcomeCounts {
	var counts OutcomeCounts
	store := h.storage.OutcomeStorage()

	for _, pair := range []struct {
		status models.AttemptStatus
		dest   *int
	}{
		{models.StatusComplete, &counts.Complete},
		{models.StatusBlocked, &counts.Blocked},
		{models.StatusIncomplete, &counts.Incomplete},
	} {
		n, err := store.CountByStatus(ctx, attempt, pair.status)
		if err != nil {
			h.logger.Warn().Err(err).Str("status", string(pair.status)).Msg("Failed to count outcomes")
			continue
		}
		*pair.dest = n
	}

	counts.Total = counts.Complete + counts.Blocked + counts.Incomplete
	return counts
}

// attemptParam reads the attempt query parameter, falling back to the
// configured attempt.
func (h *StatusHandler) attemptParam(r *http.Request) int {
	if raw := r.URL.Query().Get("attempt"); raw != "" {
		if attempt, err := strconv.Atoi(raw); err == nil && attempt > 0 {
			return attempt
		}
	}
	return h.config.Swarm.Attempt
}
