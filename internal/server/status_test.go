package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/scheduler"
	"github.com/ternarybob/peto/internal/storage/badger"
)

type statusHarness struct {
	status  *StatusHandler
	storage interfaces.StorageManager
	config  *common.Config
	ws      *WebSocketHandler
}

func newStatusHarness(t *testing.T, sched interfaces.SchedulerService) *statusHarness {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Path = filepath.Join(t.TempDir(), "badger")

	manager, err := badger.NewManager(common.GetLogger(), &cfg.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	ws := NewWebSocketHandler(cfg, nil, common.GetLogger())
	status := NewStatusHandler(cfg, manager, sched, ws, common.GetLogger())
	return &statusHarness{status: status, storage: manager, config: cfg, ws: ws}
}

func (h *statusHarness) seedOutcome(t *testing.T, company string, attempt int, status models.AttemptStatus) {
	t.Helper()

	outcome := models.NewOutcome(models.Target{Company: company, URL: "https://jobs.example.com/apply"}, attempt)
	outcome.Status = status
	require.NoError(t, h.storage.OutcomeStorage().SaveOutcome(context.Background(), outcome))
}

func TestGetStatusCountsOutcomes(t *testing.T) {
	h := newStatusHarness(t, nil)
	h.seedOutcome(t, "Harbor Docks", 1, models.StatusComplete)
	h.seedOutcome(t, "Moss Point Marine", 1, models.StatusComplete)
	h.seedOutcome(t, "Delta Terminal", 1, models.StatusBlocked)
	h.seedOutcome(t, "Gulf Crane", 1, models.StatusIncomplete)

	rec := httptest.NewRecorder()
	h.status.GetStatus(rec, httptest.NewRequest("GET", "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "peto", resp.Service)
	assert.Equal(t, "ONLINE", resp.Status)
	assert.Equal(t, 1, resp.Attempt)
	assert.NotEmpty(t, resp.ServerInstanceID)
	assert.Equal(t, 0, resp.Clients)
	assert.Equal(t, 2, resp.Outcomes.Complete)
	assert.Equal(t, 1, resp.Outcomes.Blocked)
	assert.Equal(t, 1, resp.Outcomes.Incomplete)
	assert.Equal(t, 4, resp.Outcomes.Total)
	assert.Empty(t, resp.LastReport)
	assert.Nil(t, resp.Jobs)
}

func TestGetStatusAttemptQueryOverride(t *testing.T) {
	h := newStatusHarness(t, nil)
	h.seedOutcome(t, "Harbor Docks", 1, models.StatusBlocked)
	h.seedOutcome(t, "Harbor Docks", 2, models.StatusComplete)
	h.seedOutcome(t, "Moss Point Marine", 2, models.StatusComplete)

	rec := httptest.NewRecorder()
	h.status.GetStatus(rec, httptest.NewRequest("GET", "/status?attempt=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Attempt)
	assert.Equal(t, 2, resp.Outcomes.Complete)
	assert.Equal(t, 0, resp.Outcomes.Blocked)
	assert.Equal(t, 2, resp.Outcomes.Total)
}

func TestGetStatusIncludesReportAndJobs(t *testing.T) {
	sched := scheduler.NewService(common.GetLogger())
	require.NoError(t, sched.RegisterJob("swarm-run", "0 3 * * *", func() error { return nil }))

	h := newStatusHarness(t, sched)
	report := models.NewRunReport(1, 3, 120, 15, nil)
	require.NoError(t, h.storage.ReportStorage().SaveReport(context.Background(), report))

	rec := httptest.NewRecorder()
	h.status.GetStatus(rec, httptest.NewRequest("GET", "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, report.GeneratedAt.Format(time.RFC3339), resp.LastReport)
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "swarm-run", resp.Jobs[0].Name)
	assert.Equal(t, "0 3 * * *", resp.Jobs[0].Schedule)
}

func TestGetStatusRejectsPost(t *testing.T) {
	h := newStatusHarness(t, nil)

	rec := httptest.NewRecorder()
	h.status.GetStatus(rec, httptest.NewRequest("POST", "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetReportByAttempt(t *testing.T) {
	h := newStatusHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.storage.ReportStorage().SaveReport(ctx, models.NewRunReport(1, 3, 120, 15, nil)))
	require.NoError(t, h.storage.ReportStorage().SaveReport(ctx, models.NewRunReport(2, 3, 120, 15, nil)))

	rec := httptest.NewRecorder()
	h.status.GetReport(rec, httptest.NewRequest("GET", "/api/report?attempt=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.RunReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, 1, report.Attempt)
}

func TestGetReportDefaultsToLatest(t *testing.T) {
	h := newStatusHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.storage.ReportStorage().SaveReport(ctx, models.NewRunReport(1, 3, 120, 15, nil)))
	require.NoError(t, h.storage.ReportStorage().SaveReport(ctx, models.NewRunReport(2, 3, 120, 15, nil)))

	rec := httptest.NewRecorder()
	h.status.GetReport(rec, httptest.NewRequest("GET", "/api/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.RunReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, 2, report.Attempt)
}

func TestGetReportRejectsBadAttempt(t *testing.T) {
	h := newStatusHarness(t, nil)

	rec := httptest.NewRecorder()
	h.status.GetReport(rec, httptest.NewRequest("GET", "/api/report?attempt=first", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportNotFound(t *testing.T) {
	h := newStatusHarness(t, nil)

	rec := httptest.NewRecorder()
	h.status.GetReport(rec, httptest.NewRequest("GET", "/api/report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOutcomesReturnsAttemptResults(t *testing.T) {
	h := newStatusHarness(t, nil)
	h.seedOutcome(t, "Harbor Docks", 1, models.StatusComplete)
	h.seedOutcome(t, "Moss Point Marine", 1, models.StatusBlocked)
	h.seedOutcome(t, "Delta Terminal", 2, models.StatusComplete)

	rec := httptest.NewRecorder()
	h.status.ListOutcomes(rec, httptest.NewRequest("GET", "/api/outcomes?attempt=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Attempt  int                      `json:"attempt"`
		Count    int                      `json:"count"`
		Outcomes []*models.AttemptOutcome `json:"outcomes"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Attempt)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Outcomes, 2)
	for _, outcome := range resp.Outcomes {
		assert.Equal(t, 1, outcome.LastAttempt)
	}
}

func TestListOutcomesEmptyAttempt(t *testing.T) {
	h := newStatusHarness(t, nil)

	rec := httptest.NewRecorder()
	h.status.ListOutcomes(rec, httptest.NewRequest("GET", "/api/outcomes", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count    int                      `json:"count"`
		Outcomes []*models.AttemptOutcome `json:"outcomes"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Outcomes)
	assert.Len(t, resp.Outcomes, 0)
}
