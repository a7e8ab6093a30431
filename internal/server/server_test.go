package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/services/events"
	"github.com/ternarybob/peto/internal/storage/badger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Path = filepath.Join(t.TempDir(), "badger")

	manager, err := badger.NewManager(common.GetLogger(), &cfg.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	bus := events.NewService(common.GetLogger())
	t.Cleanup(func() { _ = bus.Close() })

	return New(cfg, manager, bus, nil, common.GetLogger())
}

func TestRoutesServeStatus(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, path := range []string{"/status", "/api/status"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err, path)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), path)

		var status StatusResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status), path)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, "peto", status.Service, path)
		assert.Equal(t, "ONLINE", status.Status, path)
	}
}

func TestUnknownAPIRouteReturnsJSONError(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/api/missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "not found", body["error"])
}

func TestCORSHeadersApplied(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/status", nil)
	require.NoError(t, err)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketUpgradeThroughMiddleware(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv.URL+"/ws")
	hello := readFrame(t, conn)
	assert.Equal(t, "status", hello.Type)
}

func TestRecoveryMiddlewareConvertsPanic(t *testing.T) {
	s := newTestServer(t)
	handler := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
