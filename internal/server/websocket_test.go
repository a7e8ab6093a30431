package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
	"github.com/ternarybob/peto/internal/services/events"
)

func newTestHandler(bus interfaces.EventService) *WebSocketHandler {
	return NewWebSocketHandler(common.NewDefaultConfig(), bus, common.GetLogger())
}

func dialWS(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandleWebSocketSendsHelloFirst(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Swarm.Attempt = 4
	handler := NewWebSocketHandler(cfg, nil, common.GetLogger())
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	hello := readFrame(t, conn)

	require.Equal(t, "status", hello.Type)
	payload, ok := hello.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "peto", payload["service"])
	assert.Equal(t, "ONLINE", payload["status"])
	assert.Equal(t, float64(4), payload["attempt"])
	assert.Equal(t, handler.InstanceID(), payload["server_instance_id"])
}

func TestRunEventsFanOutToAllClients(t *testing.T) {
	bus := events.NewService(common.GetLogger())
	defer bus.Close()

	handler := newTestHandler(bus)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer srv.Close()

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dialWS(t, srv.URL)
		hello := readFrame(t, conns[i])
		require.Equal(t, "status", hello.Type)
	}

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventTargetStarted,
		Payload: models.TargetUpdate{Company: "Harbor Docks", URL: "https://jobs.example.com/harbor", Attempt: 1},
	}))
	require.NoError(t, bus.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventPhaseChanged,
		Payload: models.PhaseUpdate{Company: "Harbor Docks", Phase: "fill", Attempt: 1},
	}))

	for i, conn := range conns {
		first := readFrame(t, conn)
		require.Equal(t, "target_started", first.Type, "client %d", i)
		payload, ok := first.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Harbor Docks", payload["company"])
		assert.Equal(t, "https://jobs.example.com/harbor", payload["url"])

		second := readFrame(t, conn)
		require.Equal(t, "phase_changed", second.Type, "client %d", i)
	}
}

func TestBroadcastLogReachesClients(t *testing.T) {
	handler := newTestHandler(nil)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	readFrame(t, conn) // hello

	handler.BroadcastLog(LogEntry{Timestamp: "10:11:12", Level: "INF", Message: "Swarm run starting"})

	frame := readFrame(t, conn)
	require.Equal(t, "log", frame.Type)
	payload, ok := frame.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10:11:12", payload["timestamp"])
	assert.Equal(t, "INF", payload["level"])
	assert.Equal(t, "Swarm run starting", payload["message"])
}

func TestClientCountTracksDisconnects(t *testing.T) {
	handler := newTestHandler(nil)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	readFrame(t, conn) // hello
	require.Equal(t, 1, handler.ClientCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return handler.ClientCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCloseDisconnectsClients(t *testing.T) {
	handler := newTestHandler(nil)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	readFrame(t, conn) // hello

	handler.Close()
	require.Equal(t, 0, handler.ClientCount())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
