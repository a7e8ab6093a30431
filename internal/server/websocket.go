package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local status UI only
	},
}

// WSMessage is the envelope for every frame pushed to clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LogEntry is the wire shape of one streamed log line.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// statusHello is sent once when a client connects. Clients compare the
// instance id against the previous one to detect a server restart.
type statusHello struct {
	Service          string `json:"service"`
	Version          string `json:"version"`
	Status           string `json:"status"`
	Attempt          int    `json:"attempt"`
	ServerInstanceID string `json:"server_instance_id"`
}

// WebSocketHandler fans run events and log lines out to connected
// clients. Every swarm event published on the bus is relayed under its
// event type name; log lines arrive via BroadcastLog.
type WebSocketHandler struct {
	logger      arbor.ILogger
	config      *common.Config
	events      interfaces.EventService
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex
	mu          sync.RWMutex
	instanceID  string
}

func NewWebSocketHandler(config *common.Config, events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:      logger,
		config:      config,
		events:      events,
		clients:     make(map[*websocket.Conn]bool),
		clientMutex: make(map[*websocket.Conn]*sync.Mutex),
		instanceID:  common.NewInstanceID(),
	}

	if events != nil {
		h.subscribeToRunEvents()
	}

	return h
}

// InstanceID returns the id generated for this server start.
func (h *WebSocketHandler) InstanceID() string {
	return h.instanceID
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the connection and holds it open until the
// client goes away. Writes happen from broadcast goroutines; the read
// loop here only detects disconnects.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	connected := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", connected)

	h.sendHello(conn)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

func (h *WebSocketHandler) sendHello(conn *websocket.Conn) {
	hello := statusHello{
		Service:          h.config.Service.Name,
		Version:          common.GetVersion(),
		Status:           "ONLINE",
		Attempt:          h.config.Swarm.Attempt,
		ServerInstanceID: h.instanceID,
	}

	data, err := json.Marshal(WSMessage{Type: "status", Payload: hello})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal hello message")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return
	}

	mutex.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	mutex.Unlock()

	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send hello to client")
	}
}

// BroadcastLog pushes one log line to every client.
func (h *WebSocketHandler) BroadcastLog(entry LogEntry) {
	h.broadcast("log", entry)
}

// broadcast marshals the message once and writes it to every client.
// Each connection has its own write mutex so a slow client cannot
// interleave frames for the others.
func (h *WebSocketHandler) broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to send message to client")
		}
	}
}

// subscribeToRunEvents relays every swarm event to clients under its
// event type name. Payloads are the structs published by the swarm,
// navigator and heal services, so the wire shape follows their json
// tags.
func (h *WebSocketHandler) subscribeToRunEvents() {
	for _, eventType := range []interfaces.EventType{
		interfaces.EventRunStarted,
		interfaces.EventTargetStarted,
		interfaces.EventPhaseChanged,
		interfaces.EventOutcomeRecorded,
		interfaces.EventRunCompleted,
		interfaces.EventHealApplied,
	} {
		msgType := string(eventType)
		h.events.Subscribe(eventType, func(ctx context.Context, event interfaces.Event) error {
			h.broadcast(msgType, event.Payload)
			return nil
		})
	}
}

// Close disconnects every client.
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.clientMutex = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
