// -----------------------------------------------------------------------
// Status server - live run visibility over HTTP and websocket
// -----------------------------------------------------------------------

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

// Server hosts the optional status endpoints. It is opt-in: CLI runs
// work without it, scheduled runs usually enable it for monitoring.
type Server struct {
	config   *common.Config
	logger   arbor.ILogger
	ws       *WebSocketHandler
	status   *StatusHandler
	consumer *LogConsumer
	router   *http.ServeMux
	server   *http.Server
}

// New creates the status server. The scheduler may be nil when
// scheduled runs are disabled.
func New(config *common.Config, storage interfaces.StorageManager, events interfaces.EventService, scheduler interfaces.SchedulerService, logger arbor.ILogger) *Server {
	s := &Server{
		config: config,
		logger: logger,
	}

	s.ws = NewWebSocketHandler(config, events, logger)
	s.status = NewStatusHandler(config, storage, scheduler, s.ws, logger)
	s.consumer = NewLogConsumer(s.ws, config.Logging.Level)
	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// AttachLogger taps the logger's context channel into the log stream
// so its lines reach websocket clients.
func (s *Server) AttachLogger(logger arbor.ILogger) {
	logger.SetChannel("context", s.consumer.Channel())
}

// Handler returns the composed handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server. Blocks until Shutdown is called.
func (s *Server) Start() error {
	s.consumer.Start()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info().
		Str("address", addr).
		Msg("Status server starting")
	s.logger.Info().
		Str("url", fmt.Sprintf("http://%s/status", addr)).
		Msg("Status endpoint available")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server, the log stream and every
// websocket client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down status server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("status server shutdown failed: %w", err)
	}

	s.consumer.Stop()
	s.ws.Close()

	s.logger.Info().Msg("Status server stopped")
	return nil
}
