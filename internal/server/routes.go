package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Live event stream
	mux.HandleFunc("/ws", s.ws.HandleWebSocket)

	// Run snapshots
	mux.HandleFunc("/status", s.status.GetStatus)
	mux.HandleFunc("/api/status", s.status.GetStatus)
	mux.HandleFunc("/api/report", s.status.GetReport)
	mux.HandleFunc("/api/outcomes", s.status.ListOutcomes)

	// Unmatched API routes
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not found")
	})

	return mux
}
