package api

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP stack: router, middleware, and the listener.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer creates the API server over the given handlers.
func NewServer(h *Handlers, health *HealthChecker, allowedOrigins []string) *Server {
	return &Server{handler: SetupRoutes(h, health, allowedOrigins)}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// Export jobs can return multi-megabyte CSV results in one
		// response; keep the write window generous.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
