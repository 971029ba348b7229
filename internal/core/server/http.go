// Package server provides HTTP server lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/solatis/tagkeeper/internal/core/config"
)

// HTTPServer manages HTTP server lifecycle.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
	config   *config.ServerConfig
}

// NewHTTPServer creates an HTTP server for the given handler.
func NewHTTPServer(cfg *config.ServerConfig, handler http.Handler) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	server := &http.Server{
		Handler:           http.TimeoutHandler(handler, cfg.RequestTimeout, `{"error":"request timeout"}`),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &HTTPServer{
		server: server,
		config: cfg,
	}, nil
}

// Start binds the listener and serves HTTP requests.
// Serve blocks until Shutdown is called; a clean shutdown returns nil.
func (s *HTTPServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	s.listener = listener
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound listener address. Only valid after Start has bound
// the listener; useful when Port is 0.
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server with a 30-second timeout.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	stopped := make(chan error, 1)
	go func() {
		stopped <- s.server.Shutdown(context.Background())
	}()

	select {
	case err := <-stopped:
		return err
	case <-ctx.Done():
		s.server.Close()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(30 * time.Second):
		s.server.Close()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
