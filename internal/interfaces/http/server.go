package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
)

// Server wraps http.Server with the service's timeout profile and lifecycle.
// WriteTimeout must stay above the panel budget or a slow radar response is
// cut off mid-stream; config.Validate enforces the relation.
type Server struct {
	srv *http.Server
	log logging.Logger
}

// NewServer builds the HTTP server for the given handler.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		log: logger.Named("http.server"),
	}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("server listening", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new connections and drains in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")
	return s.srv.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}
