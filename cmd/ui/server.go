package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"binance-futures-backtest/internal/config"
	"go.uber.org/zap"
)

// Server serves the stored backtest runs over HTTP.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer creates a new Server listening on cfg.Port.
func NewServer(cfg config.Server, h *APIHandler, logger *zap.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: h.Routes(),
		},
		logger: logger.Named("api-server"),
	}
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting web server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Web server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping web server...")
	return s.server.Shutdown(ctx)
}
