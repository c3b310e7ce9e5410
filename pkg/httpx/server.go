// Package httpx holds the HTTP plumbing shared by MotoBlu commands: the
// server lifecycle, the {success, data, message} response envelope,
// middleware and health reports.
package httpx

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server is the predictor's HTTP listener. Stop drains in-flight requests.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer builds a server for addr. Timeouts are fixed; prediction
// requests are small and answered in memory.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// SetTLSConfig attaches a config built by pkg/tls. Certificates loaded into
// it let StartTLS run with empty file arguments.
func (s *Server) SetTLSConfig(config *tls.Config) {
	s.server.TLSConfig = config
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves plain HTTP until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	return serveResult(s.server.ListenAndServe())
}

// StartTLS serves HTTPS until Stop is called.
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.logger.Info("starting HTTPS server", "addr", s.server.Addr, "mutual_tls", s.mutualTLS())
	return serveResult(s.server.ListenAndServeTLS(certFile, keyFile))
}

func (s *Server) mutualTLS() bool {
	cfg := s.server.TLSConfig
	return cfg != nil && cfg.ClientAuth == tls.RequireAndVerifyClientCert
}

func serveResult(err error) error {
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop stops accepting connections and waits up to timeout for open
// requests to finish.
func (s *Server) Stop(timeout time.Duration) error {
	s.logger.Info("stopping HTTP server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteJSON encodes v as the response body. Handlers normally go through
// WriteSuccess or WriteFailure instead.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// WriteSuccess writes {"success":true,"data":...,"message":...}.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	resp := Response{Success: true, Data: data, Message: message}
	if err := WriteJSON(w, status, resp); err != nil {
		slog.Error("failed to write success response", "error", err)
	}
}

// WriteFailure writes {"success":false,"message":...}.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	resp := Response{Success: false, Message: message}
	if err := WriteJSON(w, status, resp); err != nil {
		slog.Error("failed to write failure response", "error", err, "message", message)
	}
}
