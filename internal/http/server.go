// Package http exposes the small HTTP surface of the service: health,
// signed portrait assets and read-only bot activity.
package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Server hosts the HTTP routes until its context is cancelled.
type Server struct {
	srv *http.Server
}

// StatusFunc reports the running state of each chat channel.
type StatusFunc func() map[string]bool

// NewServer builds a server listening on addr with the given routes.
// status may be nil.
func NewServer(addr string, status StatusFunc, register ...func(*http.ServeMux)) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth(status))
	for _, r := range register {
		r(mux)
	}
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

// handleHealth answers 200 while every channel runs and 503 otherwise.
func handleHealth(status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var chans map[string]bool
		if status != nil {
			chans = status()
		}
		code, state := http.StatusOK, "ok"
		for _, running := range chans {
			if !running {
				code, state = http.StatusServiceUnavailable, "degraded"
			}
		}
		writeJSON(w, code, map[string]any{"status": state, "channels": chans})
	}
}

// authMiddleware requires "Authorization: Bearer <token>" when token is set.
func authMiddleware(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			got := extractBearerToken(r)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
		}
		next(w, r)
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
