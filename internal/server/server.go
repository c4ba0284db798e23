// Package server exposes the hub over HTTP: the /ws endpoint plus health,
// stats, match lookup and metrics routes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/BioHazard786/Pairline/internal/config"
	"github.com/BioHazard786/Pairline/internal/metrics"
	"github.com/BioHazard786/Pairline/internal/signaling"
)

const (
	shutdownTimeout = 10 * time.Second
	queryTimeout    = 2 * time.Second
)

// NewRouter wires every route and wraps them in the CORS middleware.
func NewRouter(cfg *config.Server, log *zap.Logger, hub *signaling.Hub, m *metrics.Metrics) http.Handler {
	log = log.Named("http")
	r := mux.NewRouter()

	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", handleStats(hub, log)).Methods(http.MethodGet)
	r.HandleFunc("/api/match/{userId}", handleMatch(hub, log)).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", ServeWs(hub, signaling.ClientOptions{
		SendBuffer:     cfg.SendBuffer,
		MaxMessageSize: cfg.MaxMessageSize,
	}, log))

	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleStats(hub *signaling.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		stats, err := hub.Stats(ctx)
		if err != nil {
			log.Warn("stats query failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleMatch(hub *signaling.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]

		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		match, ok, err := hub.MatchOf(ctx, userID)
		if err != nil {
			log.Warn("match query failed", zap.String("user_id", userID), zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active match"})
			return
		}
		writeJSON(w, http.StatusOK, match)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
