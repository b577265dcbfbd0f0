package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"delivery-metrics/internal/handler/http/requestid"
	"delivery-metrics/internal/observability/logging"
	"delivery-metrics/internal/observability/tracing"
)

// HealthServer provides HTTP endpoints for health checks.
// It implements two endpoints:
//   - /health: Liveness check (always returns 200 OK)
//   - /health/ready: Readiness check (200 once the first cycle has been
//     published, 503 before)
//
// Every response carries the process run ID. Requests pass through the
// request ID and tracing middleware.
//
// Example usage:
//
//	healthServer := NewHealthServer(cfg.HealthAddr(), runID, logger)
//	go func() {
//	    if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
//	        logger.Error("health server failed", slog.Any("error", err))
//	    }
//	}()
//	healthServer.SetReady(true)
type HealthServer struct {
	addr    string
	runID   string
	logger  *slog.Logger
	isReady atomic.Bool
	server  *http.Server
}

// healthResponse is the JSON response format for health check endpoints.
type healthResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

// NewHealthServer creates a new health check server. It starts not ready.
func NewHealthServer(addr, runID string, logger *slog.Logger) *HealthServer {
	return &HealthServer{
		addr:   addr,
		runID:  runID,
		logger: logger,
	}
}

// Handler returns the health endpoints wrapped in request ID and tracing
// middleware.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)

	return requestid.Middleware(tracing.Middleware(mux))
}

// Start starts the health check HTTP server.
// It blocks until the context is cancelled or the server fails, and shuts
// down gracefully with a 5-second timeout.
//
// Returns http.ErrServerClosed on graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:              h.addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

// SetReady sets the readiness state reported by /health/ready.
// Only transitions are logged.
func (h *HealthServer) SetReady(ready bool) {
	if h.isReady.Swap(ready) != ready {
		h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
	}
}

// Ready reports the current readiness state.
func (h *HealthServer) Ready() bool {
	return h.isReady.Load()
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, http.StatusOK, "ok")
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		h.writeStatus(w, r, http.StatusOK, "ok")
		return
	}
	h.writeStatus(w, r, http.StatusServiceUnavailable, "not ready")
}

func (h *HealthServer) writeStatus(w http.ResponseWriter, r *http.Request, code int, status string) {
	logger := logging.WithRequestID(r.Context(), h.logger)
	logger.Debug("health check",
		slog.String("path", r.URL.Path),
		slog.Int("status", code))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: status, RunID: h.runID}); err != nil {
		logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
