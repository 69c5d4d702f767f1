// Package main runs the HTTP front end: a chi router exposing
// POST /stream, DELETE /memory/clear, GET /health, and GET /metrics,
// grounded on pkg/transport/rest_gateway.go's route composition and
// pkg/transport/http_metrics_middleware.go's response-wrapping
// middleware, collapsed off grpc-gateway's dual REST/gRPC transcoding
// since this spec names a plain HTTP+SSE surface (§6).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kadirpekel/agiloop/agent"
	"github.com/kadirpekel/agiloop/agiconfig"
	"github.com/kadirpekel/agiloop/agimsg"
	"github.com/kadirpekel/agiloop/agiobserve"
	"github.com/kadirpekel/agiloop/agistream"
)

// server bundles the dependencies every route handler needs.
type server struct {
	handler *agent.Handler
	cfg     *agiconfig.Config
	logger  *slog.Logger
	metrics *agiobserve.Metrics
}

// newRouter builds the chi mux spec §6/§9 names.
func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(s.recordMetrics)

	r.Post("/stream", s.handleStream)
	r.Delete("/memory/clear", s.handleClearMemory)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// recordMetrics wraps every request with a status-capturing writer,
// adapted from pkg/transport/http_metrics_middleware.go's responseWriter.
func (s *server) recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", wrapped.status, "duration_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// handleStream decodes a RunAgentInput body and streams the run's
// events back as text/event-stream. Status codes per spec.md §6:
// decode/validation failures → 400, an always_deny authorization mode
// denying the whole run → 403, an error returned by HandleRun → 500.
// Once streaming begins the response is
// already committed to 200; mid-run tool/agent failures (422 in the
// pre-stream taxonomy) surface as a RunError event instead, per §7's
// propagation policy.
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	var in agimsg.RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if in.ThreadID == "" {
		http.Error(w, "thread_id is required", http.StatusBadRequest)
		return
	}
	for _, m := range in.Messages {
		if err := m.Validate(); err != nil {
			http.Error(w, "invalid message: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if s.cfg.Authorization == agiconfig.AuthzAlwaysDeny {
		http.Error(w, "authorization denies all runs", http.StatusForbidden)
		return
	}

	events, err := s.handler.HandleRun(r.Context(), in)
	if err != nil {
		http.Error(w, "failed to start run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := agistream.WriteSSE(r.Context(), w, events); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("sse write failed", "error", err)
	}
}

// handleClearMemory clears the thread named by the thread_id query
// parameter.
func (s *server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	threadID := r.URL.Query().Get("thread_id")
	if threadID == "" {
		http.Error(w, "thread_id query parameter is required", http.StatusBadRequest)
		return
	}
	if err := s.handler.ClearMemory(r.Context(), threadID); err != nil {
		if errors.Is(err, agent.ErrThreadBusy) {
			http.Error(w, "clear memory: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "clear memory: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.handler.Health(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
