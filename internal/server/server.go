// Package server exposes the transcription coordinator over HTTP: multipart
// upload, caption export, and the monitoring surface.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"captiond/internal/config"
	"captiond/internal/transcriber"
)

const (
	serviceName = "audio-transcription-api"
	version     = "2.0.0"
)

// Server wires the coordinator into HTTP handlers.
type Server struct {
	cfg     *config.Config
	coord   *transcriber.Coordinator
	metrics *transcriber.CounterSink
	started time.Time
	mux     *http.ServeMux
}

// New builds a Server around a coordinator. The counter sink must be the one
// the coordinator was constructed with.
func New(cfg *config.Config, coord *transcriber.Coordinator, metrics *transcriber.CounterSink) *Server {
	s := &Server{
		cfg:     cfg,
		coord:   coord,
		metrics: metrics,
		started: time.Now(),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	s.mux.HandleFunc("POST /export", s.handleExport)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /progress/{id}", s.handleProgress)

	return s
}

// Handler returns the HTTP handler tree.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "err", err)
	}
}

type errorResponse struct {
	Error     string  `json:"error"`
	Timestamp float64 `json:"timestamp"`
}

// writeError maps the coordinator error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *transcriber.ValidationError
		upstreamErr   *transcriber.UpstreamError
		canceledErr   *transcriber.CanceledError
		tooLargeErr   *payloadTooLargeError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &tooLargeErr):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &upstreamErr):
		status = http.StatusBadGateway
	case errors.As(err, &canceledErr):
		// Caller abandoned the request; the response usually goes nowhere.
		status = http.StatusRequestTimeout
	}

	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": float64(time.Now().UnixMilli()) / 1000,
		"service":   serviceName,
		"version":   version,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats := s.coord.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"cache": map[string]any{
			"size":        stats.CacheEntries,
			"ttl_seconds": int(stats.CacheTTL.Seconds()),
			"sample_keys": stats.SampleKeys,
		},
		"service": map[string]any{
			"uptime_seconds":  time.Since(s.started).Seconds(),
			"version":         version,
			"max_connections": stats.MaxConnections,
		},
		"counters": s.metrics.Snapshot(),
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	info, ok := s.coord.Progress(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:     "unknown transcript id",
			Timestamp: float64(time.Now().UnixMilli()) / 1000,
		})
		return
	}
	writeJSON(w, http.StatusOK, info)
}
