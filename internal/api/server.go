// Package api is the HTTP adapter over the assembly pipeline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ksapi/internal/dispatch"
	"ksapi/internal/history"
	"ksapi/internal/logging"
	"ksapi/internal/pipeline"
	"ksapi/internal/registry"
)

// StatusBody is the liveness response for GET /.
const StatusBody = "Up and Running"

const (
	defaultJobLimit = 20
	maxJobLimit     = 500
)

// HistoryReader serves the job endpoints. *history.Store satisfies it.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Get(ctx context.Context, id string) (history.Entry, error)
}

// Options configures a Server.
type Options struct {
	Logger *zap.Logger
	// History is nil when job history is disabled.
	History HistoryReader
	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

// Server routes HTTP requests into the pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	history  HistoryReader
	logger   *zap.Logger
	maxBody  int64
	handler  http.Handler
}

// New builds the routes and middleware.
func New(p *pipeline.Pipeline, opts Options) *Server {
	s := &Server{
		pipeline: p,
		history:  opts.History,
		logger:   opts.Logger,
		maxBody:  opts.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxBody <= 0 {
		s.maxBody = 1 << 20
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("POST /api", s.handleAssemble)
	mux.HandleFunc("GET /api", s.handleAssemble)
	mux.HandleFunc("GET /api/targets", s.handleTargets)
	mux.HandleFunc("GET /api/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)

	s.handler = requestID(accessLog(s.logger, recoverer(s.logger, mux)))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, StatusBody); err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	raw, status, err := s.readBody(w, r)
	if err != nil {
		s.respond(w, r, status, map[string]string{"body": err.Error()})
		return
	}

	result, errs, err := s.pipeline.Run(r.Context(), raw)
	switch {
	case err != nil:
		logging.FromContext(r.Context(), s.logger).Error("assembly failed", zap.Error(err))
		msg := err.Error()
		if !errors.Is(err, dispatch.ErrEngineFault) {
			msg = "internal error"
		}
		s.respond(w, r, http.StatusInternalServerError, map[string]string{"error": msg})
	case result == nil:
		s.respond(w, r, http.StatusBadRequest, errs)
	default:
		s.respond(w, r, http.StatusOK, result)
	}
}

// readBody decodes the request body into a JSON object. An empty body is an
// empty object.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (map[string]any, int, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return map[string]any{}, http.StatusOK, nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("malformed JSON: %w", err)
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, http.StatusBadRequest, errors.New("request body must be a JSON object")
	}
	return raw, http.StatusOK, nil
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string)
	for _, f := range registry.Families() {
		out[string(f)] = registry.Names(f)
	}
	s.respond(w, r, http.StatusOK, out)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respond(w, r, http.StatusNotFound, map[string]string{"error": "job history is disabled"})
		return
	}

	limit := defaultJobLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			s.respond(w, r, http.StatusBadRequest, map[string]string{"limit": q + " is not a positive integer"})
			return
		}
		limit = min(n, maxJobLimit)
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("history query failed", zap.Error(err))
		s.respond(w, r, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{"jobs": entries})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respond(w, r, http.StatusNotFound, map[string]string{"error": "job history is disabled"})
		return
	}

	id := r.PathValue("id")
	entry, err := s.history.Get(r.Context(), id)
	switch {
	case errors.Is(err, history.ErrNotFound):
		s.respond(w, r, http.StatusNotFound, map[string]string{"error": "job " + id + " not found"})
	case err != nil:
		logging.FromContext(r.Context(), s.logger).Error("history lookup failed", zap.Error(err))
		s.respond(w, r, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
	default:
		s.respond(w, r, http.StatusOK, entry)
	}
}

// respond writes v as JSON and logs a failed write against the request.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("failed to write response",
			zap.Int("status", status),
			zap.Error(err),
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
