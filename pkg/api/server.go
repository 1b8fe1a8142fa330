// Package api implements the HTTP compile service: rule text in, lowered
// tables out, plus health and Prometheus metrics endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camuslang/camus/pkg/p4"
	"github.com/camuslang/camus/pkg/store"
)

// maxRequestBody bounds compile request bodies.
const maxRequestBody = 1 << 20

// Config configures the API server.
type Config struct {
	Addr  string
	Store *store.Store
}

// Server is the HTTP compile service.
type Server struct {
	httpServer *http.Server
	store      *store.Store
	metrics    *metrics
	startTime  time.Time
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()

	// Health + metrics
	mux.HandleFunc("GET /health", s.healthHandler)

	// Prometheus metrics with isolated registry
	registry := prometheus.NewRegistry()
	s.metrics = newMetrics(registry)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// REST API v1
	mux.HandleFunc("POST /api/v1/compile", s.compileHandler)
	mux.HandleFunc("GET /api/v1/rules", s.rulesHandler)
	mux.HandleFunc("POST /api/v1/rules", s.setRulesHandler)
	mux.HandleFunc("POST /api/v1/commit", s.commitHandler)

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	return s
}

// Handler exposes the server's mux, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

// compileHandler compiles the posted rule text and returns the lowered
// program without touching the store state.
func (s *Server) compileHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}

	prog, err := s.store.CompileText(string(body))
	if err != nil {
		s.metrics.compileErrors.Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.recordCompile(prog)
	writeProgram(w, prog)
}

func (s *Server) rulesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":    s.store.Active(),
		"candidate": s.store.Candidate(),
		"dirty":     s.store.Dirty(),
	})
}

func (s *Server) setRulesHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	s.store.SetCandidate(string(body))
	writeJSON(w, http.StatusOK, map[string]any{"status": "candidate updated"})
}

func (s *Server) commitHandler(w http.ResponseWriter, r *http.Request) {
	prog, err := s.store.Commit("api commit")
	if err != nil {
		s.metrics.compileErrors.Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.recordCompile(prog)
	writeProgram(w, prog)
}

func (s *Server) recordCompile(prog *p4.Program) {
	s.metrics.compiles.Inc()
	s.metrics.entries.Set(float64(prog.EntryCount()))
	s.metrics.groups.Set(float64(len(prog.Groups)))
}

// writeProgram responds with the program's JSON entry array plus its
// multicast groups.
func writeProgram(w http.ResponseWriter, prog *p4.Program) {
	groups := make(map[string][]int, len(prog.Groups))
	for _, g := range prog.Groups {
		groups[fmt.Sprintf("%d", g.ID)] = g.Ports
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var entries bytes.Buffer
	if err := p4.WriteJSON(&entries, prog); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "{\"entries\":%s,\"multicast_groups\":%s}\n",
		bytes.TrimSpace(entries.Bytes()), groupsJSON)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
