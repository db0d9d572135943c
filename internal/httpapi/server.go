// Package httpapi implements the operational HTTP surface (A5) the
// Supervisor exposes: GET /health, GET /metrics, GET
// /api/monitor/status|health|events, POST /api/monitor/pause, and the
// push bus's websocket upgrade route. Grounded on the teacher's plain
// net/http idiom (no router library appears anywhere in the example
// corpus's go.mods; see DESIGN.md).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/push"
	"github.com/IronicDeGawd/SomniaForge-Chainguard-sub000/internal/supervisor"
)

// Server owns the operational HTTP surface.
type Server struct {
	supervisor *supervisor.Supervisor
	bus        *push.Bus
	instanceID string
	startedAt  time.Time

	httpServer *http.Server
}

// Config wires the Server's dependencies.
type Config struct {
	Addr       string
	Supervisor *supervisor.Supervisor
	Bus        *push.Bus
	InstanceID string
}

// New builds the Server and its route table but does not start
// listening; call Run to serve.
func New(cfg Config) *Server {
	s := &Server{
		supervisor: cfg.Supervisor,
		bus:        cfg.Bus,
		instanceID: cfg.InstanceID,
		startedAt:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/api/monitor/status", s.handleStatus)
	mux.HandleFunc("/api/monitor/health", s.handleMonitorHealth)
	mux.HandleFunc("/api/monitor/events", s.handleEvents)
	mux.HandleFunc("/api/monitor/pause", s.handlePause)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		gethlog.Info("httpapi: listening", "component", "httpapi", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		gethlog.Error("httpapi: failed to encode response", "component", "httpapi", "err", err)
	}
}

// handleHealth is the bare liveness probe: no dependency checks, just
// process-up confirmation.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

// handleMetrics reports the fields spec.md §6 names explicitly:
// clientsCount, instanceId, timestamp.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	clients, emitted, dropped := s.bus.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"clientsCount": clients,
		"eventsEmitted": emitted,
		"eventsDropped": dropped,
		"instanceId":   s.instanceID,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.supervisor.EventStats())
}

func (s *Server) handleMonitorHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.supervisor.Health())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.supervisor.EventStats())
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	s.supervisor.Pause(req.Paused)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.bus.ServeWebSocket(w, r)
}
