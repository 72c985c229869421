// Package health implements the agent's minimal HTTP health/metrics surface
// (§4.14), grounded on original_source's monitoring/{health,metrics} module
// (the distilled spec named this as an external collaborator but specified
// no shape) and built on stdlib net/http + http.ServeMux — the teacher never
// imports a web framework, and neither does anything else in the example
// pack, so none is introduced here (see DESIGN.md's stdlib justification).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/alejandrodnm/polyagent/internal/scheduler"
)

// Store is the single-writer/multi-reader snapshot the Scheduler writes
// after every cycle and the HTTP handlers read: one writer, arbitrarily
// many concurrent readers, protected by an RWMutex (§5 shared mutable
// state).
type Store struct {
	mu       sync.RWMutex
	snapshot scheduler.Snapshot
}

// NewStore builds an empty Store. /healthz reports unhealthy until the
// first cycle completes and calls Write.
func NewStore() *Store {
	return &Store{}
}

// Write records the latest cycle snapshot. Called by the Scheduler only.
func (s *Store) Write(snap scheduler.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
}

func (s *Store) read() scheduler.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Server exposes /healthz and /metrics over HTTP.
type Server struct {
	store *Store
	http  *http.Server
}

// NewServer builds a Server bound to addr, backed by store.
func NewServer(addr string, store *Store) *Server {
	mux := http.NewServeMux()
	srv := &Server{store: store}
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/metrics", srv.handleMetrics)
	srv.http = &http.Server{Addr: addr, Handler: mux}
	return srv
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleHealthz reports 200 while the last cycle completed within
// 2×cycle_interval_seconds of the recorded interval, 503 otherwise
// (including before the first cycle has run).
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.read()
	if snap.LastCycleAt.IsZero() {
		http.Error(w, "no cycle completed yet", http.StatusServiceUnavailable)
		return
	}

	window := time.Duration(snap.CycleIntervalSec) * time.Second * 2
	if window <= 0 {
		window = 2 * time.Minute
	}
	if time.Since(snap.LastCycleAt) > window {
		http.Error(w, "stale cycle", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleMetrics reports the last cycle's number and completion time, the
// current agent state, bankroll, and open position count.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.read()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"last_cycle_number": snap.LastCycleNumber,
		"last_cycle_at":     snap.LastCycleAt,
		"state":             snap.State.String(),
		"bankroll":          snap.Bankroll.String(),
		"open_positions":    snap.OpenPositions,
	})
}
