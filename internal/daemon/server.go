package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/BrambyRS/lap-opt/internal/logfields"
	"github.com/BrambyRS/lap-opt/internal/metrics"
	"github.com/BrambyRS/lap-opt/internal/state"
	"github.com/BrambyRS/lap-opt/internal/version"
)

// StatusServer exposes daemon health, build history, and Prometheus metrics.
type StatusServer struct {
	store    *state.Store
	registry *prom.Registry
	started  time.Time
}

// NewStatusServer creates the HTTP surface. store may be nil when history is
// disabled; the endpoints then report empty results.
func NewStatusServer(store *state.Store, registry *prom.Registry) *StatusServer {
	return &StatusServer{
		store:    store,
		registry: registry,
		started:  time.Now(),
	}
}

// Handler returns the daemon's HTTP mux.
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/builds", s.handleBuilds)
	if s.registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.registry))
	}
	return mux
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"version":        version.Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}

	if s.store != nil {
		stats, err := s.store.Stats(r.Context())
		if err != nil {
			slog.Error("Failed to aggregate build stats", logfields.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		payload["builds"] = stats
	}

	writeJSON(w, http.StatusOK, payload)
}

func (s *StatusServer) handleBuilds(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	if s.store == nil {
		writeJSON(w, http.StatusOK, []state.BuildRecord{})
		return
	}

	records, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to load build history", logfields.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	if records == nil {
		records = []state.BuildRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Debug("Failed to encode response", logfields.Error(err))
	}
}
