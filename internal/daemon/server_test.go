package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrambyRS/lap-opt/internal/metrics"
	"github.com/BrambyRS/lap-opt/internal/state"
)

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func recordBuild(t *testing.T, store *state.Store, id, outcome string, started time.Time) {
	t.Helper()
	require.NoError(t, store.Record(context.Background(), &state.BuildRecord{
		ID:        id,
		StartedAt: started,
		Duration:  2 * time.Second,
		Outcome:   outcome,
		Engine:    "pdflatex",
		Trigger:   "cli",
	}))
}

func TestStatusServerHealth(t *testing.T) {
	srv := NewStatusServer(nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusServerStatusIncludesStats(t *testing.T) {
	store := newTestStore(t)
	recordBuild(t, store, "b1", "success", time.Now().Add(-time.Minute))
	recordBuild(t, store, "b2", "failed", time.Now())

	srv := NewStatusServer(store, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Version string       `json:"version"`
		Uptime  int          `json:"uptime_seconds"`
		Builds  *state.Stats `json:"builds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotNil(t, payload.Builds)
	assert.Equal(t, 2, payload.Builds.Total)
	assert.Equal(t, 1, payload.Builds.Successes)
	assert.Equal(t, 1, payload.Builds.Failures)
}

func TestStatusServerBuildsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	recordBuild(t, store, "old", "success", time.Now().Add(-time.Hour))
	recordBuild(t, store, "new", "success", time.Now())

	srv := NewStatusServer(store, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/builds", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var records []state.BuildRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "old", records[1].ID)
}

func TestStatusServerBuildsLimit(t *testing.T) {
	store := newTestStore(t)
	for i, id := range []string{"a", "b", "c"} {
		recordBuild(t, store, id, "success", time.Now().Add(time.Duration(i)*time.Minute))
	}

	srv := NewStatusServer(store, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/builds?limit=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var records []state.BuildRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 1)
}

func TestStatusServerBuildsRejectsBadLimit(t *testing.T) {
	srv := NewStatusServer(newTestStore(t), nil)

	for _, raw := range []string{"0", "-5", "9999", "abc"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/builds?limit="+raw, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
	}
}

func TestStatusServerBuildsWithoutStore(t *testing.T) {
	srv := NewStatusServer(nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/builds", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStatusServerMetricsEndpoint(t *testing.T) {
	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)
	recorder.IncBuildOutcome(metrics.OutcomeSuccess)

	srv := NewStatusServer(nil, registry)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reportbuild_build_outcomes_total")
}

func TestStatusServerNoMetricsWithoutRegistry(t *testing.T) {
	srv := NewStatusServer(nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
