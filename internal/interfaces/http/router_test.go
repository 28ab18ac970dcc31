package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/internal/infrastructure/journal"
	"github.com/biocad/anbase/internal/interfaces/http/handlers"
	"github.com/biocad/anbase/internal/testutil"
)

type stubProgress struct{}

func (stubProgress) Progress() journal.Counts { return journal.Counts{Processed: 4, Failed: 1} }
func (stubProgress) Stage() string            { return "process" }

func newTestRouter(checkers ...handlers.HealthChecker) http.Handler {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("anbase_complexes_total 1\n"))
	})
	return NewRouter(RouterConfig{
		HealthHandler:   handlers.NewHealthHandler("test", checkers...),
		ProgressHandler: handlers.NewProgressHandler("r1", stubProgress{}),
		Metrics:         metrics,
		Logger:          testutil.NewMockLogger(),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusOK, get(t, r, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/readyz").Code)

	m := get(t, r, "/metrics")
	assert.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), "anbase_complexes_total")

	p := get(t, r, "/progress")
	require.Equal(t, http.StatusOK, p.Code)
	var body handlers.ProgressResponse
	require.NoError(t, json.Unmarshal(p.Body.Bytes(), &body))
	assert.Equal(t, "r1", body.RunID)
	assert.Equal(t, "process", body.Stage)
	assert.Equal(t, 4, body.Counts.Processed)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/v1/complexes").Code)
}

func TestNewRouter_ReadinessFailure(t *testing.T) {
	down := handlers.CheckFunc{ComponentName: "redis", Fn: func(context.Context) error { return errors.New("connection refused") }}
	r := newTestRouter(down)

	rec := get(t, r, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestNewRouter_NilHandlers(t *testing.T) {
	r := NewRouter(RouterConfig{})
	assert.Equal(t, http.StatusNotFound, get(t, r, "/healthz").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/metrics").Code)
}

//Personal.AI order the ending
