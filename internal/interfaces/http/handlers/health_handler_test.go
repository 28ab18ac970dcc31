package handlers

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
)

func ok(name string) HealthChecker {
	return CheckFunc{ComponentName: name, Fn: func(context.Context) error { return nil }}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("v1.2.3")
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body.Status)
	assert.Equal(t, "v1.2.3", body.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		checkers []HealthChecker
		code     int
		status   string
	}{
		{"no dependencies", nil, http.StatusOK, "ready"},
		{"all healthy", []HealthChecker{ok("redis"), ok("storage")}, http.StatusOK, "ready"},
		{"one down", []HealthChecker{ok("redis"), CheckFunc{ComponentName: "storage", Fn: func(context.Context) error {
			return errors.New("bucket missing")
		}}}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler("v", tt.checkers...).Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.code, rec.Code)

			var body ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Len(t, body.Components, len(tt.checkers))
		})
	}
}

type fixedProgress struct {
	counts journal.Counts
	stage  string
}

func (f fixedProgress) Progress() journal.Counts { return f.counts }
func (f fixedProgress) Stage() string            { return f.stage }

func TestProgressHandler(t *testing.T) {
	h := NewProgressHandler("42", fixedProgress{counts: journal.Counts{Processed: 7, Failed: 2, Obsolete: 1}})
	rec := httptest.NewRecorder()
	h.Progress(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"run_id":"42","stage":"","complexes":{"processed":7,"failed":2,"obsolete":1}}`, rec.Body.String())
}

//Personal.AI order the ending
