package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/biocad/anbase/internal/testutil"
)

func serve(t *testing.T, path string, status int) *testutil.MockLogger {
	t.Helper()
	log := testutil.NewMockLogger()
	h := RequestLogging(log, DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("x"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, status, rec.Code)
	return log
}

func TestRequestLogging_Levels(t *testing.T) {
	assert.True(t, serve(t, "/progress", http.StatusOK).HasMessage("debug", "HTTP request completed"))
	assert.True(t, serve(t, "/progress", http.StatusNotFound).HasMessage("warn", "HTTP request completed with client error"))
	assert.True(t, serve(t, "/progress", http.StatusInternalServerError).HasMessage("error", "HTTP request completed with server error"))
}

func TestRequestLogging_SkipsHealthAndScrapes(t *testing.T) {
	log := serve(t, "/healthz", http.StatusOK)
	assert.Empty(t, log.GetMessages())
}

//Personal.AI order the ending
