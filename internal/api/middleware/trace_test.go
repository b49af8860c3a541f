package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/artisan-api/internal/api/middleware"
	"github.com/phrazzld/artisan-api/internal/api/shared"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.NewBufferedLogger()

	var (
		seenTraceID string
		handlerLog  bool
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTraceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		handlerLog = true
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	middleware.NewTraceMiddleware(log)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	require.True(t, handlerLog)
	assert.Len(t, seenTraceID, 32)
	assert.Equal(t, seenTraceID, rec.Header().Get(shared.TraceIDHeader))

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e["msg"] == "inside handler" {
			found = true
			assert.Equal(t, seenTraceID, e["trace_id"])
		}
	}
	assert.True(t, found, "handler log carries the trace ID")
}
