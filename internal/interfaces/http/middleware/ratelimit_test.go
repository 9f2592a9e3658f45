package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http/middleware"
)

func limitedHandler(l *middleware.ClientLimiter) http.Handler {
	return l.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hitFrom(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggestions", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestClientLimiter_EnforcesBurst(t *testing.T) {
	limiter := middleware.NewClientLimiter(1, 2)
	defer limiter.Stop()
	handler := limitedHandler(limiter)

	assert.Equal(t, http.StatusOK, hitFrom(handler, "10.0.0.1:41000").Code)
	assert.Equal(t, http.StatusOK, hitFrom(handler, "10.0.0.1:41001").Code)

	rec := hitFrom(handler, "10.0.0.1:41002")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "COMMON_005", env.Error.Code)
	assert.Equal(t, "rate limit exceeded", env.Error.Message)
}

func TestClientLimiter_BucketsClientsSeparately(t *testing.T) {
	limiter := middleware.NewClientLimiter(1, 1)
	defer limiter.Stop()
	handler := limitedHandler(limiter)

	assert.Equal(t, http.StatusOK, hitFrom(handler, "10.0.0.1:41000").Code)
	// Same host exhausted its bucket, regardless of source port.
	assert.Equal(t, http.StatusTooManyRequests, hitFrom(handler, "10.0.0.1:41001").Code)
	// A different host has its own bucket.
	assert.Equal(t, http.StatusOK, hitFrom(handler, "10.0.0.2:41000").Code)
}

func TestClientLimiter_StopIsIdempotent(t *testing.T) {
	limiter := middleware.NewClientLimiter(10, 20)
	limiter.Stop()
	limiter.Stop()
}
