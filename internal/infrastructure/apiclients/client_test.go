package apiclients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

func newTestCaller(srv *httptest.Server) caller {
	c := newCaller("testsvc", logging.NewNop())
	c.httpClient = srv.Client()
	return c
}

func TestCaller_DecodesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	c := newTestCaller(srv)
	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, c.getJSON(context.Background(), srv.URL, nil, &out))
	assert.Equal(t, 42, out.Value)
}

func TestCaller_SendsExtraHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestCaller(srv)
	header := http.Header{}
	header.Set("X-Api-Key", "secret")
	var out struct{}
	require.NoError(t, c.getJSON(context.Background(), srv.URL, header, &out))
}

func TestCaller_StatusCodeMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   pkgerrors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, pkgerrors.CodeAPIAuthFailed},
		{"forbidden", http.StatusForbidden, pkgerrors.CodeAPIAuthFailed},
		{"too many requests", http.StatusTooManyRequests, pkgerrors.CodeAPIRateLimited},
		{"bad gateway", http.StatusBadGateway, pkgerrors.CodeAPIRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := newTestCaller(srv)
			var out struct{}
			err := c.getJSON(context.Background(), srv.URL, nil, &out)
			require.Error(t, err)
			assert.Equal(t, tt.code, pkgerrors.GetCode(err))
		})
	}
}

func TestCaller_MalformedBodyIsSerializationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value":`))
	}))
	defer srv.Close()

	c := newTestCaller(srv)
	var out struct{}
	err := c.getJSON(context.Background(), srv.URL, nil, &out)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSerialization, pkgerrors.GetCode(err))
}

func TestCaller_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestCaller(srv)
	var out struct{}
	for i := 0; i < breakerFailureThreshold; i++ {
		err := c.getJSON(context.Background(), srv.URL, nil, &out)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeAPIRequestFailed, pkgerrors.GetCode(err))
	}
	require.Equal(t, int32(breakerFailureThreshold), hits.Load())

	err := c.getJSON(context.Background(), srv.URL, nil, &out)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeAPICircuitOpen, pkgerrors.GetCode(err))
	assert.Equal(t, int32(breakerFailureThreshold), hits.Load(),
		"an open breaker must not reach the upstream")
}

func TestCaller_BreakerRecoversOnSuccess(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestCaller(srv)
	var out struct{}
	for i := 0; i < breakerFailureThreshold-1; i++ {
		require.Error(t, c.getJSON(context.Background(), srv.URL, nil, &out))
	}

	// A success before the threshold resets the consecutive-failure count.
	fail.Store(false)
	require.NoError(t, c.getJSON(context.Background(), srv.URL, nil, &out))

	fail.Store(true)
	err := c.getJSON(context.Background(), srv.URL, nil, &out)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeAPIRequestFailed, pkgerrors.GetCode(err),
		"breaker must still be closed after the reset")
}
