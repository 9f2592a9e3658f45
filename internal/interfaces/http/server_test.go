package http_test

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	httpapi "github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServer_AddrFromConfig(t *testing.T) {
	srv := httpapi.NewServer(config.ServerConfig{Host: "0.0.0.0", Port: 8000},
		http.NotFoundHandler(), nil)
	assert.Equal(t, "0.0.0.0:8000", srv.Addr())
}

func TestServer_StartServesUntilShutdown(t *testing.T) {
	cfg := config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         freePort(t),
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httpapi.NewServer(cfg, handler, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var (
		resp *http.Response
		err  error
	)
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + srv.Addr() + "/")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case startErr := <-errCh:
		assert.NoError(t, startErr, "clean shutdown must not surface ErrServerClosed")
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
