package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http/middleware"
)

func newTestMetrics(t *testing.T) (*prometheus.RadarMetrics, http.Handler) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "test",
	}, nil)
	require.NoError(t, err)
	return prometheus.NewRadarMetrics(collector), collector.Handler()
}

func scrape(t *testing.T, exposition http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	exposition.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHTTPMetrics_RecordsRoutePattern(t *testing.T) {
	metrics, exposition := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(middleware.HTTPMetrics(metrics))
	r.Get("/api/v1/suggestions", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/suggestions?q=x", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	body := scrape(t, exposition)
	assert.Contains(t, body,
		`test_http_requests_total{method="GET",path="/api/v1/suggestions",status="200"} 3`)
	assert.Contains(t, body,
		`test_http_request_duration_seconds_count{method="GET",path="/api/v1/suggestions"} 3`)
}

func TestHTTPMetrics_LabelsUnmatchedRoutes(t *testing.T) {
	metrics, exposition := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(middleware.HTTPMetrics(metrics))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := scrape(t, exposition)
	assert.Contains(t, body,
		`test_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
}
