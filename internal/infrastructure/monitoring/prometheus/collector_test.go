package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace: "test",
		Subsystem: "unit",
	}, logging.NewNop())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNop())
	require.Error(t, err)
}

func TestRegisterCounter_IncrementsAppearInScrape(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterCounter("requests_total", "Total requests.", "path")
	vec.WithLabelValues("/api/v1/radar").Inc()
	vec.WithLabelValues("/api/v1/radar").Inc()

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_requests_total{path="/api/v1/radar"} 2`)
}

func TestRegisterCounter_DuplicateReturnsSameInstrument(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("dup_total", "Dup.", "k")
	second := c.RegisterCounter("dup_total", "Dup.", "k")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_dup_total{k="a"} 2`)
}

func TestRegisterGauge_SetAndDec(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterGauge("active", "Active requests.", "method")
	g := vec.WithLabelValues("POST")
	g.Set(3)
	g.Dec()

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_active{method="POST"} 2`)
}

func TestRegisterHistogram_ObservationsCount(t *testing.T) {
	c := newTestCollector(t)

	vec := c.RegisterHistogram("latency_seconds", "Latency.", []float64{0.1, 1}, "panel")
	vec.WithLabelValues("maturity").Observe(0.05)
	vec.WithLabelValues("maturity").Observe(0.5)

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_latency_seconds_count{panel="maturity"} 2`)
}

func TestRegisterConflictingType_FallsBackToNoop(t *testing.T) {
	c := newTestCollector(t)

	c.RegisterCounter("same_name", "Counter.", "k")
	// Same fully-qualified name, different type: the cached counter comes
	// back, the type assertion fails, and a noop gauge is returned.
	g := c.RegisterGauge("same_name", "Gauge.", "k")
	g.WithLabelValues("x").Set(42)

	out := scrape(t, c)
	assert.NotContains(t, out, "42")
}

func TestNopCollector_ServesAndDiscards(t *testing.T) {
	c := NewNopCollector()
	c.RegisterCounter("anything", "x").WithLabelValues().Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRadarMetrics_NilCollectorIsSafe(t *testing.T) {
	m := NewRadarMetrics(nil)
	require.NotNil(t, m)
	m.PanelFailuresTotal.WithLabelValues("maturity", "timeout").Inc()
	m.PanelDuration.WithLabelValues("maturity").Observe(0.2)
}

func TestNewRadarMetrics_RegistersAllInstruments(t *testing.T) {
	c := newTestCollector(t)
	m := NewRadarMetrics(c)

	m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/radar", "200").Inc()
	m.RadarRequestsTotal.WithLabelValues("ok").Inc()
	m.PanelDuration.WithLabelValues("landscape").Observe(0.3)
	m.OutboundRequestsTotal.WithLabelValues("openaire", "ok").Inc()
	m.ResolutionCacheTotal.WithLabelValues("hit").Inc()
	m.StoreQueryDuration.WithLabelValues("patents", "count_by_year").Observe(0.01)

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_http_requests_total")
	assert.Contains(t, out, "test_unit_radar_requests_total")
	assert.Contains(t, out, "test_unit_radar_panel_duration_seconds")
	assert.Contains(t, out, "test_unit_outbound_requests_total")
	assert.Contains(t, out, "test_unit_entity_resolution_cache_total")
	assert.Contains(t, out, "test_unit_store_query_duration_seconds")
}
