package prometheus

// RadarMetrics bundles every instrument the service emits. Panels and
// outbound clients receive the struct and pick the vectors they need.
type RadarMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec   // labels: method, path, status
	HTTPRequestDuration HistogramVec // labels: method, path
	HTTPActiveRequests  GaugeVec     // labels: method

	// Radar orchestration
	RadarRequestsTotal CounterVec   // labels: outcome (ok|validation_error|error)
	PanelDuration      HistogramVec // labels: panel
	PanelFailuresTotal CounterVec   // labels: panel, reason (timeout|error)

	// Outbound APIs
	OutboundRequestsTotal CounterVec   // labels: service, outcome (ok|error|circuit_open)
	OutboundDuration      HistogramVec // labels: service

	// Entity resolution cache
	ResolutionCacheTotal CounterVec // labels: result (hit|miss|negative)

	// Store layer
	StoreQueryDuration HistogramVec // labels: store, query
}

// Histogram bucket presets.
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultPanelDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30}
	DefaultStoreDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewRadarMetrics registers every instrument on the collector. A nil
// collector yields all-noop instruments so wiring stays unconditional.
func NewRadarMetrics(collector MetricsCollector) *RadarMetrics {
	if collector == nil {
		collector = NewNopCollector()
	}
	return &RadarMetrics{
		HTTPRequestsTotal: collector.RegisterCounter(
			"http_requests_total", "Total HTTP requests served.", "method", "path", "status"),
		HTTPRequestDuration: collector.RegisterHistogram(
			"http_request_duration_seconds", "HTTP request latency.", DefaultHTTPDurationBuckets, "method", "path"),
		HTTPActiveRequests: collector.RegisterGauge(
			"http_active_requests", "In-flight HTTP requests.", "method"),

		RadarRequestsTotal: collector.RegisterCounter(
			"radar_requests_total", "Radar analyses by outcome.", "outcome"),
		PanelDuration: collector.RegisterHistogram(
			"radar_panel_duration_seconds", "Per-panel computation time.", DefaultPanelDurationBuckets, "panel"),
		PanelFailuresTotal: collector.RegisterCounter(
			"radar_panel_failures_total", "Panels replaced by their empty value.", "panel", "reason"),

		OutboundRequestsTotal: collector.RegisterCounter(
			"outbound_requests_total", "Upstream API requests by outcome.", "service", "outcome"),
		OutboundDuration: collector.RegisterHistogram(
			"outbound_request_duration_seconds", "Upstream API latency.", DefaultHTTPDurationBuckets, "service"),

		ResolutionCacheTotal: collector.RegisterCounter(
			"entity_resolution_cache_total", "GLEIF cache lookups by result.", "result"),

		StoreQueryDuration: collector.RegisterHistogram(
			"store_query_duration_seconds", "SQLite query latency.", DefaultStoreDurationBuckets, "store", "query"),
	}
}
