package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/prometheus"
)

// HTTPMetrics returns middleware that records request counts, latencies, and
// the in-flight gauge. The path label uses the chi route pattern rather than
// the raw URL so metric cardinality stays bounded.
func HTTPMetrics(metrics *prometheus.RadarMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			active := metrics.HTTPActiveRequests.WithLabelValues(r.Method)
			active.Inc()
			defer active.Dec()

			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			metrics.HTTPRequestsTotal.
				WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern returns the matched chi route pattern after the request has
// been served, or "unmatched" for 404s and the like.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
