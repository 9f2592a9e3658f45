// Package middleware provides the HTTP middleware chain of the radar API:
// request logging, prometheus instrumentation, and per-client rate limiting.
// CORS and panic recovery come from go-chi and are wired in the router.
package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
)

// LoggingConfig controls the request logging middleware.
type LoggingConfig struct {
	// SkipPaths are not logged at all (health probes, metrics scrapes).
	SkipPaths []string

	// SlowThreshold raises the log level of slower requests to Warn.
	// Zero disables the check.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig returns the production logging configuration. The
// slow threshold sits above typical radar latency with live upstream calls,
// so only genuinely stuck requests are flagged.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/health", "/metrics"},
		SlowThreshold: 10 * time.Second,
	}
}

// wrappedResponseWriter captures the status code and bytes written.
type wrappedResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newWrappedResponseWriter(w http.ResponseWriter) *wrappedResponseWriter {
	return &wrappedResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // default if WriteHeader is never called
	}
}

// WriteHeader captures the status code.
func (w *wrappedResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write captures the number of bytes written.
func (w *wrappedResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Hijack passes through to the underlying writer when it supports hijacking.
func (w *wrappedResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

// Flush passes through to the underlying writer when it supports flushing.
func (w *wrappedResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// RequestLogging returns middleware that logs one line per request with the
// chi request ID, method, path, status, and duration. 5xx responses log at
// Error, 4xx and slow requests at Warn, everything else at Info.
func RequestLogging(logger logging.Logger, config LoggingConfig) func(http.Handler) http.Handler {
	log := logger.Named("http")
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSet[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)
			duration := time.Since(start)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", wrapped.statusCode),
				logging.Duration("duration", duration),
				logging.Int64("bytes", wrapped.bytesWritten),
				logging.String("remote_addr", r.RemoteAddr),
				logging.String("request_id", chimw.GetReqID(r.Context())),
			}

			switch {
			case wrapped.statusCode >= 500:
				log.Error("request failed", fields...)
			case wrapped.statusCode >= 400:
				log.Warn("request rejected", fields...)
			case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
				log.Warn("request slow", fields...)
			default:
				log.Info("request served", fields...)
			}
		})
	}
}
