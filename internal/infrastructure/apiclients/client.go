// Package apiclients implements the outbound HTTP adapters: OpenAIRE
// publication counts, Semantic Scholar paper search and GLEIF legal-entity
// resolution. Every client shares the same plumbing: an instrumented GET
// behind a sony/gobreaker circuit breaker, so a flapping upstream degrades
// a single panel instead of stalling the whole analysis.
package apiclients

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

const (
	defaultRequestTimeout = 15 * time.Second

	// Breaker policy shared by all outbound clients.
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// NewBreaker builds the circuit breaker every outbound client uses: it
// opens after five consecutive failures and probes again after 30s.
func NewBreaker(service string, logger logging.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    service,
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				logging.String("service", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
	})
}

// Option adjusts the shared plumbing of an outbound client.
type Option func(*caller)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *caller) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(breaker *gobreaker.CircuitBreaker) Option {
	return func(c *caller) {
		if breaker != nil {
			c.breaker = breaker
		}
	}
}

// WithMetrics attaches the shared instrument set.
func WithMetrics(metrics *prometheus.RadarMetrics) Option {
	return func(c *caller) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// caller is the instrumented transport every client embeds: one GET
// through the breaker, outcome counted, latency observed.
type caller struct {
	service    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     logging.Logger
	metrics    *prometheus.RadarMetrics
}

func newCaller(service string, logger logging.Logger) caller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return caller{
		service:    service,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		breaker:    NewBreaker(service, logger),
		logger:     logger.Named(service),
		metrics:    prometheus.NewRadarMetrics(nil),
	}
}

// getJSON performs a GET through the circuit breaker and decodes the JSON
// body into out. Breaker-open errors carry CodeAPICircuitOpen so callers
// can tell a tripped breaker from an upstream failure.
func (c *caller) getJSON(ctx context.Context, rawURL string, header http.Header, out interface{}) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doGet(ctx, rawURL, header, out)
	})
	c.metrics.OutboundDuration.WithLabelValues(c.service).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.OutboundRequestsTotal.WithLabelValues(c.service, "ok").Inc()
		return nil
	case stdliberrors.Is(err, gobreaker.ErrOpenState) || stdliberrors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.OutboundRequestsTotal.WithLabelValues(c.service, "circuit_open").Inc()
		return errors.Wrap(err, errors.CodeAPICircuitOpen, c.service+": circuit breaker open")
	default:
		c.metrics.OutboundRequestsTotal.WithLabelValues(c.service, "error").Inc()
		return err
	}
}

func (c *caller) doGet(ctx context.Context, rawURL string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeAPIRequestFailed, c.service+": building request")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CodeAPIRequestFailed, c.service+": request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Newf(errors.CodeAPIAuthFailed, "%s: authentication rejected (HTTP %d)", c.service, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.Newf(errors.CodeAPIRateLimited, "%s: rate limited (HTTP %d)", c.service, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return errors.Newf(errors.CodeAPIRequestFailed, "%s: unexpected status %d", c.service, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, c.service+": decoding response")
	}
	return nil
}
