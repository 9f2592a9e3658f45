package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// Idle buckets are evicted so a scan of client IPs cannot grow the map
// without bound.
const (
	clientBucketTTL = 10 * time.Minute
	janitorInterval = time.Minute
)

// ClientLimiter applies a per-client token bucket keyed by remote IP. The
// RealIP middleware runs earlier in the chain, so RemoteAddr already holds
// the effective client address behind trusted proxies.
type ClientLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientBucket

	stop     chan struct{}
	stopOnce sync.Once
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a limiter allowing rps sustained requests per
// second with the given burst per client, and starts its eviction janitor.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	l := &ClientLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientBucket),
		stop:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Handler wraps next with the rate limit check. Rejected requests receive
// the standard error envelope with status 429.
func (l *ClientLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			appErr := errors.RateLimited("rate limit exceeded")
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(errors.HTTPStatus(appErr))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"code":    string(appErr.Code),
					"message": appErr.Message,
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop terminates the eviction janitor. The server lets the limiter live for
// the process lifetime; tests call this to avoid leaking goroutines.
func (l *ClientLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *ClientLimiter) allow(key string) bool {
	l.mu.Lock()
	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()
	return b.limiter.Allow()
}

func (l *ClientLimiter) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-clientBucketTTL)
			l.mu.Lock()
			for key, b := range l.clients {
				if b.lastSeen.Before(cutoff) {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// clientKey strips the ephemeral port so every connection from one host
// shares a bucket.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
