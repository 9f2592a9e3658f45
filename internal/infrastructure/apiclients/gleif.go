package apiclients

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

const (
	gleifService        = "gleif"
	defaultGleifBaseURL = "https://api.gleif.org/api/v1"

	// The registry is generous but unauthenticated. One request at a
	// time, one per second.
	gleifRequestsPerSecond = 1
	gleifBatchCap          = 20
)

// GleifConfig configures the legal-entity resolution client.
type GleifConfig struct {
	BaseURL string
}

// GleifClient resolves organization names against the GLEIF LEI registry,
// cache-first. A nil cache disables caching but not resolution.
type GleifClient struct {
	caller
	config  GleifConfig
	cache   radar.ResolutionCache
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

var _ radar.EntityResolver = (*GleifClient)(nil)

// NewGleifClient builds the client around an optional resolution cache.
func NewGleifClient(cfg GleifConfig, cache radar.ResolutionCache, logger logging.Logger, opts ...Option) *GleifClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGleifBaseURL
	}
	c := &GleifClient{
		caller:  newCaller(gleifService, logger),
		config:  cfg,
		cache:   cache,
		sem:     semaphore.NewWeighted(1),
		limiter: rate.NewLimiter(rate.Limit(gleifRequestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(&c.caller)
	}
	return c
}

// ResolveEntity resolves a single name. A nil entity without error means
// the registry knows no match (possibly remembered from the cache).
func (c *GleifClient) ResolveEntity(ctx context.Context, name string) (*radar.ResolvedEntity, error) {
	key := radar.NormalizeCacheKey(name)
	if key == "" {
		return nil, nil
	}
	if entity, found := c.cacheLookup(ctx, key); found {
		return entity, nil
	}
	entity, err := c.queryRegistry(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cacheStore(ctx, key, entity)
	return entity, nil
}

// ResolveBatch resolves names cache-first, spending at most maxAPICalls
// registry requests on the misses. Keys are upper-trimmed; the batch is
// capped at twenty names. Names past the API budget map to nil. An error
// is returned only when the batch had to stop early or every registry
// lookup failed; cache hits gathered so far are still in the map.
func (c *GleifClient) ResolveBatch(ctx context.Context, names []string, maxAPICalls int) (map[string]*radar.ResolvedEntity, error) {
	keys := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		k := radar.NormalizeCacheKey(n)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	if len(keys) > gleifBatchCap {
		c.logger.Debug("Batch capped",
			logging.Int("requested", len(keys)),
			logging.Int("cap", gleifBatchCap))
		keys = keys[:gleifBatchCap]
	}

	resolved := make(map[string]*radar.ResolvedEntity, len(keys))
	misses := make([]string, 0, len(keys))
	for _, k := range keys {
		if entity, found := c.cacheLookup(ctx, k); found {
			resolved[k] = entity
		} else {
			misses = append(misses, k)
		}
	}

	var (
		attempts int
		failures int
		lastErr  error
	)
	for _, k := range misses {
		if attempts >= maxAPICalls {
			resolved[k] = nil
			continue
		}
		if ctx.Err() != nil {
			return resolved, errors.Wrap(ctx.Err(), errors.CodeAPIRequestFailed, "gleif: batch aborted")
		}
		attempts++
		entity, err := c.queryRegistry(ctx, k)
		if err != nil {
			failures++
			lastErr = err
			resolved[k] = nil
			c.logger.Warn("Registry lookup failed",
				logging.String("name", k),
				logging.Err(err))
			continue
		}
		c.cacheStore(ctx, k, entity)
		resolved[k] = entity
	}

	if attempts > 0 && failures == attempts {
		return resolved, errors.Wrap(lastErr, errors.CodeAPIRequestFailed, "gleif: every registry lookup failed")
	}
	return resolved, nil
}

// cacheLookup returns (entity, true) on a cache hit, where a negative
// entry yields (nil, true). Cache errors degrade to a miss.
func (c *GleifClient) cacheLookup(ctx context.Context, key string) (*radar.ResolvedEntity, bool) {
	if c.cache == nil {
		return nil, false
	}
	entry, err := c.cache.Lookup(ctx, key)
	if err != nil {
		c.logger.Warn("Cache lookup failed", logging.String("name", key), logging.Err(err))
		c.metrics.ResolutionCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if entry == nil {
		c.metrics.ResolutionCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if entry.IsNegative() {
		c.metrics.ResolutionCacheTotal.WithLabelValues("negative").Inc()
		return nil, true
	}
	c.metrics.ResolutionCacheTotal.WithLabelValues("hit").Inc()
	return entry.Entity(), true
}

// cacheStore remembers a resolution; a nil entity becomes a negative row
// so the registry is not asked again for a name it does not know.
func (c *GleifClient) cacheStore(ctx context.Context, key string, entity *radar.ResolvedEntity) {
	if c.cache == nil {
		return
	}
	entry := &radar.ResolutionCacheEntry{RawName: key, ResolvedAt: time.Now().UTC()}
	if entity != nil {
		entry.LEI = &entity.LEI
		entry.LegalName = &entity.LegalName
		entry.Country = &entity.Country
		entry.City = &entity.City
	}
	if err := c.cache.Store(ctx, entry); err != nil {
		c.logger.Warn("Cache store failed", logging.String("name", key), logging.Err(err))
	}
}

// queryRegistry performs one rate-limited registry request. A nil entity
// without error means no record matched.
func (c *GleifClient) queryRegistry(ctx context.Context, name string) (*radar.ResolvedEntity, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, errors.CodeAPIRequestFailed, "gleif: waiting for request slot")
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeAPIRequestFailed, "gleif: waiting for rate limiter")
	}

	q := url.Values{}
	q.Set("filter[entity.legalName]", name)
	q.Set("page[size]", "1")

	var payload leiRecordsPayload
	if err := c.getJSON(ctx, c.config.BaseURL+"/lei-records?"+q.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}

	attrs := payload.Data[0].Attributes
	return &radar.ResolvedEntity{
		LEI:       attrs.LEI,
		LegalName: attrs.Entity.LegalName.Name,
		Country:   attrs.Entity.LegalAddress.Country,
		City:      attrs.Entity.LegalAddress.City,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire format
// ─────────────────────────────────────────────────────────────────────────────

type leiRecordsPayload struct {
	Data []struct {
		Attributes leiAttributes `json:"attributes"`
	} `json:"data"`
}

type leiAttributes struct {
	LEI    string `json:"lei"`
	Entity struct {
		LegalName struct {
			Name string `json:"name"`
		} `json:"legalName"`
		LegalAddress struct {
			Country string `json:"country"`
			City    string `json:"city"`
		} `json:"legalAddress"`
	} `json:"entity"`
}
