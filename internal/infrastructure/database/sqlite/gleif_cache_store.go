package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/turtacn/TechRadar-Intelligence/internal/domain/radar"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// DefaultResolutionTTL is how long a cached entity resolution stays
// valid. LEI registrations change rarely, so the window is generous.
const DefaultResolutionTTL = 90 * 24 * time.Hour

// GleifCache persists entity-resolution results in the gleif_cache
// table. Keys are upper-cased, trimmed raw names; rows older than the
// TTL count as misses but stay on disk until Purge removes them.
type GleifCache struct {
	db  *sqlx.DB
	ttl time.Duration
}

// NewGleifCache wraps an open cache database. A non-positive ttl falls
// back to DefaultResolutionTTL.
func NewGleifCache(db *sqlx.DB, ttl time.Duration) *GleifCache {
	if ttl <= 0 {
		ttl = DefaultResolutionTTL
	}
	return &GleifCache{db: db, ttl: ttl}
}

var _ radar.ResolutionCache = (*GleifCache)(nil)

func cacheKey(rawName string) string {
	return strings.ToUpper(strings.TrimSpace(rawName))
}

// Lookup returns the cached entry for the name, or nil when the name is
// unknown or the entry has expired.
func (c *GleifCache) Lookup(ctx context.Context, rawName string) (*radar.ResolutionCacheEntry, error) {
	var entry radar.ResolutionCacheEntry
	err := c.db.GetContext(ctx, &entry, `
		SELECT raw_name, lei, legal_name, country, city, resolved_at
		FROM gleif_cache
		WHERE raw_name = ?`,
		cacheKey(rawName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to read resolution cache")
	}
	if time.Since(entry.ResolvedAt) > c.ttl {
		return nil, nil
	}
	return &entry, nil
}

// Store upserts an entry under the normalized key. A zero ResolvedAt is
// stamped with the current time.
func (c *GleifCache) Store(ctx context.Context, entry *radar.ResolutionCacheEntry) error {
	resolvedAt := entry.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO gleif_cache
			(raw_name, lei, legal_name, country, city, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cacheKey(entry.RawName), entry.LEI, entry.LegalName, entry.Country, entry.City, resolvedAt)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to write resolution cache")
	}
	return nil
}

// Purge deletes entries resolved before the cutoff.
func (c *GleifCache) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM gleif_cache WHERE resolved_at < ?`, olderThan)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to purge resolution cache")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreQueryFailed, "failed to purge resolution cache")
	}
	return n, nil
}
