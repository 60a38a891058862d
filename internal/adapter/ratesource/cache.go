package ratesource

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// Cached wraps a RateSource with a TTL cache and single-flight deduplication:
// concurrent lookups for the same pair share one upstream call, and recent
// answers are served from memory. Failures are never cached.
type Cached struct {
	source domain.RateSource
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
	sf      singleflight.Group
}

type cacheEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// NewCached wraps the given source with a TTL cache. ttl zero or negative
// falls back to one minute.
func NewCached(source domain.RateSource, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cached{
		source:  source,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Rate implements domain.RateSource
func (c *Cached) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	key := pairKey(from, to)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.rate, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		rate, err := c.source.Rate(ctx, from, to)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{rate: rate, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return rate, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return result.(decimal.Decimal), nil
}
