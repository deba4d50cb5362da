package fundamental

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/krxbrief/pkg/models"
)

// ErrSharesUnavailable is returned when no step of the shares chain produced
// a positive count.
var ErrSharesUnavailable = errors.New("fundamental: shares outstanding unavailable")

// SharesLookup fetches the total issued share count for an instrument as of
// a business year from an external source. A year of zero or less means the
// latest filed year.
type SharesLookup interface {
	TotalShares(ctx context.Context, inst models.Instrument, year int) (int64, error)
}

// SharesCache is a process-wide, eviction-free store of issued share counts
// keyed by instrument. Each key is written once; concurrent misses for the
// same key share one lookup.
type SharesCache struct {
	store *cache.Cache
	group singleflight.Group
}

// NewSharesCache creates an empty cache.
func NewSharesCache() *SharesCache {
	return &SharesCache{store: cache.New(cache.NoExpiration, 0)}
}

// Get returns the cached count for key.
func (c *SharesCache) Get(key string) (int64, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

// Put stores n under key unless a value is already present. It reports
// whether n was stored.
func (c *SharesCache) Put(key string, n int64) bool {
	return c.store.Add(key, n, cache.NoExpiration) == nil
}

// Len returns the number of cached instruments.
func (c *SharesCache) Len() int {
	return c.store.ItemCount()
}

// SharesResolver resolves shares outstanding through, in order: market cap
// over price, the cache, then a live lookup whose result is cached.
type SharesResolver struct {
	cache  *SharesCache
	lookup SharesLookup
}

// NewSharesResolver creates a resolver. lookup may be nil, in which case the
// chain stops at the cache.
func NewSharesResolver(c *SharesCache, lookup SharesLookup) *SharesResolver {
	if c == nil {
		c = NewSharesCache()
	}
	return &SharesResolver{cache: c, lookup: lookup}
}

// Cache returns the resolver's cache.
func (r *SharesResolver) Cache() *SharesCache { return r.cache }

// Resolve returns a positive share count and the step that produced it. year
// selects the business year of the live lookup; cached counts are kept per
// year.
func (r *SharesResolver) Resolve(ctx context.Context, inst models.Instrument, year int, marketCap *float64, price float64) (int64, models.SharesSource, error) {
	if marketCap != nil && *marketCap > 0 && price > 0 {
		if n := int64(math.Round(*marketCap / price)); n > 0 {
			return n, models.SharesFromMarketCap, nil
		}
	}

	key := cacheKey(inst, year)
	if key == "" {
		return 0, "", ErrSharesUnavailable
	}
	if n, ok := r.cache.Get(key); ok {
		return n, models.SharesFromCache, nil
	}
	if r.lookup == nil {
		return 0, "", ErrSharesUnavailable
	}

	v, err, _ := r.cache.group.Do(key, func() (any, error) {
		if n, ok := r.cache.Get(key); ok {
			return n, nil
		}
		n, err := r.lookup.TotalShares(ctx, inst, year)
		if err != nil {
			return int64(0), err
		}
		if n <= 0 {
			return int64(0), ErrSharesUnavailable
		}
		if r.cache.Put(key, n) {
			log.Debug().Str("ticker", inst.Ticker).Int64("shares", n).Msg("cached issued shares")
		}
		return n, nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("shares lookup for %s: %w", key, err)
	}
	return v.(int64), models.SharesFromLookup, nil
}

func cacheKey(inst models.Instrument, year int) string {
	id := inst.Ticker
	if id == "" {
		id = inst.CorpCode
	}
	if id == "" || year <= 0 {
		return id
	}
	return fmt.Sprintf("%s/%d", id, year)
}
