package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/common/cache"
	"github.com/lyzr/coffeeroster/common/logger"
)

const (
	nextBuyerCacheKey      = "roster:next-buyer"
	nextBuyerGenerationKey = "roster:next-buyer:generation"

	defaultNextBuyerTTL = time.Minute
)

// cachedNextBuyer is a view tagged with the generation it was computed under
type cachedNextBuyer struct {
	Generation int64                `json:"generation"`
	View       models.NextBuyerView `json:"view"`
}

// NextBuyerCache memoizes the derived next-buyer view. A nil cache disables it.
// Cache failures are logged and never fail the request.
//
// Every mutation bumps a generation counter. A view is only served while the
// counter still matches the value read before the view was computed, so a
// computation that raced with a mutation is never served. Entries also
// expire after ttl to bound staleness across replicas with private caches.
type NextBuyerCache struct {
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewNextBuyerCache wraps c; a nil c yields a cache that never hits.
// A non-positive ttl falls back to one minute.
func NewNextBuyerCache(c cache.Cache, ttl time.Duration, log *logger.Logger) *NextBuyerCache {
	if ttl <= 0 {
		ttl = defaultNextBuyerTTL
	}
	return &NextBuyerCache{cache: c, ttl: ttl, log: log}
}

// generation reads the current counter. ok is false when caching is
// unavailable for this request.
func (c *NextBuyerCache) generation(ctx context.Context) (gen int64, ok bool) {
	if c == nil || c.cache == nil {
		return 0, false
	}
	data, found, err := c.cache.Get(ctx, nextBuyerGenerationKey)
	if err != nil {
		c.log.Warn("next buyer generation read failed", "error", err)
		return 0, false
	}
	if !found {
		return 0, true
	}
	gen, err = strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		c.log.Warn("next buyer generation corrupt", "error", err)
		return 0, false
	}
	return gen, true
}

func (c *NextBuyerCache) get(ctx context.Context, gen int64) (*models.NextBuyerView, bool) {
	data, found, err := c.cache.Get(ctx, nextBuyerCacheKey)
	if err != nil {
		c.log.Warn("next buyer cache read failed", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var entry cachedNextBuyer
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.Warn("next buyer cache entry corrupt", "error", err)
		return nil, false
	}
	if entry.Generation != gen {
		return nil, false
	}
	return &entry.View, true
}

// put stores view unless a mutation happened since gen was read
func (c *NextBuyerCache) put(ctx context.Context, gen int64, view models.NextBuyerView) {
	current, ok := c.generation(ctx)
	if !ok || current != gen {
		return
	}
	data, err := json.Marshal(cachedNextBuyer{Generation: gen, View: view})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, nextBuyerCacheKey, data, c.ttl); err != nil {
		c.log.Warn("next buyer cache write failed", "error", err)
	}
}

func (c *NextBuyerCache) invalidate(ctx context.Context) {
	if c == nil || c.cache == nil {
		return
	}
	var errs []error
	if _, err := c.cache.Incr(ctx, nextBuyerGenerationKey); err != nil {
		errs = append(errs, err)
	}
	if err := c.cache.Delete(ctx, nextBuyerCacheKey); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		c.log.Warn("next buyer cache invalidation failed", "error", err)
	}
}
