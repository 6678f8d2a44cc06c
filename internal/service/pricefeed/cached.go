package pricefeed

import (
	"context"
	"encoding/json"
	"time"

	"LPRange/internal/domain/models"
	"LPRange/internal/domain/repository"
	"LPRange/internal/service/cache"
	applogger "LPRange/pkg/logger"
)

// CachedOracle serves quotes from a BytesCache and falls through to the
// wrapped oracle on a miss. Cache failures never fail a lookup.
type CachedOracle struct {
	next  repository.PriceOracle
	cache cache.BytesCache
	ttl   time.Duration
	l     *applogger.Logger
}

var _ repository.PriceOracle = (*CachedOracle)(nil)

func NewCachedOracle(next repository.PriceOracle, c cache.BytesCache, ttl time.Duration) *CachedOracle {
	return &CachedOracle{next: next, cache: c, ttl: ttl}
}

// SetLogger injects a structured logger.
func (o *CachedOracle) SetLogger(l *applogger.Logger) { o.l = l }

func (o *CachedOracle) Source() string { return o.next.Source() }

// cacheKeyer is implemented by oracles whose quotes depend on more than the source
// name, such as the pool they read from.
type cacheKeyer interface {
	CacheKey() string
}

func (o *CachedOracle) key() string {
	if k, ok := o.next.(cacheKeyer); ok {
		return "price:" + k.CacheKey()
	}
	return "price:" + o.next.Source()
}

func (o *CachedOracle) LatestPrice(ctx context.Context) (models.PriceQuote, error) {
	key := o.key()
	if b, ok, err := o.cache.GetBytes(ctx, key); err != nil {
		o.warn("price cache read failed", key, err)
	} else if ok {
		var q models.PriceQuote
		if err := json.Unmarshal(b, &q); err == nil && q.Price > 0 {
			return q, nil
		}
		o.warn("price cache entry unreadable", key, err)
	}

	q, err := o.next.LatestPrice(ctx)
	if err != nil {
		return models.PriceQuote{}, err
	}

	if b, err := json.Marshal(q); err == nil {
		if err := o.cache.SetBytes(ctx, key, b, o.ttl); err != nil {
			o.warn("price cache write failed", key, err)
		}
	}
	return q, nil
}

func (o *CachedOracle) warn(msg, key string, err error) {
	if o.l != nil {
		o.l.Warn(msg, applogger.String("key", key), applogger.Error(err))
	}
}
