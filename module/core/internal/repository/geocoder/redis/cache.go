package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nandanugg/spotwatch/module/core/domain"
	"github.com/nandanugg/spotwatch/module/core/internal/metrics"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/geocoder"
)

var _ geocoder.ReverseGeocoder = (*CachedGeocoder)(nil)

const DefaultTTL = 24 * time.Hour

// CachedGeocoder serves reverse lookups from redis, keyed by the position
// rounded to 0.01 degrees (about 1 km), and falls back to next on a miss.
// Redis errors degrade to a direct lookup.
type CachedGeocoder struct {
	rdb  *goredis.Client
	next geocoder.ReverseGeocoder
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedGeocoder(rdb *goredis.Client, next geocoder.ReverseGeocoder, ttl time.Duration, log *zap.Logger) *CachedGeocoder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedGeocoder{rdb: rdb, next: next, ttl: ttl, log: log.Named("geocache")}
}

func cacheKey(pos domain.Coordinate) string {
	return fmt.Sprintf("spotwatch:revgeo:%.2f:%.2f", pos.Lat, pos.Lon)
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, pos domain.Coordinate) (*domain.Place, error) {
	key := cacheKey(pos)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var place domain.Place
		if jerr := json.Unmarshal(raw, &place); jerr == nil {
			metrics.GeocodeCacheTotal.WithLabelValues("hit").Inc()
			return &place, nil
		}
		c.log.Warn("corrupt geocode cache entry", zap.String("key", key))
	case errors.Is(err, goredis.Nil):
		metrics.GeocodeCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.GeocodeCacheTotal.WithLabelValues("error").Inc()
		c.log.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
	}

	place, err := c.next.ReverseGeocode(ctx, pos)
	if err != nil {
		return nil, eris.Wrap(err, "reverse geocode")
	}

	if b, err := json.Marshal(place); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return place, nil
}
