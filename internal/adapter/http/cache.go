package http

import (
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/observability"
	gocache "github.com/patrickmn/go-cache"
)

// responseCache keeps rendered API responses for a short time. Keys include the
// snapshot generation, so a new snapshot never serves an older response.
type responseCache struct {
	store   *gocache.Cache
	metrics *observability.Metrics
}

func newResponseCache(ttl time.Duration, metrics *observability.Metrics) *responseCache {
	c := &responseCache{metrics: metrics}
	if ttl > 0 {
		c.store = gocache.New(ttl, 2*ttl)
	}
	return c
}

func (c *responseCache) get(key string) (any, bool) {
	if c.store == nil {
		return nil, false
	}
	v, ok := c.store.Get(key)
	if ok {
		c.metrics.APICache.WithLabelValues("hit").Inc()
	} else {
		c.metrics.APICache.WithLabelValues("miss").Inc()
	}
	return v, ok
}

func (c *responseCache) set(key string, v any) {
	if c.store == nil {
		return
	}
	c.store.Set(key, v, gocache.DefaultExpiration)
}

func (c *responseCache) itemCount() int {
	if c.store == nil {
		return 0
	}
	return c.store.ItemCount()
}

// cacheKey identifies a response by generation, route and sorted query.
func cacheKey(generation uint64, path string, query url.Values) string {
	return strconv.FormatUint(generation, 10) + " " + path + "?" + query.Encode()
}
