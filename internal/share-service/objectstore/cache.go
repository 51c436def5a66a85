package objectstore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	urlCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_url_cache_hits_total",
		Help: "Signed download URLs served from cache.",
	})
	urlCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_url_cache_misses_total",
		Help: "Signed download URLs presigned by the object store.",
	})
)

// URLCache keeps presigned download URLs for a fraction of their lifetime.
// Only signing is cached: every lookup still asks the store whether the
// object exists, so a deleted object never gets a URL.
type URLCache struct {
	next  Store
	cache *expirable.LRU[string, string]
}

// NewURLCache wraps next. ttl must stay below the download URL lifetime.
func NewURLCache(next Store, size int, ttl time.Duration) *URLCache {
	return &URLCache{
		next:  next,
		cache: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *URLCache) UploadSlot(ctx context.Context) (Slot, error) {
	return c.next.UploadSlot(ctx)
}

func (c *URLCache) Stat(ctx context.Context, ref string) error {
	return c.next.Stat(ctx, ref)
}

func (c *URLCache) PresignDownload(ctx context.Context, ref string) (string, error) {
	if u, ok := c.cache.Get(ref); ok {
		urlCacheHits.Inc()
		return u, nil
	}
	urlCacheMisses.Inc()
	u, err := c.next.PresignDownload(ctx, ref)
	if err != nil {
		return "", err
	}
	c.cache.Add(ref, u)
	return u, nil
}

// DownloadURL checks existence with the store, then signs through the cache.
func (c *URLCache) DownloadURL(ctx context.Context, ref string) (string, error) {
	return DownloadURL(ctx, c, ref)
}
