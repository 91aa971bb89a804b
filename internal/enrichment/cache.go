package enrichment

import (
	"context"
	"time"

	"github.com/drewfead/movies2ical/internal"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Middleware wraps a MetadataProvider.
type Middleware func(internal.MetadataProvider) internal.MetadataProvider

// Chain applies middleware to inner; the first middleware ends up outermost.
func Chain(inner internal.MetadataProvider, mw ...Middleware) internal.MetadataProvider {
	for i := len(mw) - 1; i >= 0; i-- {
		inner = mw[i](inner)
	}
	return inner
}

// Cached returns middleware that keeps lookups in memory (LRU + TTL), so a film
// listed on several days or pages is only looked up once per run:
//
//	enrichment.Chain(provider, enrichment.Cached(64, time.Hour))
//
// maxEntries is the LRU size; ttl is how long entries stay valid (zero = no expiration).
// Failed lookups are not cached.
func Cached(maxEntries int, ttl time.Duration) Middleware {
	return func(inner internal.MetadataProvider) internal.MetadataProvider {
		if inner == nil {
			return nil
		}
		if maxEntries <= 0 {
			maxEntries = 64
		}
		return &cachingMetadata{
			inner: inner,
			cache: expirable.NewLRU[string, internal.FilmMetadata](maxEntries, nil, ttl),
		}
	}
}

type cachingMetadata struct {
	inner internal.MetadataProvider
	cache *expirable.LRU[string, internal.FilmMetadata]
}

func (c *cachingMetadata) Lookup(ctx context.Context, filmID string) (internal.FilmMetadata, error) {
	if md, ok := c.cache.Get(filmID); ok {
		return md, nil
	}
	md, err := c.inner.Lookup(ctx, filmID)
	if err != nil {
		return internal.FilmMetadata{}, err
	}
	c.cache.Add(filmID, md)
	return md, nil
}
