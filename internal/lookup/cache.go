package lookup

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// cachedResult holds a hit or a remembered miss (nil match).
type cachedResult struct {
	match *sparketl.SongMatch
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// CachingResolver memoizes another resolver. Entries expire after the TTL
// and the oldest entries are evicted beyond capacity. Expiry is checked on
// access, so no background goroutine is started.
type CachingResolver struct {
	next    sparketl.LookupResolver
	cache   *ttlcache.Cache[string, cachedResult]
	cacheMu sync.Mutex
}

// NewCachingResolver wraps next with a cache. A capacity of 0 leaves the
// cache unbounded. Panics if next is nil or ttl is not positive.
func NewCachingResolver(next sparketl.LookupResolver, ttl time.Duration, capacity int) *CachingResolver {
	if next == nil {
		panic("next resolver cannot be nil")
	}
	if ttl <= 0 {
		panic("cache ttl must be positive")
	}
	opts := []ttlcache.Option[string, cachedResult]{
		ttlcache.WithTTL[string, cachedResult](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, cachedResult](uint64(capacity)))
	}
	return &CachingResolver{
		next:  next,
		cache: ttlcache.New(opts...),
	}
}

// Resolve serves from the cache when possible and fills it otherwise.
// Errors are never cached.
func (r *CachingResolver) Resolve(ctx context.Context, q sparketl.SongQuerier, title, artistName string, duration float64) (*sparketl.SongMatch, error) {
	key := cacheKey(title, artistName, duration)

	r.cacheMu.Lock()
	item := r.cache.Get(key)
	r.cacheMu.Unlock()
	if item != nil {
		return copyMatch(item.Value().match), nil
	}

	match, err := r.next.Resolve(ctx, q, title, artistName, duration)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache.Set(key, cachedResult{match: copyMatch(match)}, ttlcache.DefaultTTL)
	r.cacheMu.Unlock()

	return match, nil
}

// Stats returns cumulative cache metrics.
func (r *CachingResolver) Stats() CacheStats {
	m := r.cache.Metrics()
	return CacheStats{Hits: m.Hits, Misses: m.Misses, Evictions: m.Evictions}
}

// Len returns the number of cached entries, expired ones included until touched.
func (r *CachingResolver) Len() int {
	return r.cache.Len()
}

func cacheKey(title, artistName string, duration float64) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte(0)
	b.WriteString(artistName)
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(duration, 'g', -1, 64))
	return b.String()
}

func copyMatch(m *sparketl.SongMatch) *sparketl.SongMatch {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

var _ sparketl.LookupResolver = (*CachingResolver)(nil)
