package hybrid

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// DefaultCacheTTL bounds how stale a cached result set may get even
// without writes.
const DefaultCacheTTL = time.Minute

// Cache memoizes search results per tenant. Ristretto has no prefix
// deletion, so invalidation bumps a per-tenant generation counter that is
// folded into every key; stale generations age out via TTL.
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration

	mu          sync.Mutex
	generations map[string]uint64
}

// NewCache creates a cache sized for roughly maxEntries result sets.
func NewCache(maxEntries int64, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating result cache: %w", err)
	}

	return &Cache{
		cache:       cache,
		ttl:         ttl,
		generations: make(map[string]uint64),
	}, nil
}

func (c *Cache) generation(tenantID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[tenantID]
}

// Invalidate drops all cached results for a tenant.
func (c *Cache) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[tenantID]++
}

// key fingerprints everything that shapes a query's result set,
// including the per-query strategy subset and weight overrides, so two
// queries only share an entry when they would compute the same results.
func (c *Cache) key(q Query) string {
	strategies := append([]string(nil), q.Strategies...)
	sort.Strings(strategies)

	weights := make([]string, 0, len(q.StrategyWeights))
	for name, w := range q.StrategyWeights {
		weights = append(weights, fmt.Sprintf("%s=%g", name, w))
	}
	sort.Strings(weights)

	return fmt.Sprintf("%s|%d|%s|%s|%d|%s|%s",
		q.TenantID,
		c.generation(q.TenantID),
		q.Query,
		strings.Join(q.Tags, ","),
		q.Limit,
		strings.Join(strategies, ","),
		strings.Join(weights, ","),
	)
}

// Get returns a cached result set, if present.
func (c *Cache) Get(q Query) ([]Result, bool) {
	value, ok := c.cache.Get(c.key(q))
	if !ok {
		return nil, false
	}
	results, ok := value.([]Result)
	return results, ok
}

// Put stores a result set.
func (c *Cache) Put(q Query, results []Result) {
	c.cache.SetWithTTL(c.key(q), results, 1, c.ttl)
}

// Close releases the underlying cache.
func (c *Cache) Close() {
	c.cache.Close()
}
