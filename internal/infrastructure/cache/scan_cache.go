package cache

import (
	"sync"
	"time"

	"github.com/doeshing/phishnet-go/internal/domain"
)

// ScanCache maps exact URL strings to their last verdict.
// Staleness is checked on read only; expired entries stay until overwritten.
type ScanCache struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewScanCache returns an empty cache whose entries are fresh for ttl.
func NewScanCache(ttl time.Duration) *ScanCache {
	if ttl <= 0 {
		ttl = domain.DefaultScanCacheTTL
	}
	return &ScanCache{
		entries: make(map[string]domain.CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (c *ScanCache) WithClock(now func() time.Time) *ScanCache {
	c.now = now
	return c
}

// Get returns the cached verdict for url if it is still fresh.
func (c *ScanCache) Get(url string) (domain.Verdict, bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok || !entry.FreshAt(c.now(), c.ttl) {
		return "", false
	}
	return entry.Verdict, true
}

// Put records verdict for url, replacing any previous entry.
func (c *ScanCache) Put(url string, verdict domain.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = domain.CacheEntry{URL: url, Verdict: verdict, InsertedAt: c.now()}
}

// Stats counts stored entries and how many are still fresh.
func (c *ScanCache) Stats() CacheStats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := CacheStats{Entries: len(c.entries), TTL: c.ttl.String()}
	for _, entry := range c.entries {
		if entry.FreshAt(now, c.ttl) {
			stats.Fresh++
		}
	}
	return stats
}

// CacheStats is reported by the cache inspection endpoint.
type CacheStats struct {
	Entries int    `json:"entries"`
	Fresh   int    `json:"fresh"`
	TTL     string `json:"ttl"`
}
