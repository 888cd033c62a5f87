package cache

import (
	"fmt"
	"sync"
	"time"
)

// BlockedDatesCache holds computed blocked-date lists per
// (accommodation, window) for a short TTL. A calendar view may lag a live
// booking by up to the TTL; bulk PMS syncs invalidate everything eagerly.
type BlockedDatesCache interface {
	Get(accommodation string, from, to time.Time) ([]string, bool)
	Set(accommodation string, from, to time.Time, dates []string)
	InvalidateAll()
}

type entry struct {
	dates     []string
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New returns an in-memory cache. The clock is injected so tests can move
// time past the TTL deterministically.
func New(ttl time.Duration, now func() time.Time) BlockedDatesCache {
	if now == nil {
		now = time.Now
	}
	return &memoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     now,
	}
}

func key(accommodation string, from, to time.Time) string {
	return fmt.Sprintf("%s|%s|%s", accommodation, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func (c *memoryCache) Get(accommodation string, from, to time.Time) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key(accommodation, from, to)]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key(accommodation, from, to))
		return nil, false
	}
	// Copy so a caller mutating the result cannot corrupt the entry.
	dates := make([]string, len(e.dates))
	copy(dates, e.dates)
	return dates, true
}

func (c *memoryCache) Set(accommodation string, from, to time.Time, dates []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key(accommodation, from, to)] = entry{
		dates:     dates,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *memoryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}
