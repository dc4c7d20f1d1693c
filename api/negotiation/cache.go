package negotiation

import (
	"sync"
	"time"

	"github.com/accordlabs/dispute-mediation-api/models"
)

// sessionCache is a bounded, TTL-based read cache for negotiation sessions.
// It sits outside the state machine: every mutating engine call invalidates
// the entry before and after committing, so a stale read can never feed a
// state transition.
type sessionCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
}

type cacheEntry struct {
	session  *models.NegotiationSession
	cachedAt time.Time
}

func newSessionCache(ttl time.Duration, maxEntries int) *sessionCache {
	return &sessionCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func (c *sessionCache) get(sessionID string, now time.Time) (*models.NegotiationSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[sessionID]
	if !ok {
		return nil, false
	}
	if now.Sub(entry.cachedAt) > c.ttl {
		delete(c.entries, sessionID)
		return nil, false
	}
	return entry.session, true
}

func (c *sessionCache) put(sessionID string, session *models.NegotiationSession, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[sessionID] = cacheEntry{session: session, cachedAt: now}
}

func (c *sessionCache) invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// evictOldestLocked drops the stalest entry to make room. Caller holds mu.
func (c *sessionCache) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	first := true
	for id, entry := range c.entries {
		if first || entry.cachedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = entry.cachedAt
			first = false
		}
	}
	if oldestID != "" {
		delete(c.entries, oldestID)
	}
}

func (c *sessionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
