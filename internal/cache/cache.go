// Package cache keeps worker replies keyed by the conversation that produced them.
// It uses patrickmn/go-cache for TTL-based expiry.
package cache

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"RoutineBuilder/internal/session"
)

// CachedResponse represents a cached worker reply
type CachedResponse struct {
	Response  string
	Timestamp time.Time
}

// GenerateCacheKey generates a cache key from messages and the token hint
func GenerateCacheKey(messages []session.Message, maxTokens int) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(maxTokens)))
	for _, msg := range messages {
		h.Write([]byte{0})
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Cache wraps go-cache for worker replies.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache. A ttl of zero disables expiry.
func New(ttl time.Duration) *Cache {
	cleanup := ttl * 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &Cache{store: gocache.New(ttl, cleanup)}
}

// Get returns the cached reply for key.
func (c *Cache) Get(key string) (CachedResponse, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return CachedResponse{}, false
	}
	cached, ok := v.(CachedResponse)
	return cached, ok
}

// Store records a reply under key with the default TTL.
func (c *Cache) Store(key, response string) {
	c.store.Set(key, CachedResponse{Response: response, Timestamp: time.Now()}, gocache.DefaultExpiration)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of live entries.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}
