package modelstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"eve.evalgo.org/internal/obslog"
)

// EvictionReason explains why an entry left the in-memory model cache.
type EvictionReason string

const (
	EvictionCapacity EvictionReason = "Capacity"
	EvictionExpired  EvictionReason = "Expired"
	EvictionReplaced EvictionReason = "Replaced"
	EvictionRemoved  EvictionReason = "Removed"
)

const (
	defaultCapacity = 256
	absoluteTTL     = 24 * time.Hour
	slidingTTL      = 1 * time.Hour
)

// Deserializer turns raw artifact bytes into a family-specific in-memory
// model payload. Supplied by internal/predictors so modelstore stays
// agnostic of concrete model formats.
type Deserializer func(artifact []byte, family string) (any, error)

type cacheEntry struct {
	model        *Model
	lastModified int64
	createdAt    time.Time
	lastAccessed time.Time
}

// ModelCache maps (handle, artifact-last-modified-timestamp) to a
// deserialized Model. Recomputing the composite key from the artifact's
// last-modified timestamp ensures a replaced artifact under the same
// handle is never served stale.
type ModelCache struct {
	mu           sync.Mutex
	lru          *lru.Cache[string, *cacheEntry]
	store        ArtifactStore
	deserializer Deserializer
}

// NewModelCache builds a bounded model cache backed by store, using
// deserializer to turn loaded bytes into family-specific payloads.
func NewModelCache(store ArtifactStore, deserializer Deserializer) *ModelCache {
	return newModelCacheWithCapacity(store, deserializer, defaultCapacity)
}

func newModelCacheWithCapacity(store ArtifactStore, deserializer Deserializer, capacity int) *ModelCache {
	c := &ModelCache{store: store, deserializer: deserializer}
	cache, err := lru.NewWithEvict[string, *cacheEntry](capacity, c.onEvict)
	if err != nil {
		// Only returns an error for a non-positive size, which callers never pass.
		panic(fmt.Sprintf("modelstore: unreachable lru construction failure: %v", err))
	}
	c.lru = cache
	return c
}

func (c *ModelCache) onEvict(key string, entry *cacheEntry) {
	reason := EvictionCapacity
	if entry != nil && time.Since(entry.createdAt) > absoluteTTL {
		reason = EvictionExpired
	}
	obslog.Logger.WithFields(map[string]any{
		"handle": key,
		"reason": reason,
	}).Info("model cache entry evicted")
}

func cacheKey(handle string, lastModified int64) string {
	return fmt.Sprintf("%s@%d", handle, lastModified)
}

// Load returns the deserialized model for handle. It always fetches the
// artifact from the backing ArtifactStore (to learn its last-modified
// time) and deserializes it only on a cache miss, expiry, or replacement.
func (c *ModelCache) Load(ctx context.Context, handle, family string) (*Model, error) {
	artifact, lastModified, err := c.store.Load(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("load artifact for handle %s: %w", handle, err)
	}

	key := cacheKey(handle, lastModified)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.lru.Get(key); ok {
		if c.expired(entry) {
			c.lru.Remove(key)
			obslog.Logger.WithField("handle", handle).Info("model cache entry evicted: " + string(EvictionExpired))
		} else {
			entry.lastAccessed = time.Now()
			return entry.model, nil
		}
	}

	payload, err := c.deserializer(artifact, family)
	if err != nil {
		return nil, fmt.Errorf("deserialize artifact for handle %s: %w", handle, err)
	}

	model := &Model{Handle: handle, Family: family, Payload: payload}
	now := time.Now()
	c.lru.Add(key, &cacheEntry{model: model, lastModified: lastModified, createdAt: now, lastAccessed: now})
	return model, nil
}

func (c *ModelCache) expired(e *cacheEntry) bool {
	now := time.Now()
	return now.Sub(e.createdAt) > absoluteTTL || now.Sub(e.lastAccessed) > slidingTTL
}

// Invalidate drops every cached entry for handle (any last-modified
// variant), used when a registry record changes independent of an artifact
// replacement (e.g. operator-triggered reload).
func (c *ModelCache) Invalidate(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		if len(key) >= len(handle) && key[:len(handle)] == handle {
			c.lru.Remove(key)
			obslog.Logger.WithField("handle", handle).Info("model cache entry evicted: " + string(EvictionRemoved))
		}
	}
}
