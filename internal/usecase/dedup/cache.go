package dedup

import (
	"context"
	"log"
	"time"
)

// KVStore is the outbound port for the external key/value cache service.
// The store is eventually consistent and offers no transactions or
// compare-and-swap; last write wins per key. Get returns ok=false when the
// key is absent or expired.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cache gates side effects behind KVStore lookups. It fails open: when the
// store is unreachable every lookup is treated as a miss and every write is
// logged and dropped, trading dedup strictness for reviewer availability
// during outages.
type Cache struct {
	kv KVStore
}

// NewCache creates a Cache over the given store.
func NewCache(kv KVStore) *Cache {
	return &Cache{kv: kv}
}

// ShouldSkip reports whether the key is already marked done. It must be
// consulted before any side-effecting action gated by that key.
func (c *Cache) ShouldSkip(ctx context.Context, key string) bool {
	_, ok := c.Lookup(ctx, key)
	return ok
}

// Lookup returns the stored value for key, if any. Store errors are treated
// as a miss.
func (c *Cache) Lookup(ctx context.Context, key string) (string, bool) {
	value, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		log.Printf("warning: cache get failed for %s, proceeding without dedup: %v", key, err)
		return "", false
	}
	return value, ok
}

// MarkDone records that the side effect gated by key has completed. The value
// is either a boolean sentinel (line-level gating) or the serialized comment
// list (patch-level gating, enabling replay without re-invoking the model).
func (c *Cache) MarkDone(ctx context.Context, key, value string, ttlSeconds int) {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTTLSeconds
	}
	if err := c.kv.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second); err != nil {
		log.Printf("warning: cache set failed for %s: %v", key, err)
	}
}
