package dedup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sherpai/sherpai/internal/usecase/dedup"
)

// flakyStore is a KVStore that can be switched into a failing state.
type flakyStore struct {
	values map[string]string
	fail   bool
	sets   int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{values: make(map[string]string)}
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.fail {
		return "", false, errors.New("store unavailable")
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *flakyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.fail {
		return errors.New("store unavailable")
	}
	s.sets++
	s.values[key] = value
	return nil
}

func TestCache_MissThenHit(t *testing.T) {
	store := newFlakyStore()
	cache := dedup.NewCache(store)
	ctx := context.Background()

	assert.False(t, cache.ShouldSkip(ctx, "k"))

	cache.MarkDone(ctx, "k", "true", 60)

	assert.True(t, cache.ShouldSkip(ctx, "k"))
	value, ok := cache.Lookup(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "true", value)
}

func TestCache_FailsOpenOnStoreErrors(t *testing.T) {
	store := newFlakyStore()
	cache := dedup.NewCache(store)
	ctx := context.Background()

	cache.MarkDone(ctx, "k", "true", 60)
	store.fail = true

	// A cached entry must read as a miss while the store is down.
	assert.False(t, cache.ShouldSkip(ctx, "k"))

	// Writes during the outage are dropped, not fatal.
	cache.MarkDone(ctx, "k2", "true", 60)
	store.fail = false
	assert.False(t, cache.ShouldSkip(ctx, "k2"))
}

func TestCache_MarkDoneDefaultsTTL(t *testing.T) {
	store := newFlakyStore()
	cache := dedup.NewCache(store)

	cache.MarkDone(context.Background(), "k", "v", 0)

	assert.Equal(t, 1, store.sets)
	assert.Equal(t, "v", store.values["k"])
}
