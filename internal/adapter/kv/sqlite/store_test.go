package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SetAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "reviewed:k", "cached-list", time.Hour))

	value, ok, err := s.Get(ctx, "reviewed:k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached-list", value)
}

func TestStore_MissingKey(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ExpiredKeyReadsAsAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	require.NoError(t, s.Set(ctx, "k", "v", time.Hour))

	s.now = func() time.Time { return base.Add(2 * time.Hour) }

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetOverwritesAndExtends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "old", time.Hour))
	require.NoError(t, s.Set(ctx, "k", "new", 2*time.Hour))

	value, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", value)
}

func TestStore_SetReapsExpiredRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	require.NoError(t, s.Set(ctx, "stale", "v", time.Minute))

	s.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, s.Set(ctx, "fresh", "v", time.Minute))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&count))
	assert.Equal(t, 1, count)
}
