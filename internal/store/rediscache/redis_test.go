package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func TestStore_GetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestStore_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.SetIfAbsent(ctx, "airesult:abc", "first", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetIfAbsent(ctx, "airesult:abc", "second", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	v, _, err := s.Get(ctx, "airesult:abc")
	require.NoError(t, err)
	require.Equal(t, "first", v)
}

func TestStore_IncrByFloatAccumulatesAcrossCalls(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	total, err := s.IncrByFloat(ctx, "usage:u1:2026-08-01", 1.5, time.Hour)
	require.NoError(t, err)
	require.InDelta(t, 1.5, total, 1e-9)

	total, err = s.IncrByFloat(ctx, "usage:u1:2026-08-01", 2.25, time.Hour)
	require.NoError(t, err)
	require.InDelta(t, 3.75, total, 1e-9)
}

func TestStore_FlushAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Set(ctx, "k", "v", 0))
	require.NoError(t, s.FlushAll(ctx))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
