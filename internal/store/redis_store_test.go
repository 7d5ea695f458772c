package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/plantpal/internal/config"
)

func newTestStore(t *testing.T) (*RedisFollowStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisFollowStore(config.RedisConfig{Address: mr.Addr()}, config.CacheConfig{FollowersCountTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestFollowing_CacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, err := s.GetFollowing(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.SetFollowing(ctx, "u1", nil, time.Minute))
	ids, err := s.GetFollowing(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	require.NoError(t, s.SetFollowing(ctx, "u1", []string{"u2", "u3"}, time.Minute))
	ids, err = s.GetFollowing(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, ids)

	mr.FastForward(2 * time.Minute)
	_, err = s.GetFollowing(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.SetFollowing(ctx, "u1", []string{"u2"}, time.Minute))
	require.NoError(t, s.InvalidateFollowing(ctx, "u1", "u9"))
	_, err = s.GetFollowing(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestFollowersCount_ConditionalUpdates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	// Not cached: events must not seed a value.
	require.NoError(t, s.CondIncrFollowersCount(ctx, "u1"))
	_, ok, err := s.GetFollowersCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetFollowersCount(ctx, "u1", 1))
	require.NoError(t, s.CondIncrFollowersCount(ctx, "u1"))
	n, ok, err := s.GetFollowersCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 2, n)

	require.NoError(t, s.CondDecrFollowersCount(ctx, "u1"))
	require.NoError(t, s.CondDecrFollowersCount(ctx, "u1"))
	require.NoError(t, s.CondDecrFollowersCount(ctx, "u1"))
	n, _, err = s.GetFollowersCount(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestHotKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordAccess(ctx, "popular"))
	}
	require.NoError(t, s.RecordAccess(ctx, "quiet"))

	keys, err := s.GetTopHotKeys(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"popular"}, keys)

	require.NoError(t, s.ResetHotKeyScores(ctx))
	keys, err = s.GetTopHotKeys(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFollowersCount_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.SetFollowersCount(ctx, "u1", 4))
	assert.Equal(t, time.Minute, mr.TTL(followersCountKey("u1")))

	require.NoError(t, s.CondIncrFollowersCount(ctx, "u1"))
	assert.Equal(t, time.Minute, mr.TTL(followersCountKey("u1")))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.GetFollowersCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}
