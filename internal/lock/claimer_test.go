package lock

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestClaimOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	first := NewRedisClaimer(rdb, time.Hour)
	second := NewRedisClaimer(rdb, time.Hour)

	ok, err := first.Claim(ctx, "lol:EUW1_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Claim(ctx, "lol:EUW1_1")
	require.NoError(t, err)
	assert.False(t, ok, "another process already owns the match")

	ok, err = first.Claim(ctx, "lol:EUW1_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseOnlyOwnClaim(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	first := NewRedisClaimer(rdb, time.Hour)
	second := NewRedisClaimer(rdb, time.Hour)

	ok, err := first.Claim(ctx, "lol:EUW1_1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, second.Release(ctx, "lol:EUW1_1"))
	assert.True(t, mr.Exists(keyPrefix+"lol:EUW1_1"))

	require.NoError(t, first.Release(ctx, "lol:EUW1_1"))
	assert.False(t, mr.Exists(keyPrefix+"lol:EUW1_1"))

	ok, err = second.Claim(ctx, "lol:EUW1_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseAfterExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	first := NewRedisClaimer(rdb, time.Minute)
	second := NewRedisClaimer(rdb, time.Minute)

	_, err := first.Claim(ctx, "tft:EUW1_2")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	ok, err := second.Claim(ctx, "tft:EUW1_2")
	require.NoError(t, err)
	require.True(t, ok)

	// The stale owner must not remove the new claim.
	require.NoError(t, first.Release(ctx, "tft:EUW1_2"))
	assert.True(t, mr.Exists(keyPrefix+"tft:EUW1_2"))
}

func TestDefaultTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	c := NewRedisClaimer(rdb, 0)

	_, err := c.Claim(context.Background(), "lol:EUW1_3")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, mr.TTL(keyPrefix+"lol:EUW1_3"))
}
