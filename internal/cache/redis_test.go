package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), "redis://"+mr.Addr(), "cache:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCacheSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "PrintTime:abc:1.0.0", []byte("payload"), 60))

	val, err := c.Get(ctx, "PrintTime:abc:1.0.0")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), val)
}

func TestRedisCacheMissReturnsNilNil(t *testing.T) {
	c, _ := newTestCache(t)
	val, err := c.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, val)
}

func TestRedisCacheDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 60))
	require.NoError(t, c.Delete(ctx, "k"))

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, val)
}

func TestRedisCacheInvalidatePattern(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "PrintTime:aaa:1.0.0", []byte("1"), 60))
	require.NoError(t, c.Set(ctx, "PrintTime:bbb:1.0.0", []byte("2"), 60))
	require.NoError(t, c.Set(ctx, "DemandForecast:ccc:1.0.0", []byte("3"), 60))

	require.NoError(t, c.InvalidatePattern(ctx, "PrintTime:*"))

	v1, _ := c.Get(ctx, "PrintTime:aaa:1.0.0")
	v2, _ := c.Get(ctx, "PrintTime:bbb:1.0.0")
	v3, _ := c.Get(ctx, "DemandForecast:ccc:1.0.0")

	require.Nil(t, v1)
	require.Nil(t, v2)
	require.Equal(t, []byte("3"), v3)
}

func TestRedisCacheGetOnClosedConnectionIsMissNotError(t *testing.T) {
	c, _ := newTestCache(t)
	c.Close()

	val, err := c.Get(context.Background(), "anything")
	require.NoError(t, err, "cache transport errors must never be fatal to the caller")
	require.Nil(t, val)
}
