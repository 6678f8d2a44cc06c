package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "price:static", []byte("3200"), 15*time.Second))
	require.NoError(t, c.SetBytes(ctx, "forever", []byte("x"), 0))

	b, ok, err := c.GetBytes(ctx, "price:static")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3200", string(b))

	now = now.Add(16 * time.Second)
	_, ok, _ = c.GetBytes(ctx, "price:static")
	assert.False(t, ok)

	_, ok, _ = c.GetBytes(ctx, "forever")
	assert.True(t, ok)

	_, ok, _ = c.GetBytes(ctx, "missing")
	assert.False(t, ok)
}

func TestTTLCacheExpiryKeepsConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }
	require.NoError(t, c.SetBytes(ctx, "price:static", []byte("old"), time.Second))

	now = now.Add(2 * time.Second)
	refreshed := false
	c.now = func() time.Time {
		if !refreshed {
			refreshed = true
			// lands between the expiry check and the delete
			require.NoError(t, c.SetBytes(ctx, "price:static", []byte("new"), time.Minute))
		}
		return now
	}

	_, ok, err := c.GetBytes(ctx, "price:static")
	require.NoError(t, err)
	assert.False(t, ok)

	b, ok, err := c.GetBytes(ctx, "price:static")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", string(b))
}

func TestRedisCacheGetSet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheWithClient(db, "lprange")

	mock.ExpectSet("lprange:price:uniswap_v3", []byte("3200.5"), 15*time.Second).SetVal("OK")
	require.NoError(t, c.SetBytes(ctx, "price:uniswap_v3", []byte("3200.5"), 15*time.Second))

	mock.ExpectGet("lprange:price:uniswap_v3").SetVal("3200.5")
	b, ok, err := c.GetBytes(ctx, "price:uniswap_v3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3200.5", string(b))

	mock.ExpectGet("lprange:price:missing").RedisNil()
	_, ok, err = c.GetBytes(ctx, "price:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet("lprange:price:down").SetErr(errors.New("connection refused"))
	_, ok, err = c.GetBytes(ctx, "price:down")
	assert.Error(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
