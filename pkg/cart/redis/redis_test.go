package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartflow/pkg/cart"
)

func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestSlot(t *testing.T) {
	ctx := context.Background()
	rdb := testClient(t)
	s := New(rdb, time.Minute)
	key := "cart:test:" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(ctx, key) })

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, `[]`))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)

	ttl, err := rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestSlotWithStore(t *testing.T) {
	ctx := context.Background()
	slot := New(testClient(t), time.Minute)
	key := "cart:test:" + uuid.NewString()
	t.Cleanup(func() { _ = slot.Delete(ctx, key) })

	s := cart.New(cart.NewStorage(slot, key), cart.WithDebounce(time.Hour))
	require.True(t, s.AddToCart(ctx, cart.NewItem{ID: "tee", Name: "Tee", Price: "20.00"}))
	require.NoError(t, s.Close(ctx))

	reloaded := cart.New(cart.NewStorage(slot, key))
	require.True(t, reloaded.Hydrate(ctx))
	assert.Equal(t, s.Items(), reloaded.Items())
}

func TestNewDefaultTTL(t *testing.T) {
	s := New(nil, 0)
	assert.Equal(t, DefaultTTL, s.ttl)
}
