package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	slot := newFakeSlot()
	r := NewRegistry(func(id string) *Storage {
		return NewStorage(slot, "cart:"+id)
	}, WithDebounce(time.Hour))

	a := r.Get(ctx, "s1")
	assert.Same(t, a, r.Get(ctx, "s1"))
	b := r.Get(ctx, "s2")
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Len())

	require.True(t, a.AddToCart(ctx, tee))
	require.True(t, b.AddToCart(ctx, tee))
	require.True(t, b.AddToCart(ctx, tee))

	require.NoError(t, r.Evict(ctx, "s1"))
	assert.Equal(t, 1, r.Len())
	assert.Contains(t, slot.values, "cart:s1")
	require.NoError(t, r.Evict(ctx, "unknown"))

	require.NoError(t, r.Close(ctx))
	assert.Equal(t, 0, r.Len())

	reloaded := r.Get(ctx, "s2")
	assert.Equal(t, 2, reloaded.ItemCount())
	assert.Equal(t, 1, r.Get(ctx, "s1").ItemCount())
}

func newClockedRegistry(slot Slot) (*Registry, func(time.Duration)) {
	var mu sync.Mutex
	now := time.Unix(1_700_000_000, 0)
	r := NewRegistry(func(id string) *Storage {
		return NewStorage(slot, "cart:"+id)
	}, WithDebounce(time.Hour))
	r.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return r, func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func TestRegistrySweepReleasesIdleStores(t *testing.T) {
	ctx := context.Background()
	slot := newFakeSlot()
	r, advance := newClockedRegistry(slot)

	for i := 0; i < 5000; i++ {
		r.Get(ctx, fmt.Sprintf("s%d", i))
	}
	require.True(t, r.Get(ctx, "s0").AddToCart(ctx, tee))
	require.Equal(t, 5000, r.Len())

	advance(time.Hour)
	n, err := r.Sweep(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5000, n)
	assert.Equal(t, 0, r.Len())
	assert.Contains(t, slot.values, "cart:s0", "sweep flushes pending saves")

	assert.Equal(t, 1, r.Get(ctx, "s0").ItemCount())
}

func TestRegistrySweepKeepsActiveStores(t *testing.T) {
	ctx := context.Background()
	r, advance := newClockedRegistry(newFakeSlot())

	idle := r.Get(ctx, "idle")
	active := r.Get(ctx, "active")
	advance(20 * time.Minute)
	r.Get(ctx, "active")
	advance(20 * time.Minute)

	n, err := r.Sweep(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, r.Len())
	assert.Same(t, active, r.Get(ctx, "active"))
	assert.NotSame(t, idle, r.Get(ctx, "idle"))
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	r := NewRegistry(func(id string) *Storage {
		return NewStorage(newFakeSlot(), id)
	})
	r.Get(context.Background(), "s1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond, 0)
		close(done)
	}()

	require.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
