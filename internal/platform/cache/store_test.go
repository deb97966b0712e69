package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/require"
)

var errIntrospect = errors.New("introspection unavailable")

func TestStore_ConcurrentLoadsShareOneCall(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	var calls atomic.Int32
	gate := make(chan struct{})

	var results [16]string
	var wg conc.WaitGroup
	for i := range results {
		wg.Go(func() {
			v, err := store.GetOrLoad(context.Background(), "principal:user-garuda", func(context.Context) (string, error) {
				calls.Add(1)
				<-gate
				return "user-garuda", nil
			})
			if err == nil {
				results[i] = v
			}
		})
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		require.Equal(t, "user-garuda", v)
	}
}

func TestStore_GetOrLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore[int](time.Minute)
	var calls atomic.Int32
	loader := func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, errIntrospect
		}
		return 7, nil
	}

	_, err := store.GetOrLoad(ctx, "k", loader)
	require.ErrorIs(t, err, errIntrospect, "first load fails")

	v, err := store.GetOrLoad(ctx, "k", loader)
	require.NoError(t, err)
	require.Equal(t, 7, v, "errors are not cached")

	v, err = store.GetOrLoad(ctx, "k", loader)
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.Equal(t, int32(2), calls.Load(), "third call is served from cache")

	_, err = store.GetOrLoad(ctx, "k", nil)
	require.Error(t, err)
}

func TestStore_EmptyKeyAndDisabledTTLBypassCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var calls atomic.Int32
	loader := func(context.Context) (int, error) { return int(calls.Add(1)), nil }

	store := NewStore[int](time.Minute)
	_, _ = store.GetOrLoad(ctx, "", loader)
	_, _ = store.GetOrLoad(ctx, "", loader)
	require.Equal(t, int32(2), calls.Load())
	require.Zero(t, store.Len())

	disabled := NewStore[int](0)
	disabled.Set(ctx, "k", 1)
	_, ok := disabled.Get(ctx, "k")
	require.False(t, ok)
}

func TestStore_ExpiryAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewStore[string](200*time.Millisecond, WithClock(clock))

	store.Set(ctx, "k1", "u-1")
	store.Set(ctx, "k2", "u-2")
	v, ok := store.Get(ctx, "k1")
	require.True(t, ok)
	require.Equal(t, "u-1", v)

	store.Delete(ctx, "k2")
	_, ok = store.Get(ctx, "k2")
	require.False(t, ok)

	clock.Advance(200 * time.Millisecond)
	_, ok = store.Get(ctx, "k1")
	require.False(t, ok, "entry expires at ttl")
}

func TestStore_MaxEntriesEvictsOldest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewStore[int](time.Minute, WithMaxEntries(2), WithClock(clock))

	store.Set(ctx, "a", 1)
	clock.Advance(time.Second)
	store.Set(ctx, "b", 2)
	clock.Advance(time.Second)
	store.Set(ctx, "c", 3)

	require.Equal(t, 2, store.Len())
	_, ok := store.Get(ctx, "a")
	require.False(t, ok, "oldest entry is evicted")
	v, ok := store.Get(ctx, "c")
	require.True(t, ok)
	require.Equal(t, 3, v)
}
