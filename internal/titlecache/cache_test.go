package titlecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anicat/internal/media"
)

type fakeFetcher struct {
	calls   atomic.Int32
	err     error
	release chan struct{} // when set, fetches block until closed
	started chan string
}

func (f *fakeFetcher) FetchFullTitle(_ context.Context, id string) (media.Title, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- id
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return media.Title{}, f.err
	}
	return media.Title{ID: id, Name: "title " + id}, nil
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// waitFlight blocks until no fetch for id is in flight.
func waitFlight(c *Cache, id string) {
	_, _, _ = c.group.Do(id, func() (any, error) { return nil, nil })
}

func waiters(c *Cache, id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters[id]
}

func TestGetIdempotent(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f)
	ctx := context.Background()

	first, err := c.Get(ctx, "1")
	require.NoError(t, err)
	second, err := c.Get(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Fetches: 1}, c.Stats())
}

func TestCapacityRetention(t *testing.T) {
	for _, capacity := range []int{1, 3, 20} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			c := New(&fakeFetcher{}, WithCapacity(capacity), WithClock(tickingClock()))

			n := capacity + 5
			for i := 0; i < n; i++ {
				_, err := c.Get(context.Background(), fmt.Sprint(i))
				require.NoError(t, err)
				assert.LessOrEqual(t, c.Len(), capacity)
			}

			assert.Equal(t, capacity, c.Len())
			for i := n - capacity; i < n; i++ {
				assert.True(t, c.Contains(fmt.Sprint(i)), "newest title %d evicted", i)
			}
			assert.EqualValues(t, 5, c.Stats().Evictions)
		})
	}
}

func TestHitRefreshesAge(t *testing.T) {
	c := New(&fakeFetcher{}, WithCapacity(2), WithClock(tickingClock()))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "a", "c"} {
		_, err := c.Get(ctx, id)
		require.NoError(t, err)
	}

	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
}

func TestEvictionTieBreaksByID(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(&fakeFetcher{}, WithCapacity(2), WithClock(func() time.Time { return fixed }))

	for _, id := range []string{"b", "a", "c"} {
		_, err := c.Get(context.Background(), id)
		require.NoError(t, err)
	}

	assert.False(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	f := &fakeFetcher{release: make(chan struct{}), started: make(chan string, 1)}
	c := New(f)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]media.Title, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background(), "42")
		}(i)
	}

	<-f.started
	require.Eventually(t, func() bool { return waiters(c, "42") == callers }, time.Second, time.Millisecond)
	close(f.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "42", results[i].ID)
	}
	assert.EqualValues(t, 1, f.calls.Load())
	assert.True(t, c.Contains("42"))
	assert.Zero(t, waiters(c, "42"))
}

func TestCancelledWaiterDropsResult(t *testing.T) {
	f := &fakeFetcher{release: make(chan struct{}), started: make(chan string, 1)}
	c := New(f)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "7")
		errc <- err
	}()

	<-f.started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(f.release)
	waitFlight(c, "7")

	assert.False(t, c.Contains("7"))
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestOneCancelledWaiterKeepsResult(t *testing.T) {
	f := &fakeFetcher{release: make(chan struct{}), started: make(chan string, 1)}
	c := New(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "7")
		cancelled <- err
	}()
	<-f.started

	done := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "7")
		done <- err
	}()
	require.Eventually(t, func() bool { return waiters(c, "7") == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)
	close(f.release)

	require.NoError(t, <-done)
	assert.True(t, c.Contains("7"))
}

func TestErrorsNotCached(t *testing.T) {
	boom := errors.New("api down")
	f := &fakeFetcher{err: boom}
	c := New(f)

	_, err := c.Get(context.Background(), "1")
	require.ErrorIs(t, err, boom)
	assert.False(t, c.Contains("1"))

	f.err = nil
	title, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "1", title.ID)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestInvalidate(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f)
	ctx := context.Background()

	_, err := c.Get(ctx, "1")
	require.NoError(t, err)
	c.Invalidate("1")
	assert.False(t, c.Contains("1"))
	assert.True(t, c.Peek("1").IsAbsent())

	_, err = c.Get(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.calls.Load())

	title, ok := c.Peek("1").Get()
	require.True(t, ok)
	assert.Equal(t, "title 1", title.Name)
}

func TestInvalidateDuringFetchDropsResult(t *testing.T) {
	f := &fakeFetcher{release: make(chan struct{}), started: make(chan string, 1)}
	c := New(f)

	done := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "1")
		done <- err
	}()
	<-f.started

	c.Invalidate("1")
	close(f.release)

	require.NoError(t, <-done)
	assert.False(t, c.Contains("1"), "invalidated title came back")
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestGetAfterInvalidateWaitsForFlight(t *testing.T) {
	f := &fakeFetcher{release: make(chan struct{}), started: make(chan string, 2)}
	c := New(f)

	first := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "1")
		first <- err
	}()
	<-f.started

	c.Invalidate("1")

	second := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "1")
		second <- err
	}()
	require.Eventually(t, func() bool { return waiters(c, "1") == 2 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, f.calls.Load(), "second fetch started while the first was in flight")

	close(f.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.EqualValues(t, 2, f.calls.Load())
	assert.Equal(t, "1", <-f.started)
	assert.True(t, c.Contains("1"))
	assert.Zero(t, waiters(c, "1"))
}

func TestSweepAfterSetCapacity(t *testing.T) {
	c := New(&fakeFetcher{}, WithCapacity(5), WithClock(tickingClock()))
	for i := 0; i < 5; i++ {
		_, err := c.Get(context.Background(), fmt.Sprint(i))
		require.NoError(t, err)
	}

	c.SetCapacity(2)
	assert.Equal(t, 5, c.Len())

	assert.Equal(t, 3, c.Sweep())
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains("3"))
	assert.True(t, c.Contains("4"))
	assert.Zero(t, c.Sweep())

	c.SetCapacity(0)
	assert.Zero(t, c.Sweep())
}

func TestStartStop(t *testing.T) {
	c := New(&fakeFetcher{}, WithCapacity(4), WithSweepInterval(5*time.Millisecond), WithClock(tickingClock()))
	c.Stop()

	c.Start()
	c.Start()
	defer c.Stop()

	for i := 0; i < 4; i++ {
		_, err := c.Get(context.Background(), fmt.Sprint(i))
		require.NoError(t, err)
	}
	c.SetCapacity(1)

	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)

	c.Stop()
	c.Stop()
}

func TestNilFetcher(t *testing.T) {
	c := New(nil)
	_, err := c.Get(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNilFetcher)
}
