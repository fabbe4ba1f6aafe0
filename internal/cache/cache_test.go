package cache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raffaelramalhorosa/feed-digest/internal/cache"
	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingLoader(calls *atomic.Int32) cache.LoadFunc[int] {
	return func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}
}

func TestSlotHitWithinTTL(t *testing.T) {
	clock := newFakeClock()
	s := cache.New[int](5*time.Minute, cache.WithClock(clock.Now))

	var calls atomic.Int32
	load := countingLoader(&calls)

	v1, err := s.Get(context.Background(), load)
	require.NoError(t, err)

	clock.Advance(4*time.Minute + 59*time.Second)

	v2, err := s.Get(context.Background(), load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, v1, v2)

	hits, misses := s.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestSlotReloadsAfterTTL(t *testing.T) {
	clock := newFakeClock()
	s := cache.New[int](5*time.Minute, cache.WithClock(clock.Now))

	var calls atomic.Int32
	load := countingLoader(&calls)

	_, err := s.Get(context.Background(), load)
	require.NoError(t, err)

	clock.Advance(5*time.Minute + time.Nanosecond)

	v, err := s.Get(context.Background(), load)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, v)
}

func TestSlotExactlyAtTTLIsStale(t *testing.T) {
	clock := newFakeClock()
	s := cache.New[int](time.Minute, cache.WithClock(clock.Now))

	var calls atomic.Int32
	load := countingLoader(&calls)

	_, _ = s.Get(context.Background(), load)
	clock.Advance(time.Minute)
	_, _ = s.Get(context.Background(), load)

	assert.Equal(t, int32(2), calls.Load())
}

func TestSlotFailedLoadKeepsPreviousEntry(t *testing.T) {
	clock := newFakeClock()
	s := cache.New[string](time.Minute, cache.WithClock(clock.Now))

	_, err := s.Get(context.Background(), func(context.Context) (string, error) {
		return "first", nil
	})
	require.NoError(t, err)
	before, _ := s.Peek()

	clock.Advance(2 * time.Minute)
	boom := errors.New("boom")
	_, err = s.Get(context.Background(), func(context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	after, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, "first", after.Value)
}

func TestSlotFailedFirstLoadLeavesSlotEmpty(t *testing.T) {
	s := cache.New[int](time.Minute)

	_, err := s.Get(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("down")
	})
	require.Error(t, err)

	_, ok := s.Peek()
	assert.False(t, ok)
}

func TestSlotInvalidate(t *testing.T) {
	s := cache.New[int](time.Hour)

	var calls atomic.Int32
	load := countingLoader(&calls)

	_, _ = s.Get(context.Background(), load)
	s.Invalidate()
	_, _ = s.Get(context.Background(), load)

	assert.Equal(t, int32(2), calls.Load())
}

func TestSlotDefaultTTL(t *testing.T) {
	s := cache.New[int](0)
	assert.Equal(t, cache.DefaultTTL, s.TTL())
}

func TestSlotCoalescesConcurrentMisses(t *testing.T) {
	s := cache.New[int](time.Hour)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan int, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Get(context.Background(), load)
			if err == nil {
				results <- v
			}
		}()
	}

	// Give the goroutines a moment to pile up on the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for v := range results {
		assert.Equal(t, 42, v)
	}
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestSlotCancelledCallerDoesNotFailOthers(t *testing.T) {
	s := cache.New[int](time.Hour)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		calls.Add(1)
		close(started)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-release:
			return 7, nil
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Get(firstCtx, load)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := s.Get(context.Background(), load)
		second <- result{v, err}
	}()

	// Let the second caller join the in-flight load before the first gives up.
	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 7, got.v)
	assert.Equal(t, int32(1), calls.Load())

	entry, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 7, entry.Value)
}

func TestSlotCallerStopsWaitingOnOwnDeadline(t *testing.T) {
	s := cache.New[int](time.Hour)

	release := make(chan struct{})
	defer close(release)
	load := func(context.Context) (int, error) {
		<-release
		return 1, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Get(ctx, load)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFeedCacheFetchesOncePerWindow(t *testing.T) {
	clock := newFakeClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var calls atomic.Int32
	fetch := func(context.Context) ([]models.FeedItem, error) {
		calls.Add(1)
		return []models.FeedItem{{Title: "Show HN: X"}, {Title: "Ask HN: Y"}}, nil
	}

	fc := cache.NewFeedCache(fetch, 5*time.Minute, logger, cache.WithClock(clock.Now))

	items, err := fc.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	_, err = fc.Items(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(6 * time.Minute)
	_, err = fc.Items(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFeedCachePropagatesFetchError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetch := func(context.Context) ([]models.FeedItem, error) {
		return nil, models.ErrUpstreamUnavailable
	}

	fc := cache.NewFeedCache(fetch, time.Minute, logger)

	_, err := fc.Items(context.Background())
	require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}
