package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the freshness window used when none is configured.
const DefaultTTL = 5 * time.Minute

// Entry is the single value held by a Slot together with when it was loaded.
type Entry[T any] struct {
	Value     T
	FetchedAt time.Time
	TTL       time.Duration
}

// Fresh reports whether the entry is still inside its TTL at now.
func (e *Entry[T]) Fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// LoadFunc produces a new value for a Slot on a miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Option configures a Slot.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly so tests can step past the TTL.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Slot is a single-entry, cache-aside memo with a fixed TTL.
// Staleness is checked lazily on Get; there is no background refresh and
// no eviction other than replacing the entry. Concurrent misses share one
// load. All methods are safe for concurrent use.
type Slot[T any] struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu    sync.RWMutex
	entry *Entry[T]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an empty Slot. A non-positive ttl falls back to DefaultTTL.
func New[T any](ttl time.Duration, opts ...Option) *Slot[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Slot[T]{ttl: ttl, now: o.now}
}

// Get returns the cached value if it is fresh, otherwise calls load, stores
// the result stamped with the current time and returns it. A failed load
// leaves the previous entry in place.
//
// The shared load runs detached from any one caller's cancellation. A caller
// whose ctx ends stops waiting with ctx.Err(); the others keep waiting on the
// same load.
func (s *Slot[T]) Get(ctx context.Context, load LoadFunc[T]) (T, error) {
	if v, ok := s.fresh(); ok {
		s.hits.Add(1)
		return v, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("slot", func() (any, error) {
		// Another caller may have refilled the slot while we waited.
		if v, ok := s.fresh(); ok {
			return v, nil
		}
		s.misses.Add(1)

		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		s.mu.Lock()
		s.entry = &Entry[T]{Value: v, FetchedAt: s.now(), TTL: s.ttl}
		s.mu.Unlock()
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Peek returns the current entry, fresh or not, without loading.
func (s *Slot[T]) Peek() (Entry[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entry == nil {
		return Entry[T]{}, false
	}
	return *s.entry, true
}

// Invalidate drops the entry so the next Get loads.
func (s *Slot[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = nil
}

// TTL returns the slot's freshness window.
func (s *Slot[T]) TTL() time.Duration {
	return s.ttl
}

// Stats returns the number of hits and misses served so far.
func (s *Slot[T]) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

func (s *Slot[T]) fresh() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entry == nil || !s.entry.Fresh(s.now()) {
		var zero T
		return zero, false
	}
	return s.entry.Value, true
}
