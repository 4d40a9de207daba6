// Package cache implements a time-windowed cache-aside accessor: callers hand
// it a key, a time-to-live and a producer, and get back either the stored
// value or a freshly produced one.
package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Producer computes the value for a key on a miss. It may block on I/O.
type Producer func(ctx context.Context) (any, error)

// entry is replaced wholesale on every refresh, never mutated.
type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// Options configures an Accessor.
type Options struct {
	// ProducerTimeout bounds each producer call; zero leaves it unbounded.
	ProducerTimeout time.Duration
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
	// Metrics receives hit/miss events. Nil means NoopMetrics.
	Metrics Metrics
}

// Accessor is a process-wide cache shared by request handlers.
// It is safe for concurrent use by multiple goroutines.
//
// Concurrent misses on the same key are coalesced: one producer call runs and
// every waiting caller receives its result. Failed calls are never stored.
// Calls made after Clear start a new flight instead of joining an older one.
type Accessor struct {
	mu              sync.RWMutex
	entries         map[string]entry
	gen             uint64 // bumped by Clear
	flights         singleflight.Group
	now             func() time.Time
	producerTimeout time.Duration
	metrics         Metrics
}

// Stats describes the accessor contents at the time of the call.
type Stats struct {
	// Entries is the number of stored entries, expired or not.
	Entries int `json:"totalEntries"`
	// Keys lists every stored key in ascending order.
	Keys []string `json:"entries"`
	// Expired counts entries older than the ttl they were stored with.
	Expired int `json:"expired"`
}

// New creates an empty Accessor.
func New(opts Options) *Accessor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = NoopMetrics{}
	}
	return &Accessor{
		entries:         make(map[string]entry),
		now:             now,
		producerTimeout: opts.ProducerTimeout,
		metrics:         m,
	}
}

// lookup returns the stored value if it is younger than ttl.
func (a *Accessor) lookup(key string, ttl time.Duration) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[key]
	if !ok || a.now().Sub(e.storedAt) >= ttl {
		return nil, false
	}
	return e.value, true
}

// Get returns the value cached under key if it was stored less than ttl ago;
// otherwise it calls produce, stores the result and returns it. A produce
// error is returned as is and leaves any previous entry for key untouched.
//
// The producer runs detached from the caller's cancellation, bounded only by
// the producer timeout, so one caller leaving does not fail the others
// waiting on the same key. A caller whose ctx ends stops waiting and gets
// ctx.Err(); the flight still stores its result.
func (a *Accessor) Get(ctx context.Context, key string, ttl time.Duration, produce Producer) (any, error) {
	if v, ok := a.lookup(key, ttl); ok {
		a.metrics.Hit()
		return v, nil
	}
	a.metrics.Miss()

	gen := a.generation()
	ch := a.flights.DoChan(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		// A flight that finished between our lookup and DoChan may already
		// have stored a fresh value.
		if v, ok := a.lookup(key, ttl); ok {
			return v, nil
		}
		pctx := context.WithoutCancel(ctx)
		if a.producerTimeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(pctx, a.producerTimeout)
			defer cancel()
		}
		v, err := produce(pctx)
		if err != nil {
			a.metrics.ProducerFailed()
			return nil, err
		}
		a.mu.Lock()
		// A Clear during the flight wins; the caller still gets v.
		if a.gen == gen {
			a.entries[key] = entry{value: v, storedAt: a.now(), ttl: ttl}
		}
		a.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			a.metrics.Coalesced()
		}
		return res.Val, res.Err
	}
}

func (a *Accessor) generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gen
}

// Clear discards every entry. Subsequent Get calls for any key are misses,
// and flights started before Clear do not store their results.
func (a *Accessor) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = make(map[string]entry)
	a.gen++
}

// Stats reports the stored keys. It never evicts.
func (a *Accessor) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	now := a.now()
	s := Stats{Entries: len(a.entries), Keys: make([]string, 0, len(a.entries))}
	for k, e := range a.entries {
		s.Keys = append(s.Keys, k)
		if now.Sub(e.storedAt) >= e.ttl {
			s.Expired++
		}
	}
	sort.Strings(s.Keys)
	return s
}

// Get is the typed form of (*Accessor).Get.
func Get[T any](ctx context.Context, a *Accessor, key string, ttl time.Duration, produce func(context.Context) (T, error)) (T, error) {
	v, err := a.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return produce(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: key %q holds %T, not %T", key, v, zero)
	}
	return t, nil
}
