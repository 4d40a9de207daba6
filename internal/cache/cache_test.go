package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

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

type countingMetrics struct {
	hits, misses, coalesced, failed atomic.Int64
}

func (m *countingMetrics) Hit()            { m.hits.Add(1) }
func (m *countingMetrics) Miss()           { m.misses.Add(1) }
func (m *countingMetrics) Coalesced()      { m.coalesced.Add(1) }
func (m *countingMetrics) ProducerFailed() { m.failed.Add(1) }

func counter(value any) (Producer, *atomic.Int64) {
	var calls atomic.Int64
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}, &calls
}

const ttl = 100 * time.Millisecond

func TestTTLBoundary(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	a := New(Options{Now: clock.Now})
	produce, calls := counter("v")

	if _, err := a.Get(ctx, "k", ttl, produce); err != nil {
		t.Fatal(err)
	}
	clock.Advance(ttl - time.Millisecond)
	if _, err := a.Get(ctx, "k", ttl, produce); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected cached value before ttl, producer ran %d times", got)
	}

	clock.Advance(2 * time.Millisecond)
	if _, err := a.Get(ctx, "k", ttl, produce); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected refresh after ttl, producer ran %d times", got)
	}
}

func TestExactTTLIsExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	a := New(Options{Now: clock.Now})
	produce, calls := counter(1)
	_, _ = a.Get(ctx, "k", ttl, produce)
	clock.Advance(ttl)
	_, _ = a.Get(ctx, "k", ttl, produce)
	if calls.Load() != 2 {
		t.Fatalf("entry aged exactly ttl should be a miss, producer ran %d times", calls.Load())
	}
}

func TestTTLIsPerCall(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	a := New(Options{Now: clock.Now})
	produce, calls := counter(1)
	_, _ = a.Get(ctx, "k", time.Hour, produce)
	clock.Advance(time.Minute)
	_, _ = a.Get(ctx, "k", time.Hour, produce)
	_, _ = a.Get(ctx, "k", 30*time.Second, produce)
	if calls.Load() != 2 {
		t.Fatalf("expected shorter ttl to force a refresh, producer ran %d times", calls.Load())
	}
}

func TestFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	a := New(Options{Now: newFakeClock().Now})
	boom := errors.New("store unreachable")
	attempt := 0
	produce := func(context.Context) (any, error) {
		attempt++
		if attempt == 1 {
			return nil, boom
		}
		return "ok", nil
	}

	if _, err := a.Get(ctx, "k", ttl, produce); !errors.Is(err, boom) {
		t.Fatalf("expected producer error untouched, got %v", err)
	}
	if s := a.Stats(); s.Entries != 0 {
		t.Fatalf("failure left an entry: %+v", s)
	}
	v, err := a.Get(ctx, "k", ttl, produce)
	if err != nil || v != "ok" {
		t.Fatalf("retry: v=%v err=%v", v, err)
	}
}

func TestFailureKeepsPreviousEntry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	a := New(Options{Now: clock.Now})
	_, _ = a.Get(ctx, "k", ttl, func(context.Context) (any, error) { return "old", nil })
	clock.Advance(2 * ttl)

	boom := errors.New("boom")
	if _, err := a.Get(ctx, "k", ttl, func(context.Context) (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	s := a.Stats()
	if s.Entries != 1 || s.Expired != 1 || s.Keys[0] != "k" {
		t.Fatalf("previous entry disturbed: %+v", s)
	}
	// A longer ttl still sees the first entry, so it was not replaced.
	v, err := a.Get(ctx, "k", time.Hour, func(context.Context) (any, error) { return "new", nil })
	if err != nil || v != "old" {
		t.Fatalf("expected old entry, got v=%v err=%v", v, err)
	}
}

func TestClearIsTotal(t *testing.T) {
	ctx := context.Background()
	a := New(Options{Now: newFakeClock().Now})
	p1, c1 := counter(1)
	p2, c2 := counter(2)
	_, _ = a.Get(ctx, "a", time.Hour, p1)
	_, _ = a.Get(ctx, "b", time.Hour, p2)

	a.Clear()
	if s := a.Stats(); s.Entries != 0 || len(s.Keys) != 0 {
		t.Fatalf("stats after clear: %+v", s)
	}
	_, _ = a.Get(ctx, "a", time.Hour, p1)
	_, _ = a.Get(ctx, "b", time.Hour, p2)
	if c1.Load() != 2 || c2.Load() != 2 {
		t.Fatalf("expected misses after clear, got %d and %d", c1.Load(), c2.Load())
	}
}

func TestStatsDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	a := New(Options{Now: clock.Now})
	produce, _ := counter(1)
	_, _ = a.Get(ctx, "b", ttl, produce)
	_, _ = a.Get(ctx, "a", time.Hour, produce)
	clock.Advance(2 * ttl)

	for i := 0; i < 2; i++ {
		s := a.Stats()
		if s.Entries != 2 || s.Expired != 1 {
			t.Fatalf("stats read %d: %+v", i, s)
		}
		if s.Keys[0] != "a" || s.Keys[1] != "b" {
			t.Fatalf("keys not sorted: %v", s.Keys)
		}
	}
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	ctx := context.Background()
	m := &countingMetrics{}
	a := New(Options{Now: newFakeClock().Now, Metrics: m})

	release := make(chan struct{})
	var calls atomic.Int64
	produce := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([]any, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = a.Get(ctx, "k", time.Hour, produce)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one producer call, got %d", got)
	}
	for i := range results {
		if errs[i] != nil || results[i] != "shared" {
			t.Fatalf("caller %d: v=%v err=%v", i, results[i], errs[i])
		}
	}
	if m.hits.Load()+m.misses.Load() != n {
		t.Errorf("hits %d + misses %d != %d", m.hits.Load(), m.misses.Load(), n)
	}
}

func TestCoalescedFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	a := New(Options{Now: newFakeClock().Now})
	boom := errors.New("boom")
	if _, err := a.Get(ctx, "k", time.Hour, func(context.Context) (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, err := a.Get(ctx, "k", time.Hour, func(context.Context) (any, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected retry to produce, got v=%v err=%v", v, err)
	}
}

func TestProducerTimeout(t *testing.T) {
	a := New(Options{ProducerTimeout: 20 * time.Millisecond})
	_, err := a.Get(context.Background(), "slow", time.Hour, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if a.Stats().Entries != 0 {
		t.Fatal("timed out producer left an entry")
	}
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	a := New(Options{Now: newFakeClock().Now})
	started := make(chan struct{})
	release := make(chan struct{})
	produce := func(ctx context.Context) (any, error) {
		close(started)
		select {
		case <-release:
			return "value", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := a.Get(ctxA, "k", time.Hour, produce)
		errA <- err
	}()
	<-started

	type result struct {
		v   any
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := a.Get(context.Background(), "k", time.Hour, produce)
		resB <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
	}
	close(release)
	if r := <-resB; r.err != nil || r.v != "value" {
		t.Fatalf("live caller: v=%v err=%v", r.v, r.err)
	}
	if a.Stats().Entries != 1 {
		t.Fatal("flight result was not stored")
	}
}

func TestClearDuringFlightDropsResult(t *testing.T) {
	ctx := context.Background()
	a := New(Options{Now: newFakeClock().Now})
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		v, err := a.Get(ctx, "k", time.Hour, func(context.Context) (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
		if err == nil && v != "stale" {
			err = errors.New("caller did not get its produced value")
		}
		done <- err
	}()
	<-started
	a.Clear()
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if a.Stats().Entries != 0 {
		t.Fatal("a flight started before Clear stored its result")
	}

	produce, calls := counter("fresh")
	v, err := a.Get(ctx, "k", time.Hour, produce)
	if err != nil || v != "fresh" || calls.Load() != 1 {
		t.Fatalf("expected a fresh produce after Clear, got v=%v err=%v calls=%d", v, err, calls.Load())
	}
}

func TestTypedGet(t *testing.T) {
	ctx := context.Background()
	a := New(Options{})
	n, err := Get(ctx, a, "n", time.Hour, func(context.Context) (int, error) { return 42, nil })
	if err != nil || n != 42 {
		t.Fatalf("typed get: n=%d err=%v", n, err)
	}
	if _, err := Get(ctx, a, "n", time.Hour, func(context.Context) (string, error) { return "x", nil }); err == nil {
		t.Fatal("expected type mismatch error")
	}
}
