// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errBackend = errors.New("backend unavailable")

func newFastClient() *Client {
	return NewClient(Config{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
}

func counting[T any](calls *atomic.Int32, value T) Producer[T] {
	return func(context.Context) (T, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestFetchServesFreshCache(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	var calls atomic.Int32
	key := Key{"u1", "leaders"}

	for i := 0; i < 3; i++ {
		state := Get(context.Background(), client, key, counting(&calls, []string{"a", "b"}), Options[[]string]{})
		if state.Err != nil || !state.HasData || len(state.Data) != 2 {
			t.Fatalf("unexpected state %+v", state)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one producer call within the freshness window, got %d", calls.Load())
	}
}

func TestFetchRefreshesStaleValue(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	var calls atomic.Int32
	key := Key{"u1", "stats"}
	Get(context.Background(), client, key, counting(&calls, 1), Options[int]{})

	now = now.Add(DefaultStaleTime + time.Second)
	Get(context.Background(), client, key, counting(&calls, 2), Options[int]{})

	if calls.Load() != 2 {
		t.Fatalf("expected stale value to be refetched, got %d calls", calls.Load())
	}
}

func TestConcurrentFetchSharesOneCall(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	var calls atomic.Int32
	release := make(chan struct{})
	producer := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]State[string], 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Get(context.Background(), client, Key{"u1", "orders"}, producer, Options[string]{})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected a single shared call, got %d", calls.Load())
	}
	for _, r := range results {
		if r.Data != "shared" {
			t.Fatalf("unexpected result %+v", r)
		}
	}
}

func TestRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	var calls atomic.Int32
	producer := func(context.Context) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errBackend
		}
		return 42, nil
	}

	state := Get(context.Background(), client, Key{"u1", "flaky"}, producer, Options[int]{})
	if state.Err != nil || state.Data != 42 {
		t.Fatalf("unexpected state %+v", state)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	var calls atomic.Int32
	producer := func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errBackend
	}

	state := Get(context.Background(), client, Key{"u1", "down"}, producer, Options[int]{})
	if !errors.Is(state.Err, errBackend) {
		t.Fatalf("expected backend error, got %v", state.Err)
	}
	if calls.Load() != DefaultRetryCount+1 {
		t.Fatalf("expected %d attempts, got %d", DefaultRetryCount+1, calls.Load())
	}

	calls.Store(0)
	Get(context.Background(), client, Key{"u1", "down-once"}, producer, Options[int]{RetryCount: NoRetry})
	if calls.Load() != 1 {
		t.Fatalf("NoRetry should make a single attempt, got %d", calls.Load())
	}
}

func TestNonRetryableFailsFast(t *testing.T) {
	t.Parallel()

	errDenied := errors.New("401")
	client := NewClient(Config{
		BaseDelay: time.Millisecond,
		Retryable: func(err error) bool { return !errors.Is(err, errDenied) },
	})

	var calls atomic.Int32
	var reported error
	state := Get(context.Background(), client, Key{"u1", "me"}, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errDenied
	}, Options[int]{OnError: func(err error) { reported = err }})

	if calls.Load() != 1 {
		t.Fatalf("expected no retries, got %d calls", calls.Load())
	}
	if !errors.Is(state.Err, errDenied) || !errors.Is(reported, errDenied) {
		t.Fatalf("expected error to reach state and callback, got %v / %v", state.Err, reported)
	}
}

func TestNotReadySkipsProducer(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	var calls atomic.Int32

	for _, opts := range []Options[int]{
		{IsReady: func() bool { return false }},
		{Disabled: true},
	} {
		state := Get(context.Background(), client, Key{"anon", "leaders"}, counting(&calls, 7), opts)
		if state.Loading || state.HasData || state.Data != 0 || state.Err != nil {
			t.Fatalf("expected empty idle state, got %+v", state)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("producer must not run before ready, ran %d times", calls.Load())
	}
}

func TestRefetchIsIdempotent(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	var calls atomic.Int32
	var successes atomic.Int32
	o := NewObserver(client, Key{"u1", "ledger", "l1"}, counting(&calls, "ledger-v1"), Options[string]{
		OnSuccess: func(string) { successes.Add(1) },
	})
	defer o.Close()

	first := o.Refetch(context.Background())
	second := o.Refetch(context.Background())
	if first.Data != second.Data || first.Err != nil || second.Err != nil {
		t.Fatalf("refetch results differ: %+v vs %+v", first, second)
	}
	if calls.Load() != 2 || successes.Load() != 2 {
		t.Fatalf("expected each refetch to call the producer, got %d calls %d successes", calls.Load(), successes.Load())
	}

	cached := o.Fetch(context.Background())
	if cached.Data != "ledger-v1" || calls.Load() != 2 {
		t.Fatalf("fetch after refetch should hit the cache, got %+v after %d calls", cached, calls.Load())
	}
}

func TestSetProducerDiscardsOlderResolution(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(context.Context) (string, error) {
		close(started)
		<-release
		return "old leader", nil
	}

	o := NewObserver(client, Key{"u1", "ledger", "old"}, slow, Options[string]{})
	defer o.Close()

	done := make(chan State[string], 1)
	go func() { done <- o.Fetch(context.Background()) }()

	<-started
	o.SetProducer(Key{"u1", "ledger", "new"}, func(context.Context) (string, error) {
		return "new leader", nil
	})
	close(release)

	if stale := <-done; stale.Data == "old leader" {
		t.Fatalf("stale resolution leaked into returned state: %+v", stale)
	}
	if o.State().Data == "old leader" {
		t.Fatalf("stale resolution leaked into observer state")
	}

	fresh := o.Fetch(context.Background())
	if fresh.Data != "new leader" {
		t.Fatalf("expected new producer result, got %+v", fresh)
	}
}

func TestCloseStopsUpdates(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	var calls atomic.Int32
	o := NewObserver(client, Key{"u1", "x"}, counting(&calls, 1), Options[int]{})
	o.Close()

	if state := o.Fetch(context.Background()); state.HasData || calls.Load() != 0 {
		t.Fatalf("closed observer should not load, got %+v after %d calls", state, calls.Load())
	}
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	state := Get(context.Background(), client, Key{"u1", "boom"}, func(context.Context) (int, error) {
		panic("bad payload")
	}, Options[int]{RetryCount: NoRetry})

	if !IsPanic(state.Err) {
		t.Fatalf("expected recovered panic, got %v", state.Err)
	}
}

func TestFailureKeepsLastGoodValue(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	key := Key{"u1", "products"}
	Get(context.Background(), client, key, func(context.Context) (string, error) { return "catalogue", nil }, Options[string]{})

	o := NewObserver(client, key, func(context.Context) (string, error) { return "", errBackend }, Options[string]{RetryCount: NoRetry})
	defer o.Close()
	state := o.Refetch(context.Background())

	if !errors.Is(state.Err, errBackend) || state.Data != "catalogue" || !state.HasData {
		t.Fatalf("expected stale data with error, got %+v", state)
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	for _, key := range []Key{{"u1", "orders"}, {"u1", "orders", "o1"}, {"u1", "ordersarchive"}, {"u2", "orders"}} {
		Get(context.Background(), client, key, func(context.Context) (int, error) { return 1, nil }, Options[int]{})
	}

	if removed := client.Invalidate("u1", "orders"); removed != 2 {
		t.Fatalf("expected 2 keys removed, got %d", removed)
	}
	if _, _, ok := client.Peek(Key{"u1", "ordersarchive"}); !ok {
		t.Fatalf("sibling key with shared text prefix must survive")
	}
	if _, _, ok := client.Peek(Key{"u2", "orders"}); !ok {
		t.Fatalf("other user's key must survive")
	}

	client.Purge()
	if client.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d", client.Len())
	}
}

func TestCancelledCallerReturnsPromptly(t *testing.T) {
	t.Parallel()

	client := newFastClient()
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := Get(ctx, client, Key{"u1", "slow"}, func(context.Context) (int, error) {
		<-release
		return 1, nil
	}, Options[int]{})
	if !errors.Is(state.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", state.Err)
	}
}
