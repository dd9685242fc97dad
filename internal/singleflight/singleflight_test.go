package singleflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	g := New[string]()
	if g == nil {
		t.Fatal("New() returned nil")
	}
	if g.m == nil {
		t.Error("New() did not initialize map")
	}
}

func TestDo(t *testing.T) {
	g := New[string]()

	val, err, shared := g.Do(context.Background(), "key1", func() (string, error) {
		return "hello", nil
	})

	if err != nil {
		t.Errorf("Do() returned error: %v", err)
	}
	if val != "hello" {
		t.Errorf("Do() returned %v, want hello", val)
	}
	if shared {
		t.Error("Do() reported a shared result for a single caller")
	}
	if g.InFlight("key1") {
		t.Error("key1 still in flight after Do returned")
	}
}

func TestDoError(t *testing.T) {
	g := New[*int]()
	expectedErr := errors.New("test error")

	val, err, _ := g.Do(context.Background(), "key1", func() (*int, error) {
		return nil, expectedErr
	})

	if err != expectedErr {
		t.Errorf("Do() returned error %v, want %v", err, expectedErr)
	}
	if val != nil {
		t.Errorf("Do() returned %v, want nil", val)
	}
}

// waitForDups blocks until n callers are parked on key.
func waitForDups[T any](t *testing.T, g *Group[T], key string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if g.Waiters(key) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d duplicate callers", n)
}

func TestDoDuplicateCalls(t *testing.T) {
	g := New[string]()

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func() (string, error) {
		calls.Add(1)
		<-release
		return "result", nil
	}

	const numCalls = 10
	var wg sync.WaitGroup
	results := make([]string, numCalls)
	shared := make([]bool, numCalls)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, shared[0] = g.Do(context.Background(), "same-key", fn)
	}()

	// Wait until the owner is running before adding duplicates.
	for !g.InFlight("same-key") {
		time.Sleep(time.Millisecond)
	}

	for i := 1; i < numCalls; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			results[index], _, shared[index] = g.Do(context.Background(), "same-key", fn)
		}(i)
	}

	waitForDups(t, g, "same-key", numCalls-1)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("function executed %d times, want 1", got)
	}
	for i := range results {
		if results[i] != "result" {
			t.Errorf("call %d returned %q, want result", i, results[i])
		}
		if !shared[i] {
			t.Errorf("call %d did not report a shared result", i)
		}
	}
}

func TestDoDifferentKeys(t *testing.T) {
	g := New[int]()

	a, _, _ := g.Do(context.Background(), "a", func() (int, error) { return 1, nil })
	b, _, _ := g.Do(context.Background(), "b", func() (int, error) { return 2, nil })

	if a != 1 || b != 2 {
		t.Errorf("got a=%d b=%d, want 1 and 2", a, b)
	}
}

func TestForget(t *testing.T) {
	g := New[int]()

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = g.Do(context.Background(), "key", func() (int, error) {
			<-release
			return 1, nil
		})
	}()

	for !g.InFlight("key") {
		time.Sleep(time.Millisecond)
	}
	g.Forget("key")

	if g.InFlight("key") {
		t.Error("key still in flight after Forget")
	}

	val, _, shared := g.Do(context.Background(), "key", func() (int, error) { return 2, nil })
	if val != 2 || shared {
		t.Errorf("Do() after Forget = %d (shared %v), want a fresh execution returning 2", val, shared)
	}

	close(release)
	<-done
}

func TestWaitersUnknownKey(t *testing.T) {
	g := New[int]()
	if got := g.Waiters("missing"); got != 0 {
		t.Errorf("Waiters() = %d, want 0", got)
	}
}

func TestDoPanicReleasesWaiters(t *testing.T) {
	g := New[int]()

	release := make(chan struct{})
	leaderPanic := make(chan any, 1)
	go func() {
		defer func() { leaderPanic <- recover() }()
		_, _, _ = g.Do(context.Background(), "key", func() (int, error) {
			<-release
			panic("boom")
		})
	}()

	for !g.InFlight("key") {
		time.Sleep(time.Millisecond)
	}

	waiterErr := make(chan error, 1)
	go func() {
		_, err, _ := g.Do(context.Background(), "key", func() (int, error) { return 0, nil })
		waiterErr <- err
	}()
	waitForDups(t, g, "key", 1)
	close(release)

	if got := <-leaderPanic; got != "boom" {
		t.Errorf("leader recovered %v, want boom", got)
	}

	select {
	case err := <-waiterErr:
		var panicErr *PanicError
		if !errors.As(err, &panicErr) || panicErr.Value != "boom" {
			t.Errorf("waiter got %v, want *PanicError with boom", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter still blocked after the call panicked")
	}

	if g.InFlight("key") {
		t.Error("key still in flight after panic")
	}
	val, err, _ := g.Do(context.Background(), "key", func() (int, error) { return 7, nil })
	if err != nil || val != 7 {
		t.Errorf("Do() after panic = %d, %v, want a fresh execution returning 7", val, err)
	}
}

func TestDoWaiterContextCancel(t *testing.T) {
	g := New[string]()

	release := make(chan struct{})
	leaderDone := make(chan bool, 1)
	go func() {
		_, _, shared := g.Do(context.Background(), "key", func() (string, error) {
			<-release
			return "result", nil
		})
		leaderDone <- shared
	}()

	for !g.InFlight("key") {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() {
		_, err, shared := g.Do(ctx, "key", func() (string, error) { return "", nil })
		if shared {
			t.Error("a cancelled waiter should not report a shared result")
		}
		waiterErr <- err
	}()
	waitForDups(t, g, "key", 1)
	cancel()

	select {
	case err := <-waiterErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("waiter got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter ignored its context")
	}
	if got := g.Waiters("key"); got != 0 {
		t.Errorf("Waiters() = %d after cancellation, want 0", got)
	}

	close(release)
	if shared := <-leaderDone; shared {
		t.Error("leader should not report a shared result once the only waiter left")
	}
}
