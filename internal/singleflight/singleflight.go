// Package singleflight coalesces concurrent calls that share a key into a
// single execution.
package singleflight

import (
	"context"
	"runtime/debug"
	"sync"
)

// Group manages a set of in-flight calls keyed by string.
type Group[T any] struct {
	mu sync.Mutex
	m  map[string]*call[T]
}

type call[T any] struct {
	done chan struct{}
	val  T
	err  error
	dups int
}

// New creates a new singleflight Group.
func New[T any]() *Group[T] {
	return &Group[T]{m: make(map[string]*call[T])}
}

// Do runs fn once for all callers that arrive with key while it is in
// flight. Every caller gets the same result; shared is true when the result
// was handed to more than one caller.
//
// A waiting caller gives up with ctx.Err() once ctx is done; the running
// call is not affected. If fn panics the panic propagates in the caller
// that ran it and waiters receive a *PanicError.
func (g *Group[T]) Do(ctx context.Context, key string, fn func() (T, error)) (v T, err error, shared bool) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()

		select {
		case <-c.done:
			return c.val, c.err, true
		case <-ctx.Done():
			g.mu.Lock()
			c.dups--
			g.mu.Unlock()
			return v, ctx.Err(), false
		}
	}

	c := &call[T]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	shared = g.doCall(c, key, fn)
	return c.val, c.err, shared
}

func (g *Group[T]) doCall(c *call[T], key string, fn func() (T, error)) (shared bool) {
	normalReturn := false
	defer func() {
		if normalReturn {
			return
		}
		r := recover()
		if r != nil {
			c.err = &PanicError{Value: r, Stack: debug.Stack()}
		} else {
			c.err = ErrGoexit
		}
		g.finish(c, key)
		if r != nil {
			panic(r)
		}
	}()

	c.val, c.err = fn()
	normalReturn = true
	return g.finish(c, key)
}

// finish unregisters c and releases its waiters.
func (g *Group[T]) finish(c *call[T], key string) (shared bool) {
	g.mu.Lock()
	if g.m[key] == c {
		delete(g.m, key)
	}
	shared = c.dups > 0
	g.mu.Unlock()
	close(c.done)
	return shared
}

// InFlight reports whether a call for key is currently running.
func (g *Group[T]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

// Forget drops key so the next call starts a fresh execution even if the
// current one has not finished.
func (g *Group[T]) Forget(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// Waiters returns how many callers are waiting on the in-flight call for key.
func (g *Group[T]) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.m[key]; ok {
		return c.dups
	}
	return 0
}
