// Package lazy provides a one-flight lazy singleton for a shared
// downstream connection. N callers hitting a cold process produce exactly
// one dial; all of them receive the same handle or the same error.
package lazy

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultAttemptTimeout bounds a single dial attempt. When it fires,
// every waiter of that attempt fails together.
const DefaultAttemptTimeout = 10 * time.Second

// Conn lazily opens and caches a handle of type T. Once ready the handle
// is never invalidated; reconnection behavior is the underlying driver's
// concern. A failed attempt resets the state so the next Acquire dials
// fresh.
type Conn[T any] struct {
	open    func(ctx context.Context) (T, error)
	timeout time.Duration

	group singleflight.Group
	ready atomic.Pointer[T]
}

// New builds a Conn around open. attemptTimeout <= 0 selects
// DefaultAttemptTimeout.
func New[T any](open func(ctx context.Context) (T, error), attemptTimeout time.Duration) *Conn[T] {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Conn[T]{open: open, timeout: attemptTimeout}
}

// Acquire returns the cached handle, dialing it first if necessary.
// Concurrent callers during a cold start coalesce onto a single in-flight
// attempt. The attempt runs under its own deadline, detached from any one
// caller's context, so all waiters share the same outcome.
func (c *Conn[T]) Acquire(ctx context.Context) (T, error) {
	if h := c.ready.Load(); h != nil {
		return *h, nil
	}
	v, err, _ := c.group.Do("init", func() (interface{}, error) {
		// A waiter queued behind a successful attempt lands here after
		// the winner stored the handle.
		if h := c.ready.Load(); h != nil {
			return *h, nil
		}
		dialCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		// The deadline must hold even when open never looks at its
		// context, so the dial runs in its own goroutine and the
		// attempt races it against the timer. A handle that arrives
		// after the deadline is discarded; the next Acquire dials
		// fresh.
		type result struct {
			handle T
			err    error
		}
		ch := make(chan result, 1)
		go func() {
			h, err := c.open(dialCtx)
			ch <- result{handle: h, err: err}
		}()

		select {
		case res := <-ch:
			if res.err != nil {
				return nil, res.err
			}
			c.ready.Store(&res.handle)
			return res.handle, nil
		case <-dialCtx.Done():
			return nil, dialCtx.Err()
		}
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Ready reports whether a handle is cached, without dialing.
func (c *Conn[T]) Ready() bool {
	return c.ready.Load() != nil
}
