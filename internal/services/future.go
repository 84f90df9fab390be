package services

import (
	"context"
)

// Future is the pending result of work running on another goroutine
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on a new goroutine and returns its future
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx ends. Giving up on the
// wait does not stop the work.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the result without blocking; ok is false while pending
func (f *Future[T]) Result() (value T, err error, ok bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}
