package host

import (
	"context"
)

// Future is the pending result of a submitted call.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve completes the future. It must be called exactly once.
func (f *Future[T]) resolve(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the result is available or ctx is done. A ctx error
// leaves the call running; Await may be called again.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Await is Future.Await for a goroutine holding lock. The lock is released
// while waiting so callbacks and other host work can run.
func Await[T any](ctx context.Context, lock Lock, f *Future[T]) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	lock.Release()
	defer lock.Acquire()
	return f.Await(ctx)
}
